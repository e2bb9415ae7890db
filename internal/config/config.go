package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/eleven-am/mediaworker/internal/domain"
	"github.com/eleven-am/mediaworker/internal/ffmpeg"
	"github.com/eleven-am/mediaworker/internal/hwaccel"
	"github.com/eleven-am/mediaworker/internal/logging"
	"github.com/eleven-am/mediaworker/internal/subtitle"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MEDIAWORKER_"

type Config struct {
	HWAccel   string              `toml:"hwaccel"`
	Logging   logging.Config      `toml:"logging"`
	Filters   ffmpeg.FilterConfig `toml:"filters"`
	Subtitles SubtitleConfig      `toml:"subtitles"`
	Dispatch  DispatchConfig      `toml:"dispatch"`
}

type SubtitleConfig struct {
	FrameRate float64 `toml:"frame_rate"`
	// TickRate of zero follows FrameRate.
	TickRate              float64 `toml:"tick_rate"`
	ResetTextPerParagraph bool    `toml:"reset_text_per_paragraph"`
}

type DispatchConfig struct {
	Workers int `toml:"workers"`
}

func Default() *Config {
	tb := subtitle.DefaultTimebase()
	return &Config{
		HWAccel: string(domain.AccelNone),
		Logging: logging.Config{
			Level:   "info",
			Format:  "text",
			Modules: map[string]string{},
		},
		Filters: ffmpeg.DefaultFilterConfig(),
		Subtitles: SubtitleConfig{
			FrameRate: tb.FrameRate,
			TickRate:  tb.TickRate,
		},
		Dispatch: DispatchConfig{Workers: 4},
	}
}

// Load reads path on top of the defaults, then applies MEDIAWORKER_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := cfg.decode(data); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	// A crop table replaces the default region instead of merging into it.
	if getNestedValue(raw, "filters.crop") != nil {
		c.Filters.Crop = nil
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from MEDIAWORKER_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FORMAT"); ok && v != "" {
		c.Logging.Format = v
	}
	if v, ok := lookup(EnvPrefix + "HWACCEL"); ok && v != "" {
		c.HWAccel = v
	}
	if v, ok := lookup(EnvPrefix + "DISPATCH_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sDISPATCH_WORKERS: %w", EnvPrefix, err)
		}
		c.Dispatch.Workers = n
	}
	if v, ok := lookup(EnvPrefix + "SUBTITLES_FRAME_RATE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse %sSUBTITLES_FRAME_RATE: %w", EnvPrefix, err)
		}
		c.Subtitles.FrameRate = f
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(c.HWAccel), hwaccel.Auto) {
		if _, err := hwaccel.Parse(c.HWAccel); err != nil {
			return fmt.Errorf("hwaccel: %w", err)
		}
	}
	if err := c.Filters.Validate(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	if err := c.Timebase().Validate(); err != nil {
		return fmt.Errorf("subtitles: %w", err)
	}
	if c.Dispatch.Workers < 1 {
		return fmt.Errorf("dispatch: workers must be at least 1, got %d", c.Dispatch.Workers)
	}
	return nil
}

func (c *Config) Timebase() subtitle.Timebase {
	return subtitle.Timebase{FrameRate: c.Subtitles.FrameRate, TickRate: c.Subtitles.TickRate}
}

func (c *Config) Resolver() subtitle.Config {
	return subtitle.Config{
		Timebase:              c.Timebase(),
		ResetTextPerParagraph: c.Subtitles.ResetTextPerParagraph,
	}
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}
