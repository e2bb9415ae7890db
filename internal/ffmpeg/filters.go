package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/eleven-am/mediaworker/internal/domain"
)

const (
	cropLabel    = "crop_filter"
	scaleLabel   = "scale_filter"
	formatLabel  = "format_filter"
	aformatLabel = "aformat_filter"
)

type FilterConfig struct {
	Crop        *Region     `toml:"crop"`
	Scale       *Scaling    `toml:"scale"`
	PixelFormat string      `toml:"pixel_format"`
	Audio       AudioFormat `toml:"audio"`
}

// Scaling leaves a side at -1 when it is unset so the host keeps the aspect ratio.
type Scaling struct {
	Width  *int `toml:"width"`
	Height *int `toml:"height"`
}

type AudioFormat struct {
	SampleRates    []int    `toml:"sample_rates"`
	ChannelLayouts []string `toml:"channel_layouts"`
	SampleFormats  []string `toml:"sample_formats"`
}

func DefaultFilterConfig() FilterConfig {
	top, left, width, height := 50, 50, 300, 200
	return FilterConfig{
		Crop: &Region{Top: &top, Left: &left, Width: &width, Height: &height},
		Audio: AudioFormat{
			SampleRates:    []int{16000},
			ChannelLayouts: []string{"mono"},
			SampleFormats:  []string{"s16"},
		},
	}
}

func (c FilterConfig) Validate() error {
	if c.Crop != nil {
		if err := c.Crop.Validate(); err != nil {
			return err
		}
	}
	if c.Scale != nil {
		if c.Scale.Width == nil && c.Scale.Height == nil {
			return fmt.Errorf("scale: width or height is required")
		}
		for _, v := range []*int{c.Scale.Width, c.Scale.Height} {
			if v != nil && *v <= 0 {
				return fmt.Errorf("scale: dimensions must be positive, got %d", *v)
			}
		}
	}
	for _, rate := range c.Audio.SampleRates {
		if rate <= 0 {
			return fmt.Errorf("audio format: sample rate must be positive, got %d", rate)
		}
	}
	return nil
}

// FilterBuilder turns static configuration into per-stream filter chains.
type FilterBuilder struct {
	cfg     FilterConfig
	HWAccel *domain.HWAccelConfig
}

func NewFilterBuilder(cfg FilterConfig, hwAccel *domain.HWAccelConfig) *FilterBuilder {
	if hwAccel == nil {
		hwAccel = &domain.HWAccelConfig{Accelerator: domain.AccelNone, ScaleFilter: "scale"}
	}
	return &FilterBuilder{cfg: cfg, HWAccel: hwAccel}
}

// For returns the filter chain for a stream. Kinds without filters get an empty chain.
func (b *FilterBuilder) For(info domain.StreamInfo) []domain.FilterDescriptor {
	switch info.Kind {
	case domain.StreamVideo:
		return b.Video(info)
	case domain.StreamAudio:
		return b.Audio()
	default:
		return []domain.FilterDescriptor{}
	}
}

func (b *FilterBuilder) Video(info domain.StreamInfo) []domain.FilterDescriptor {
	filters := []domain.FilterDescriptor{}

	if b.cfg.Crop != nil {
		var width, height int
		if info.Video != nil {
			width, height = info.Video.Width, info.Video.Height
		}
		coords := b.cfg.Crop.Coordinates(width, height)
		filters = append(filters, newFilter("crop", cropLabel, coords.Parameters()))
	}

	if b.cfg.Scale != nil {
		params := map[string]string{
			"width":  dimension(b.cfg.Scale.Width),
			"height": dimension(b.cfg.Scale.Height),
		}
		if b.HWAccel.PixelFormat != "" {
			params["format"] = b.HWAccel.PixelFormat
		}
		filters = append(filters, newFilter(b.HWAccel.ScaleFilter, scaleLabel, params))
	}

	if b.cfg.PixelFormat != "" {
		filters = append(filters, newFilter("format", formatLabel, map[string]string{
			"pix_fmts": b.cfg.PixelFormat,
		}))
	}

	return filters
}

func (b *FilterBuilder) Audio() []domain.FilterDescriptor {
	params := make(map[string]string)
	a := b.cfg.Audio

	if len(a.SampleRates) > 0 {
		rates := make([]string, len(a.SampleRates))
		for i, r := range a.SampleRates {
			rates[i] = fmt.Sprintf("%d", r)
		}
		params["sample_rates"] = strings.Join(rates, "|")
	}
	if len(a.ChannelLayouts) > 0 {
		params["channel_layouts"] = strings.Join(a.ChannelLayouts, "|")
	}
	if len(a.SampleFormats) > 0 {
		params["sample_fmts"] = strings.Join(a.SampleFormats, "|")
	}

	return []domain.FilterDescriptor{newFilter("aformat", aformatLabel, params)}
}

func newFilter(name, label string, params map[string]string) domain.FilterDescriptor {
	return domain.FilterDescriptor{
		Name:       name,
		Label:      &label,
		Parameters: params,
	}
}

func dimension(v *int) string {
	if v == nil {
		return "-1"
	}
	return fmt.Sprintf("%d", *v)
}
