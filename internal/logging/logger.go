// Package logging builds per-module slog loggers from an explicit Config.
// Nothing here reads the environment; callers hand in the resolved config.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

func DefaultConfig() Config {
	return Config{Level: "info", Format: "text"}
}

func (c Config) Validate() error {
	if parseLevel(c.Level) == nil {
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	for module, level := range c.Modules {
		if parseLevel(level) == nil {
			return fmt.Errorf("unknown log level %q for module %s", level, module)
		}
	}
	return nil
}

// Loggers hands out one logger per module, all writing to the same sink.
type Loggers struct {
	cfg     Config
	out     io.Writer
	mu      sync.Mutex
	loggers map[string]*slog.Logger
	levels  map[string]*slog.LevelVar
}

func New(cfg Config, out io.Writer) (*Loggers, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return &Loggers{
		cfg:     cfg,
		out:     out,
		loggers: make(map[string]*slog.Logger),
		levels:  make(map[string]*slog.LevelVar),
	}, nil
}

// Discard returns loggers that drop everything. Handy for tests and embedding.
func Discard() *Loggers {
	l, _ := New(Config{Level: "error"}, io.Discard)
	return l
}

// GetLogger returns the logger for module, creating it on first use.
func (l *Loggers) GetLogger(module string) *slog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if logger, ok := l.loggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(l.levelFor(module))

	logger := slog.New(l.handler(levelVar)).With("module", module)
	l.loggers[module] = logger
	l.levels[module] = levelVar
	return logger
}

// SetLevel changes a module's level at runtime. An empty module changes the
// default and every module without its own override.
func (l *Loggers) SetLevel(module, level string) error {
	parsed := parseLevel(level)
	if parsed == nil {
		return fmt.Errorf("unknown log level %q", level)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if module == "" {
		l.cfg.Level = level
		for name, v := range l.levels {
			if _, overridden := l.cfg.Modules[name]; !overridden {
				v.Set(*parsed)
			}
		}
		return nil
	}

	modules := make(map[string]string, len(l.cfg.Modules)+1)
	for k, v := range l.cfg.Modules {
		modules[k] = v
	}
	modules[module] = level
	l.cfg.Modules = modules

	if v, ok := l.levels[module]; ok {
		v.Set(*parsed)
	}
	return nil
}

func (l *Loggers) levelFor(module string) slog.Level {
	if s, ok := l.cfg.Modules[module]; ok {
		if parsed := parseLevel(s); parsed != nil {
			return *parsed
		}
	}
	if parsed := parseLevel(l.cfg.Level); parsed != nil {
		return *parsed
	}
	return slog.LevelInfo
}

func (l *Loggers) handler(level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(l.cfg.Format) == "json" {
		return slog.NewJSONHandler(l.out, opts)
	}
	return slog.NewTextHandler(l.out, opts)
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
