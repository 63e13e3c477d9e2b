package config

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// LoggingConfig selects the slog handler installed at startup.
type LoggingConfig struct {
	Level     string `env:"LOG_LEVEL" env-default:"info"`
	Format    string `env:"LOG_FORMAT" env-default:"text"`
	AddSource bool   `env:"LOG_ADD_SOURCE" env-default:"true"`
	NoColor   bool   `env:"LOG_NO_COLOR" env-default:"false"`
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the configured level, info when unknown.
func (l LoggingConfig) SlogLevel() slog.Level {
	if level, ok := logLevels[strings.ToLower(l.Level)]; ok {
		return level
	}
	return slog.LevelInfo
}

// NewLogger builds a logger writing to w: colored text through tint for the
// "text" format, JSON otherwise.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: l.AddSource,
			Level:     l.SlogLevel(),
		}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		AddSource:  l.AddSource,
		Level:      l.SlogLevel(),
		TimeFormat: time.Kitchen,
		NoColor:    l.NoColor,
	}))
}

func (l LoggingConfig) validate() ValidationErrors {
	return CollectErrors(
		RequireOneOf("LOG_LEVEL", strings.ToLower(l.Level), []string{"debug", "info", "warn", "error"}),
		RequireOneOf("LOG_FORMAT", strings.ToLower(l.Format), []string{"text", "json"}),
	)
}
