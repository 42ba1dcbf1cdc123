package logging

import (
	"log/slog"
	"os"
)

// Name is the name of the application that the logger is for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// name is the application name appended to every record.
	name Name

	// w is the destination for log output.
	w *os.File

	// level is the minimum level to log at.
	level slog.Level
}

// NewConfig creates a new logging configuration with default values.
func NewConfig(name Name) *Config {
	return &Config{
		name:  name,
		w:     os.Stdout,
		level: slog.LevelDebug,
	}
}

// CommonLogger creates the common logger for the application.
func CommonLogger(c *Config) (*slog.Logger, error) {
	h := slog.NewJSONHandler(c.w, &slog.HandlerOptions{
		Level: c.level,
	})

	l := slog.New(h).With(slog.String(KeyAppName, string(c.name)))
	slog.SetDefault(l)
	return l, nil
}
