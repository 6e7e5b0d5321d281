// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level and destination of the process logger.
type Config struct {
	Level      string `toml:"level" json:"level"`
	Debug      bool   `toml:"debug" json:"debug"`
	Output     string `toml:"output" json:"output"`
	TimeFormat string `toml:"time_format" json:"time_format"`
}

// DefaultConfig logs info and above to stdout.
func DefaultConfig() Config {
	return Config{Level: "info", Output: "stdout"}
}

// Init builds the root logger described by cfg.
func Init(cfg Config) (zerolog.Logger, error) {
	return New(cfg, nil)
}

// New is Init with an explicit writer; w overrides cfg.Output when non-nil.
func New(cfg Config, w io.Writer) (zerolog.Logger, error) {
	output := w
	if output == nil {
		output = os.Stdout
		if cfg.Output == "stderr" {
			output = os.Stderr
		}
	}

	level := zerolog.InfoLevel

	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

// WithComponent tags every event of l with the component name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// Nop discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
