// Package logger builds the zerolog logger shared by the server, the CLI and
// the ORM query observer.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/deicod/querystudy/internal/config"
	"github.com/deicod/querystudy/orm/runtime"
)

// New returns a logger writing to w. Development environments get the
// console writer unless the config asks for JSON.
func New(cfg config.LogConfig, env string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	format := cfg.Format
	if format == "" {
		format = "json"
		if env == "local" || env == "dev" || env == "test" {
			format = "console"
		}
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("env", env).Logger(), nil
}

// SQLLevel parses the pgx statement log level. ok is false when statement
// logging is disabled.
func SQLLevel(cfg config.LogConfig) (zerolog.Level, bool) {
	if cfg.SQLLevel == "" || cfg.SQLLevel == "none" {
		return zerolog.Disabled, false
	}
	level, err := zerolog.ParseLevel(cfg.SQLLevel)
	if err != nil {
		return zerolog.Disabled, false
	}
	return level, true
}

// QueryLogger forwards ORM query events to log. Successful statements log at
// debug, failures at error.
func QueryLogger(log zerolog.Logger) runtime.QueryLogger {
	return runtime.QueryLoggerFunc(func(ctx context.Context, entry runtime.QueryLog) {
		ev := log.Debug()
		if entry.Err != nil {
			ev = log.Error().Err(entry.Err)
		}
		if !ev.Enabled() {
			return
		}
		ev = ev.Str("operation", string(entry.Operation)).
			Str("table", entry.Table).
			Str("sql", entry.SQL).
			Int("args", len(entry.Args)).
			Dur("duration", entry.Duration)
		if entry.CorrelationID != "" {
			ev = ev.Str("request_id", entry.CorrelationID)
		}
		ev.Msg("orm query")
	})
}
