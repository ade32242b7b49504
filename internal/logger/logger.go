// Package logger builds the root zerolog instance every component derives
// its own sub-logger from (via log.With().Str("component", ...)).
package logger

import (
	"io"
	"os"
	"time"

	"github.com/examforge/exams-service/internal/config"
	"github.com/rs/zerolog"
)

// serviceName tags every entry so the platform's shared log pipeline can
// split streams per service.
const serviceName = "exams-service"

// Setup configures the root logger from config. LogFormat "pretty" is for
// local development; anything else emits JSON for the log pipeline. An
// unparseable LogLevel falls back to info.
func Setup(cfg *config.Config) zerolog.Logger {
	var writer io.Writer = os.Stdout
	if cfg.LogFormat == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()
}
