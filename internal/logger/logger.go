package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitializeLogger configures the global logger. Output always goes to
// stderr so that stdout carries only rendered documents.
func InitializeLogger(logLevel zerolog.Level, prettyPrint bool) {
	initialize(os.Stderr, logLevel, prettyPrint)
}

func initialize(out io.Writer, logLevel zerolog.Level, prettyPrint bool) {
	zerolog.SetGlobalLevel(logLevel)
	zerolog.DurationFieldUnit = time.Millisecond
	if prettyPrint {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
	log.Debug().Msgf("log-level '%v'", logLevel.String())
}
