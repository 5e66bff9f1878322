package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger writing to stdout, as JSON or through the
// console writer.
func New(logLevel int, logFormat string) zerolog.Logger {
	return NewWithWriter(os.Stdout, logLevel, logFormat)
}

func NewWithWriter(out io.Writer, logLevel int, logFormat string) zerolog.Logger {
	writer := out
	if logFormat != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		Level(zerolog.Level(logLevel)).
		With().
		Timestamp().
		Str("service", "relayd").
		Logger()
}
