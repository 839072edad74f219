// backend-go/pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// Default to console output with color
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}

	setLogger(zerolog.New(output).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Caller().
		Logger())
}

// SetLevel sets the log level. Server modes ("debug", "release") are accepted
// as aliases so the server mode can drive verbosity.
func SetLevel(levelStr string) {
	switch levelStr {
	case "release":
		levelStr = "info"
	case "":
		levelStr = "info"
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	setLogger(Log.Level(level))
}

// UseJSON switches to structured JSON output, used when running under a
// process supervisor that ships logs.
func UseJSON(w io.Writer) {
	setLogger(zerolog.New(w).
		Level(Log.GetLevel()).
		With().
		Timestamp().
		Caller().
		Logger())
}

// setLogger keeps logger.Log and the zerolog/log global in sync so packages
// can use either.
func setLogger(l zerolog.Logger) {
	Log = l
	log.Logger = l
}
