package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func InitLogger(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// HelperLogger tags every line with the helper operation and its command
// line, so output of concurrent helper processes can be told apart.
func HelperLogger(op, command string) zerolog.Logger {
	return log.With().Str("op", op).Str("helper", command).Logger()
}

// SetLogOutput redirects the global logger, used while the progress display
// owns the terminal.
func SetLogOutput(w io.Writer) {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// LogToFile appends log output to path. The caller closes the file.
func LogToFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	SetLogOutput(f)
	return f, nil
}
