package bias

import(
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// Logger returns the package logger.
func Logger() zerolog.Logger {
	return logger
}

// SetLogger replaces the package logger, e.g. to silence it in tests
// or route it through a front-end's writer.
func SetLogger(l zerolog.Logger) {
	logger = l
}
