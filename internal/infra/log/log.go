package log

import (
	"os"

	"github.com/rs/zerolog"

	"dexroute/internal/config"
)

type Logger = zerolog.Logger

// NewLogger builds the process logger from config. Level falls back to info
// on an unparseable value rather than failing startup.
func NewLogger(cfg config.Config) Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out = os.Stderr
	l := zerolog.New(out).With().Timestamp().Logger().Level(level)
	if cfg.Logging.Pretty {
		l = l.Output(zerolog.ConsoleWriter{Out: out})
	}
	return l
}
