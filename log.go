package phasor

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// logger holds the package logger. Diagnostics only; never used on hot paths.
var logger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	logger.Store(&l)
}

// SetLogger replaces the logger used for framework diagnostics such as the
// broadcast-channel drop warning and plugin cleanup failures.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

// SetLogLevel adjusts the level of the package logger.
func SetLogLevel(level zerolog.Level) {
	l := logger.Load().Level(level)
	logger.Store(&l)
}

func log() *zerolog.Logger {
	return logger.Load()
}
