// Package glog is the structured-logging convention shared by every package
// in this module. It mirrors the gnark logger package's
// Logger().With()...Logger() idiom so call sites read the same way they do
// in the teacher codebase, backed by zerolog.
package glog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// Logger returns the shared base logger. Callers derive a scoped logger with
// With()...Logger(), e.g.:
//
//	log := glog.Logger().With().Str("component", "dispatcher").Int("device", idx).Logger()
//	log.Info().Msg("chunk dispatched")
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// SetOutput redirects the base logger to w, in zerolog's JSON format rather
// than the console format. Loggers obtained from Logger() before the call
// keep their old output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = base.Output(w)
}

// SetLevel adjusts the global minimum level, mirroring zerolog's own
// package-level SetGlobalLevel but scoped to this module's base logger.
func SetLevel(lvl zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	base = base.Level(lvl)
}
