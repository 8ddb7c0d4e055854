// Package monitoring holds the diagnostic logger and metrics shared by the
// regridding pipeline.
package monitoring

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Logf is the package-level diagnostic logger. It defaults to an info-level
// zerolog event but may be replaced by SetLogger. Tests or production code
// can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultLogf

func defaultLogf(format string, v ...interface{}) {
	l := Logger()
	l.Info().Msg(fmt.Sprintf(format, v...))
}

// SetLogger replaces the package printf logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Logger returns the structured logger.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// SetZerolog replaces the structured logger.
func SetZerolog(l zerolog.Logger) {
	mu.Lock()
	base = l
	mu.Unlock()
}

// SetOutput points the structured logger at w at the given level. A console
// writer is used when console is true.
func SetOutput(w io.Writer, level zerolog.Level, console bool) {
	if console {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	SetZerolog(zerolog.New(w).With().Timestamp().Logger().Level(level))
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}
