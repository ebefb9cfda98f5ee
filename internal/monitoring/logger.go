// Package monitoring holds the process-wide diagnostic logger used by the
// solver and location packages. The command-line tool routes it into zap.
package monitoring

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs through Logf with the "WARNING:" prefix that downstream
// loggers use to pick the warn level.
func Warnf(format string, v ...interface{}) {
	Logf("WARNING: "+format, v...)
}

// Recorder collects formatted log lines. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Logf records one formatted line.
func (r *Recorder) Logf(format string, v ...interface{}) {
	line := strings.TrimRight(fmt.Sprintf(format, v...), "\n")
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Contains reports whether any recorded line contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, l := range r.Lines() {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// Capture installs a Recorder as the package logger and returns it together
// with a function restoring the previous logger.
func Capture() (*Recorder, func()) {
	prev := Logf
	r := &Recorder{}
	Logf = r.Logf
	return r, func() { Logf = prev }
}
