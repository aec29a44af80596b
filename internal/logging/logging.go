// Package logging builds logrus loggers that write through hal.Logger.
package logging

import (
	"bytes"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	"dayplan/hal"
)

// New returns a logger at level whose lines go to out. Timestamps are only
// useful where the board has a wall clock.
func New(out hal.Logger, level log.Level, timestamps bool) *log.Logger {
	l := log.New()
	l.SetLevel(level)
	l.SetFormatter(&log.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: !timestamps,
		FullTimestamp:    timestamps,
	})
	if out == nil {
		l.SetOutput(io.Discard)
		return l
	}
	l.SetOutput(NewLineWriter(out))
	return l
}

// Discard is a logger that drops everything.
func Discard() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

// LineWriter splits writes on '\n' and forwards each complete line.
type LineWriter struct {
	mu  sync.Mutex
	out hal.Logger
	buf []byte
}

func NewLineWriter(out hal.Logger) *LineWriter { return &LineWriter{out: out} }

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.out.WriteLineString(string(bytes.TrimRight(w.buf[:i], "\r")))
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}
	return len(p), nil
}

// Flush forwards a trailing partial line, if any.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.out.WriteLineString(string(w.buf))
		w.buf = nil
	}
}
