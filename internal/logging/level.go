// Package logging filters the standard logger by level. Call sites keep
// using log.Printf with an "INFO:", "WARN:" or "ERROR:" tag; lines without a
// tag count as info.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// Level orders log lines by severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var tags = []struct {
	tag   []byte
	level Level
}{
	{[]byte("DEBUG:"), LevelDebug},
	{[]byte("INFO:"), LevelInfo},
	{[]byte("WARN:"), LevelWarn},
	{[]byte("ERROR:"), LevelError},
}

// ParseLevel maps a LOG_LEVEL value to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// levelOf returns the level of the earliest tag in line.
func levelOf(line []byte) Level {
	level, at := LevelInfo, -1
	for _, t := range tags {
		if i := bytes.Index(line, t.tag); i >= 0 && (at < 0 || i < at) {
			level, at = t.level, i
		}
	}
	return level
}

// Writer passes through lines at or above its threshold.
type Writer struct {
	mu        sync.Mutex
	out       io.Writer
	threshold Level
}

// NewWriter wraps out.
func NewWriter(out io.Writer, threshold Level) *Writer {
	return &Writer{out: out, threshold: threshold}
}

func (w *Writer) Write(p []byte) (int, error) {
	if levelOf(p) < w.threshold {
		return len(p), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Setup installs a level filter on the standard logger writing to out.
// An unknown level falls back to info and is reported.
func Setup(out io.Writer, level string) error {
	threshold, err := ParseLevel(level)
	log.SetOutput(NewWriter(out, threshold))
	return err
}
