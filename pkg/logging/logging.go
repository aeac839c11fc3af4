// Package logging routes the standard logger to a file and writes opt-in
// structured trace entries next to it. The terminal belongs to the TUI, so
// nothing here ever writes to stdout.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

var (
	mu           sync.Mutex
	traceEnabled bool
	logPath      string
	logFile      *os.File
)

// Configure sends the standard logger to path, creating missing
// directories. An empty path discards log output.
func Configure(path string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	if strings.TrimSpace(path) == "" {
		log.SetOutput(io.Discard)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.SetOutput(io.Discard)
		return fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.SetOutput(io.Discard)
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f
	logPath = path
	log.SetOutput(f)
	return nil
}

// Close flushes and releases the log file; later log output is discarded.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	err := closeLocked()
	log.SetOutput(io.Discard)
	return err
}

func closeLocked() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	logPath = ""
	return err
}

// Path returns the active log file, or "".
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// SetTraceEnabled toggles emission of structured trace entries.
func SetTraceEnabled(enabled bool) {
	mu.Lock()
	traceEnabled = enabled
	mu.Unlock()
}

// Error logs err if it is non-nil.
func Error(err error) {
	if err == nil {
		return
	}
	log.Println(err)
}

// Trace appends a JSON line to the log file when tracing is enabled.
func Trace(event string, payload any) {
	mu.Lock()
	defer mu.Unlock()
	if !traceEnabled || logFile == nil {
		return
	}

	entry := struct {
		Time    time.Time `json:"time"`
		Event   string    `json:"event"`
		Payload any       `json:"payload,omitempty"`
	}{
		Time:    time.Now().UTC(),
		Event:   event,
		Payload: payload,
	}

	if err := json.NewEncoder(logFile).Encode(entry); err != nil {
		fmt.Fprintf(os.Stderr, "trace encoding failed: %v\n", err)
	}
}
