// Package watcher reports changes to a file, coalescing bursts of writes.
//
// The directory holding the file is watched rather than the file itself so
// that atomic renames and SQLite side files (-wal, -journal) are seen.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher emits one signal on Changed() per quiet period after the watched
// file (or one of its side files) is written, created, renamed or removed.
type Watcher struct {
	path     string
	base     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	changed chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New creates a watcher for path. A debounce of zero signals on every event.
func New(path string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		path:     abs,
		base:     filepath.Base(abs),
		debounce: debounce,
		watcher:  fw,
		changed:  make(chan struct{}, 1),
	}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Changed delivers change signals. Signals never queue up: at most one is
// pending at any time.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Start begins watching until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("watcher for %s already started", w.path)
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.started = true
	go w.loop(ctx)
	return nil
}

// Stop shuts the watcher down and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	w.watcher.Close()
}

// matches reports whether name is the watched file or one of its side files.
func (w *Watcher) matches(name string) bool {
	b := filepath.Base(name)
	return b == w.base || strings.HasPrefix(b, w.base+"-")
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Errors are logged but don't stop the watcher
			log.Printf("warning: watching %s: %v", w.path, err)
		}
	}
}

// schedule restarts the debounce timer; the signal fires once the file has
// been quiet for the debounce period.
func (w *Watcher) schedule() {
	if w.debounce <= 0 {
		w.signal()
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.signal)
}

func (w *Watcher) signal() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
