// Package ui provides the terminal storefront for kanvas.
// This file implements the BackgroundWorker that reloads the catalog when
// the database changes.
package ui

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/kanvas/pkg/analysis"
	"github.com/vanderheijden86/kanvas/pkg/filter"
	"github.com/vanderheijden86/kanvas/pkg/logging/events"
	"github.com/vanderheijden86/kanvas/pkg/model"
	"github.com/vanderheijden86/kanvas/pkg/watcher"
)

// WorkerState is the lifecycle phase of the catalog worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for database changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is reloading the catalog.
	WorkerProcessing
	// WorkerStopped is terminal.
	WorkerStopped
)

// WorkerError is a failed reload, tagged with the phase that failed.
type WorkerError struct {
	Phase   string    // "load", "build"
	Cause   error
	Time    time.Time
	Retries int       // Number of consecutive failures
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// Sender delivers messages to the running program; *tea.Program is one.
type Sender interface {
	Send(msg tea.Msg)
}

// CatalogSnapshot is one loaded state of the category hierarchy.
type CatalogSnapshot struct {
	Categories []model.Category
	Tree       *filter.Tree
	Hash       string
	LoadedAt   time.Time
}

// CatalogReadyMsg is sent when the category hierarchy changed. The filter
// selection must be reset and listings refetched.
type CatalogReadyMsg struct {
	Snapshot *CatalogSnapshot
}

// CatalogTouchedMsg is sent when the database changed but the categories
// did not; only listings need a refetch.
type CatalogTouchedMsg struct{}

// CatalogErrorMsg is sent when reloading fails. Report is set when the
// stored hierarchy is malformed.
type CatalogErrorMsg struct {
	Err         *WorkerError
	Report      *analysis.Report
	Recoverable bool // True if we expect to recover on next change
}

// BackgroundWorker owns the database watcher, coalesces change bursts and
// rebuilds the filter tree off the UI goroutine.
type BackgroundWorker struct {
	// Configuration
	catalog Catalog
	dbPath  string

	// State
	mu       sync.RWMutex
	state    WorkerState
	dirty    bool // change arrived during a reload
	snapshot *CatalogSnapshot
	started  bool
	lastHash string // Content hash of the last loaded categories
	rejected []model.Category // Categories of the last failed build

	// Error tracking
	lastError  *WorkerError
	errorCount int

	// Components
	watcher *watcher.Watcher
	sender  Sender

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig holds the catalog source and the optional DB path to watch.
type WorkerConfig struct {
	Catalog       Catalog
	DBPath        string // watched for changes; empty disables watching
	DebounceDelay time.Duration
	Sender        Sender
}

// NewBackgroundWorker returns an idle worker. Catalog is required.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("background worker needs a catalog")
	}
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = 200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &BackgroundWorker{
		catalog: cfg.Catalog,
		dbPath:  cfg.DBPath,
		sender:  cfg.Sender,
		state:   WorkerIdle,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if cfg.DBPath != "" {
		fw, err := watcher.New(cfg.DBPath, cfg.DebounceDelay)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}
	return w, nil
}

// SetSender attaches the program once it exists.
func (w *BackgroundWorker) SetSender(s Sender) {
	w.mu.Lock()
	w.sender = s
	w.mu.Unlock()
}

// Start begins watching for database changes.
// Calling Start twice is a no-op.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil // Already started
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher != nil {
		if err := w.watcher.Start(w.ctx); err != nil {
			return err
		}
		go w.processLoop()
	} else {
		// Nothing to wait for in Stop.
		close(w.done)
	}
	return nil
}

// Stop cancels the watcher and waits briefly for the loop to exit.
// Later calls do nothing.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	if w.watcher != nil {
		w.watcher.Stop()
	}

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
			log.Printf("warning: catalog worker did not stop in time")
		}
	}
}

// Load performs one synchronous reload; used at startup before the program
// runs. Unlike the watcher path it returns its result directly.
func (w *BackgroundWorker) Load() (*CatalogSnapshot, error) {
	snap, changed, werr := w.buildSnapshot()
	if werr != nil {
		return nil, werr
	}
	if changed {
		w.mu.Lock()
		w.snapshot = snap
		w.mu.Unlock()
	}
	return w.GetSnapshot(), nil
}

// TriggerRefresh manually triggers a reload.
// Has no effect if the worker is stopped; coalesces while processing.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	go w.process()
}

// GetSnapshot returns the last good snapshot, or nil.
func (w *BackgroundWorker) GetSnapshot() *CatalogSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// State reports the lifecycle phase.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// processLoop turns watcher signals into reloads.
func (w *BackgroundWorker) processLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.process()
		}
	}
}

// process reloads the catalog and notifies the UI.
func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			// The running reload picks this up when it finishes.
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	snap, changed, werr := w.buildSnapshot()

	w.mu.Lock()
	// Stop may have run meanwhile.
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if changed {
		w.snapshot = snap
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	sender := w.sender
	rejected := w.rejected
	w.mu.Unlock()

	if sender != nil {
		switch {
		case werr != nil:
			sender.Send(CatalogErrorMsg{Err: werr, Report: reportFor(werr, rejected), Recoverable: true})
		case changed:
			sender.Send(CatalogReadyMsg{Snapshot: snap})
		default:
			sender.Send(CatalogTouchedMsg{})
		}
	}

	if wasDirty {
		go w.process()
	}
}

// safeCompute runs fn, turning a panic into a WorkerError for phase.
// Returns a WorkerError if fn panics or fails, nil otherwise.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
		}
	}()
	return result
}

// recordError stores err and counts consecutive failures.
func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// LastError is nil after a successful reload.
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// buildSnapshot loads the categories and builds a new tree. changed is
// false when the categories hash to the last loaded content.
func (w *BackgroundWorker) buildSnapshot() (*CatalogSnapshot, bool, *WorkerError) {
	start := time.Now()

	var cats []model.Category
	if werr := w.safeCompute("load", func() error {
		ctx, cancel := context.WithTimeout(w.ctx, 10*time.Second)
		defer cancel()
		var err error
		cats, err = w.catalog.Categories(ctx)
		return err
	}); werr != nil {
		log.Printf("buildSnapshot: error loading categories: %v", werr)
		w.recordError(werr)
		return nil, false, werr
	}

	hash, err := hashCategories(cats)
	if err != nil {
		werr := &WorkerError{Phase: "load", Cause: err, Time: time.Now()}
		w.recordError(werr)
		return nil, false, werr
	}

	w.mu.RLock()
	lastHash := w.lastHash
	w.mu.RUnlock()
	if hash == lastHash && lastHash != "" {
		log.Printf("buildSnapshot: categories unchanged (hash=%s)", hashPrefix(hash))
		w.recordError(nil)
		events.Catalog.Reload(len(cats), false)
		return nil, false, nil
	}

	var tree *filter.Tree
	if werr := w.safeCompute("build", func() error {
		var err error
		tree, err = filter.BuildFromCategories(cats)
		return err
	}); werr != nil {
		log.Printf("buildSnapshot: category tree rejected: %v", werr)
		w.recordError(werr)
		w.mu.Lock()
		w.rejected = cats
		w.mu.Unlock()
		return nil, false, werr
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.rejected = nil
	w.mu.Unlock()

	log.Printf("buildSnapshot: loaded %d categories (total=%v, hash=%s)", len(cats), time.Since(start), hashPrefix(hash))
	events.Catalog.Reload(len(cats), true)
	return &CatalogSnapshot{Categories: cats, Tree: tree, Hash: hash, LoadedAt: time.Now()}, true, nil
}

// reportFor explains a malformed hierarchy; other errors get no report.
func reportFor(werr *WorkerError, cats []model.Category) *analysis.Report {
	var malformed *filter.MalformedTreeError
	if werr == nil || !errors.As(werr, &malformed) {
		return nil
	}
	return analysis.AnalyzeCategories(cats, analysis.DefaultCycleBreakLimit)
}

// hashCategories fingerprints the category rows.
func hashCategories(cats []model.Category) (string, error) {
	data, err := json.Marshal(cats)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// LastHash returns the content hash from the last successful build.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// hashPrefix shortens a hash for log lines.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// ResetHash clears the stored content hash, forcing the next reload to
// rebuild even if the categories are unchanged.
func (w *BackgroundWorker) ResetHash() {
	w.mu.Lock()
	w.lastHash = ""
	w.mu.Unlock()
}
