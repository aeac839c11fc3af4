package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForSignal(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Changed():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcherSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kanvas.db")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if !waitForSignal(t, w, 2*time.Second) {
		t.Fatal("expected a change signal after writes")
	}
	// The burst collapses into one signal.
	if waitForSignal(t, w, 300*time.Millisecond) {
		t.Error("expected writes to be coalesced into a single signal")
	}
}

func TestWatcherSideFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kanvas.db")

	w, err := New(path, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if waitForSignal(t, w, 200*time.Millisecond) {
		t.Fatal("unrelated file should not signal")
	}

	if err := os.WriteFile(filepath.Join(dir, "kanvas.db-wal"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitForSignal(t, w, 2*time.Second) {
		t.Fatal("expected a signal for the WAL side file")
	}
}

func TestWatcherMatches(t *testing.T) {
	w := &Watcher{base: "kanvas.db"}
	tests := map[string]bool{
		"/x/kanvas.db":         true,
		"/x/kanvas.db-journal": true,
		"/x/kanvas.db-wal":     true,
		"/x/kanvas.dbx":        false,
		"/x/other.db":          false,
	}
	for name, want := range tests {
		if got := w.matches(name); got != want {
			t.Errorf("matches(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWatcherStartTwice(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "kanvas.db"), 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()
	if err := w.Start(ctx); err == nil {
		t.Error("expected error on second Start")
	}
}
