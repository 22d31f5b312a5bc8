package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitChange(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Changed():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcherDetectsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("v2 longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitChange(t, w, 5*time.Second) {
		t.Fatal("no change signal after write")
	}
}

func TestWatcherDetectsAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.db")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	// Rename-into-place, the way the snapshot store saves.
	tmp := filepath.Join(dir, ".tmp-snapshot")
	if err := os.WriteFile(tmp, []byte("v2 replacement"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	if !waitChange(t, w, 5*time.Second) {
		t.Fatal("no change signal after atomic replace")
	}
}

func TestWatcherPollingMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	os.WriteFile(path, []byte("v1"), 0o644)

	var changes int
	w, err := New(path,
		WithForcePoll(true),
		WithPollInterval(20*time.Millisecond),
		WithDebounce(10*time.Millisecond),
		WithOnChange(func() { changes++ }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("forced polling not active")
	}

	time.Sleep(30 * time.Millisecond)
	os.WriteFile(path, []byte("v2 with different size"), 0o644)

	if !waitChange(t, w, 5*time.Second) {
		t.Fatal("no change signal in polling mode")
	}
}

func TestWatcherFileCreation(t *testing.T) {
	// The file may not exist yet at Start; creation counts as a change.
	path := filepath.Join(t.TempDir(), "snapshot.db")

	w, err := New(path,
		WithForcePoll(true),
		WithPollInterval(20*time.Millisecond),
		WithDebounce(10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	os.WriteFile(path, []byte("created"), 0o644)

	if !waitChange(t, w, 5*time.Second) {
		t.Fatal("no change signal after creation")
	}
}

func TestWatcherStartTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	w, err := New(path, WithForcePoll(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err != ErrAlreadyStarted {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestWatcherStopSilences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	os.WriteFile(path, []byte("v1"), 0o644)

	w, _ := New(path, WithForcePoll(true), WithPollInterval(10*time.Millisecond), WithDebounce(5*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()

	os.WriteFile(path, []byte("v2 after stop"), 0o644)
	if waitChange(t, w, 100*time.Millisecond) {
		t.Error("stopped watcher still signalled")
	}
}
