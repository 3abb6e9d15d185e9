package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNew_RequiresCallback(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Paths: []string{"/tmp/x.yaml"}}); err == nil {
		t.Error("New() without OnChange should fail")
	}
}

func TestWatcher_DispatchesDebouncedChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	if err := os.WriteFile(path, []byte("jobs: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var changed []string
	done := make(chan struct{})

	w, err := New(Config{
		Paths:    []string{path},
		Debounce: 50 * time.Millisecond,
		OnChange: func(p string) error {
			mu.Lock()
			changed = append(changed, p)
			mu.Unlock()
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// A burst of writes should collapse into one callback.
	for range 3 {
		if err := os.WriteFile(path, []byte("jobs: [] # touched\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no change dispatched")
	}

	// Let any stray extra dispatches land, then count.
	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(changed) != 1 {
		t.Errorf("got %d dispatches, want 1 (debounced)", len(changed))
	}
	if changed[0] != filepath.Clean(path) {
		t.Errorf("changed path = %q, want %q", changed[0], path)
	}
}

func TestWatcher_IgnoresUnwatchedSiblings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	watched := filepath.Join(dir, "jobs.yaml")
	sibling := filepath.Join(dir, "other.yaml")
	for _, p := range []string{watched, sibling} {
		if err := os.WriteFile(p, []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fired := make(chan string, 4)
	w, err := New(Config{
		Paths:    []string{watched},
		Debounce: 30 * time.Millisecond,
		OnChange: func(p string) error {
			fired <- p
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := os.WriteFile(sibling, []byte("y\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-fired:
		t.Errorf("sibling write dispatched %q", p)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(Config{
		Paths:    []string{path},
		OnChange: func(string) error { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop on cancel")
	}
}
