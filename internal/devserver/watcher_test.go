package devserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_BatchesChanges(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	out := filepath.Join(src, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.MkdirAll(out, 0o755))

	w, err := NewWatcher([]string{src}, []string{out}, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(changed []string) { batches <- changed })
	}()

	require.NoError(t, os.WriteFile(filepath.Join(out, "ignored.js"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.css"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "b.js"), []byte("b"), 0o600))

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case batch := <-batches:
			for _, name := range batch {
				seen[filepath.Base(name)] = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for changes, saw %v", seen)
		}
	}

	require.True(t, seen["a.css"])
	require.True(t, seen["b.js"])
	require.False(t, seen["ignored.js"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	src := t.TempDir()

	w, err := NewWatcher([]string{src}, nil, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 10)
	go func() { _ = w.Run(ctx, func(changed []string) { batches <- changed }) }()

	dir := filepath.Join(src, "components")
	require.NoError(t, os.Mkdir(dir, 0o755))

	// wait for the directory itself to be reported so it is being watched
	select {
	case <-batches:
	case <-time.After(5 * time.Second):
		t.Fatal("directory creation not reported")
	}

	target := filepath.Join(dir, "button.js")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, name := range batch {
				if name == target {
					return
				}
			}
		case <-deadline:
			t.Fatal("change in new directory not reported")
		}
	}
}

func TestStylesheetOnly(t *testing.T) {
	tests := []struct {
		name    string
		changed []string
		want    bool
	}{
		{name: "empty", changed: nil, want: false},
		{name: "css", changed: []string{"src/a.css"}, want: true},
		{name: "mixed sass", changed: []string{"src/a.SCSS", "src/b.sass", "src/c.css"}, want: true},
		{name: "script", changed: []string{"src/a.css", "src/index.js"}, want: false},
		{name: "html", changed: []string{"src/index.html"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, stylesheetOnly(tt.changed))
		})
	}
}

func TestWatcher_NoChangesAfterStop(t *testing.T) {
	src := t.TempDir()

	w, err := NewWatcher([]string{src}, nil, 300*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	batches := make(chan []string, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(changed []string) { batches <- changed })
	}()

	require.NoError(t, os.WriteFile(filepath.Join(src, "late.js"), []byte("x"), 0o600))

	// let the event reach the watcher while the debounce timer is still pending
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.pending) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	select {
	case batch := <-batches:
		t.Fatalf("change reported after stop: %v", batch)
	case <-time.After(600 * time.Millisecond):
	}
}
