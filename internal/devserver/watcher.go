package devserver

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 100 * time.Millisecond

// skipDirs are never watched.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Watcher reports batches of changed files below a set of directories.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce func(func())
	ignore   []string

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewWatcher watches dirs recursively. Paths under any of the ignore
// directories, such as the build output, are not reported.
func NewWatcher(dirs []string, ignore []string, delay time.Duration) (*Watcher, error) {
	if delay <= 0 {
		delay = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce.New(delay),
		pending:  map[string]struct{}{},
	}
	for _, dir := range ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}

	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// Run delivers changes to onChange until ctx is done. onChange receives
// each debounced batch sorted by path and is never called concurrently.
func (w *Watcher) Run(ctx context.Context, onChange func([]string)) error {
	log := zerolog.Ctx(ctx)
	defer w.fsw.Close()
	// replace a pending flush so nothing fires after Run returns
	defer w.debounce(func() {})

	var calls sync.Mutex
	flush := func() {
		if ctx.Err() != nil {
			return
		}
		changed := w.drain()
		if len(changed) == 0 {
			return
		}
		calls.Lock()
		defer calls.Unlock()
		onChange(changed)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						log.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch new directory")
					}
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}

			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("File changed")

			w.mu.Lock()
			w.pending[event.Name] = struct{}{}
			w.mu.Unlock()

			w.debounce(flush)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := make([]string, 0, len(w.pending))
	for name := range w.pending {
		changed = append(changed, name)
	}
	clear(w.pending)

	sort.Strings(changed)
	return changed
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (skipDirs[d.Name()] || w.ignored(path)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// stylesheetOnly reports whether every changed file is a stylesheet.
func stylesheetOnly(changed []string) bool {
	if len(changed) == 0 {
		return false
	}
	for _, name := range changed {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".css", ".scss", ".sass":
		default:
			return false
		}
	}
	return true
}
