package assets

import (
	"encoding/json"
	"os"
	"sync"
)

// Manifest maps logical asset names to the files emitted for them.
// It is safe for concurrent use.
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// Lookup returns the file emitted for source.
func (m *Manifest) Lookup(source string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resolved, ok := m.entries[source]
	return resolved, ok
}

func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[source] = resolved
}

func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// Write stores the manifest as indented JSON.
func (m *Manifest) Write(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.entries, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644) //nolint:gosec
}
