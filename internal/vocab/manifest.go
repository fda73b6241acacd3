package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 1

	// ManifestFilename is the default manifest filename
	ManifestFilename = "manifest.json"
)

// Manifest stores the sync state of all sources.
type Manifest struct {
	Version  int                    `json:"version"`
	LastSync time.Time              `json:"last_sync"`
	Sources  map[string]SourceState `json:"sources"`
	mu       sync.RWMutex           `json:"-"`
}

// SourceState stores the sync state of a single source.
type SourceState struct {
	Path            string    `json:"path"`
	Fingerprint     string    `json:"fingerprint"`
	LastIndexed     time.Time `json:"last_indexed"`
	FileCount       int       `json:"file_count"`
	VocabularyCount int       `json:"vocabulary_count"`
	TermCount       int       `json:"term_count"`
	Error           string    `json:"error,omitempty"`
}

// NewManifest creates a new empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Sources: make(map[string]SourceState),
	}
}

// LoadManifest reads a manifest from disk, or creates a new one if it doesn't exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Sources == nil {
		manifest.Sources = make(map[string]SourceState)
	}

	return &manifest, nil
}

// Save writes the manifest to disk atomically through a temporary file.
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}

	return nil
}

// State returns the state of a source and whether it is recorded.
func (m *Manifest) State(sourceID string) (SourceState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.Sources[sourceID]
	return state, ok
}

// SetSourceState records the state of a source.
func (m *Manifest) SetSourceState(sourceID string, state SourceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sources[sourceID] = state
}

// SetSourceError records a failed sync, keeping the last good state.
func (m *Manifest) SetSourceError(sourceID, path, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.Sources[sourceID]
	state.Path = path
	state.Error = msg
	m.Sources[sourceID] = state
}

// SourceIDs returns the recorded source IDs, sorted.
func (m *Manifest) SourceIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.Sources))
	for id := range m.Sources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// RemoveStaleSources drops sources whose ID is not in ids and returns the
// removed IDs.
func (m *Manifest) RemoveStaleSources(ids []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id := range m.Sources {
		if !slices.Contains(ids, id) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(m.Sources, id)
	}
	slices.Sort(removed)

	return removed
}

// SourceErrors returns the sources whose last sync failed.
func (m *Manifest) SourceErrors() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string)
	for id, state := range m.Sources {
		if state.Error != "" {
			result[id] = state.Error
		}
	}
	return result
}

// UpdateLastSync updates the last sync timestamp.
func (m *Manifest) UpdateLastSync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastSync = time.Now()
}

// NeedsSync returns true if interval has passed since the last sync.
func (m *Manifest) NeedsSync(interval time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.LastSync.IsZero() {
		return true
	}
	return time.Since(m.LastSync) >= interval
}

// Replace overwrites the recorded state with that of other, typically a copy
// freshly loaded from disk.
func (m *Manifest) Replace(other *Manifest) {
	other.mu.RLock()
	lastSync := other.LastSync
	sources := make(map[string]SourceState, len(other.Sources))
	for id, state := range other.Sources {
		sources[id] = state
	}
	other.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastSync = lastSync
	m.Sources = sources
}
