package vocab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/sha1n/mcp-vocab-server/internal/config"
	"github.com/sha1n/mcp-vocab-server/internal/metrics"
)

const (
	// LockFilename is the name of the sync lock file
	LockFilename = "sync.lock"

	// MaxParallelSyncs is the maximum number of concurrent source syncs
	MaxParallelSyncs = 4
)

var (
	// ErrNotReady indicates no index is available for search yet
	ErrNotReady = errors.New("vocabulary indexes are not ready")
)

// Option configures a Service.
type Option func(*Service)

// WithRecorder records search and sync metrics.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// SourceStatus is the sync state of a configured source.
type SourceStatus struct {
	Source
	State   SourceState
	Indexed bool
}

// Service coordinates loading, indexing and search of vocabulary sources.
type Service struct {
	settings *config.VocabularySettings
	sources  []Source
	indexer  *Indexer
	filter   *FileFilter
	manifest *Manifest
	lock     *SyncLock
	recorder *metrics.Recorder
	logger   *slog.Logger

	alias   *SourceIndexes
	ready   bool
	mu      sync.RWMutex
	resyncs sync.Mutex
}

// NewService creates a vocabulary service. Sources must exist.
func NewService(settings *config.VocabularySettings, opts ...Option) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	sources, err := ResolveSources(settings.Sources)
	if err != nil {
		return nil, err
	}

	indexesDir := filepath.Join(settings.BaseDir, "indexes")
	if err := os.MkdirAll(indexesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create indexes directory: %w", err)
	}

	manifest, err := LoadManifest(filepath.Join(settings.BaseDir, ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	s := &Service{
		settings: settings,
		sources:  sources,
		indexer:  NewIndexer(settings.BaseDir, settings.LanguageTag()),
		filter:   NewFileFilter(settings.MaxFileSize),
		manifest: manifest,
		lock:     NewSyncLock(filepath.Join(settings.BaseDir, LockFilename)),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Initialize syncs the sources and opens the indexes. When another process
// holds the sync lock, it waits up to the sync timeout for that process to
// finish and then opens whatever indexes exist.
func (s *Service) Initialize(ctx context.Context) error {
	acquired, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if acquired {
		s.logger.Info("Acquired sync leader lock, starting sync")
		s.syncLocked(ctx)
	} else {
		s.logger.Info("Another instance is syncing, waiting for completion")
		if err := s.lock.LockWithContext(ctx, s.settings.SyncTimeout); err != nil {
			s.logger.Warn("Timeout waiting for sync, using existing indexes", "error", err)
		} else {
			s.unlock()
		}
	}

	return s.openIndexes()
}

// Open opens the existing indexes without syncing.
func (s *Service) Open() error {
	return s.openIndexes()
}

// Resync rebuilds the indexes of changed sources. When nothing changed the
// open indexes are kept. Otherwise the indexes stay searchable until the sync
// lock is held, and searches fail with ErrNotReady only while the changed
// sources are rebuilt. Concurrent calls are serialized.
func (s *Service) Resync(ctx context.Context) error {
	s.resyncs.Lock()
	defer s.resyncs.Unlock()

	pending, err := s.pendingSources()
	if err != nil {
		s.logger.Warn("Failed to check sources for changes", "error", err)
	} else if len(pending) == 0 {
		s.logger.Info("Vocabulary sources unchanged")
		return s.ensureOpen()
	}

	if err := s.lock.LockWithContext(ctx, s.settings.SyncTimeout); err != nil {
		s.logger.Warn("Could not acquire sync lock, keeping current indexes", "error", err)
		return s.ensureOpen()
	}

	s.logger.Info("Rebuilding changed sources", "sources", pending)
	if err := s.closeAlias(); err != nil {
		s.logger.Error("Failed to close indexes before resync", "error", err)
	}

	manifest, err := LoadManifest(s.manifestPath())
	if err != nil {
		s.logger.Error("Failed to reload manifest", "error", err)
	} else {
		s.manifest.Replace(manifest)
	}
	s.syncLocked(ctx)

	return s.openIndexes()
}

// pendingSources returns the IDs of sources that need a rebuild and of
// recorded sources that are no longer configured.
func (s *Service) pendingSources() ([]string, error) {
	configured := SourceIDs(s.sources)

	var pending []string
	for _, id := range s.manifest.SourceIDs() {
		if !slices.Contains(configured, id) {
			pending = append(pending, id)
		}
	}
	for _, src := range s.sources {
		_, _, changed, err := s.sourceChanged(src)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", src.ID, err)
		}
		if changed {
			pending = append(pending, src.ID)
		}
	}
	return pending, nil
}

func (s *Service) ensureOpen() error {
	if s.IsReady() {
		return nil
	}
	return s.openIndexes()
}

// syncLocked syncs and saves the manifest, then releases the held lock.
func (s *Service) syncLocked(ctx context.Context) {
	if err := s.SyncAll(ctx); err != nil {
		s.logger.Error("Sync failed", "error", err)
	}
	if err := s.manifest.Save(s.manifestPath()); err != nil {
		s.logger.Error("Failed to save manifest", "error", err)
	}
	s.unlock()
}

func (s *Service) unlock() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Error("Failed to unlock", "error", err)
	}
}

// SyncAll rebuilds the index of every source whose files changed since the
// last sync or that has no index. Indexes of sources that are no longer
// configured are deleted. The caller must not hold the indexes open.
func (s *Service) SyncAll(ctx context.Context) error {
	for _, sourceID := range s.manifest.RemoveStaleSources(SourceIDs(s.sources)) {
		s.logger.Info("Removing stale source", "source_id", sourceID)
		if err := s.indexer.DeleteIndex(sourceID); err != nil {
			s.logger.Error("Failed to delete index for stale source", "source_id", sourceID, "error", err)
		}
		s.recorder.ForgetSource(sourceID)
	}

	sem := make(chan struct{}, MaxParallelSyncs)
	var wg sync.WaitGroup
	errChan := make(chan error, len(s.sources))

	for _, src := range s.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.syncSource(ctx, src); err != nil {
				s.logger.Error("Failed to sync source", "source_id", src.ID, "error", err)
				s.manifest.SetSourceError(src.ID, src.Path, err.Error())
				errChan <- fmt.Errorf("sync %s: %w", src.ID, err)
			}
		}(src)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	s.manifest.UpdateLastSync()

	if len(errs) > 0 {
		return fmt.Errorf("%d source sync(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// syncSource rebuilds the index of one source if its fingerprint changed.
func (s *Service) syncSource(ctx context.Context, src Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	files, fingerprint, changed, err := s.sourceChanged(src)
	if err != nil {
		return err
	}
	if !changed {
		s.logger.Info("Source already up to date", "source_id", src.ID)
		return nil
	}

	s.logger.Info("Indexing source", "source_id", src.ID, "files", len(files))
	start := time.Now()
	stats, err := s.indexer.Rebuild(src.ID, files)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}
	s.recorder.ObserveSync(src.ID, time.Since(start), stats.Vocabularies, stats.Terms)

	s.manifest.SetSourceState(src.ID, SourceState{
		Path:            src.Path,
		Fingerprint:     fingerprint,
		LastIndexed:     time.Now(),
		FileCount:       stats.Files,
		VocabularyCount: stats.Vocabularies,
		TermCount:       stats.Terms,
	})
	s.logger.Info("Index complete", "source_id", src.ID,
		"vocabularies", stats.Vocabularies, "terms", stats.Terms, "duration", time.Since(start))

	return nil
}

// sourceChanged lists and fingerprints the files of src and reports whether
// its index is missing, failed or out of date.
func (s *Service) sourceChanged(src Source) (files []string, fingerprint string, changed bool, err error) {
	files, err = src.Files(s.filter)
	if err != nil {
		return nil, "", false, err
	}
	fingerprint, err = Fingerprint(files)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to fingerprint source: %w", err)
	}

	state, known := s.manifest.State(src.ID)
	upToDate := known && state.Error == "" && state.Fingerprint == fingerprint && s.indexer.IndexExists(src.ID)
	return files, fingerprint, !upToDate, nil
}

// openIndexes opens the indexes of all configured sources behind one alias.
func (s *Service) openIndexes() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var indexed []string
	for _, src := range s.sources {
		if s.indexer.IndexExists(src.ID) {
			indexed = append(indexed, src.ID)
		}
	}

	if len(indexed) == 0 {
		s.logger.Warn("No indexes available")
		s.ready = false
		return nil
	}

	alias, err := s.indexer.CreateAlias(indexed)
	if err != nil {
		return fmt.Errorf("failed to create index alias: %w", err)
	}

	s.alias = alias
	s.ready = true
	s.logger.Info("Indexes ready", "count", len(indexed))
	return nil
}

func (s *Service) closeAlias() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = false
	if s.alias == nil {
		return nil
	}
	err := s.alias.Close()
	s.alias = nil
	if err != nil {
		return fmt.Errorf("failed to close alias: %w", err)
	}
	return nil
}

func (s *Service) manifestPath() string {
	return filepath.Join(s.settings.BaseDir, ManifestFilename)
}

// IsReady returns true if indexes are ready for search.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Sources returns the configured sources.
func (s *Service) Sources() []Source {
	return s.sources
}

// Status returns the sync state of every configured source.
func (s *Service) Status() []SourceStatus {
	out := make([]SourceStatus, 0, len(s.sources))
	for _, src := range s.sources {
		state, _ := s.manifest.State(src.ID)
		out = append(out, SourceStatus{
			Source:  src,
			State:   state,
			Indexed: s.indexer.IndexExists(src.ID),
		})
	}
	return out
}

// Settings returns the service settings.
func (s *Service) Settings() *config.VocabularySettings {
	return s.settings
}

// Close releases all resources.
func (s *Service) Close() error {
	return s.closeAlias()
}
