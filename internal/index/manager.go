package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	chromem "github.com/philippgille/chromem-go"

	"github.com/vidasana/coach/internal/log"
)

// snapshotFile is the persisted index file name inside the index directory.
const snapshotFile = "knowledge.gob.gz"

// Manager owns the live Index and serializes its replacement.
//
// Queries proceed concurrently against the active index under a read
// lock; a rebuild constructs the replacement off to the side, persists
// it with an atomic rename, and only then swaps the in-memory pointer.
// In-flight queries finish against the index they started with.
//
// A file lock guards the on-disk snapshot so two processes (or a serve
// process and a reindex CLI run) never write it concurrently.
type Manager struct {
	dir       string
	embedFunc chromem.EmbeddingFunc
	logger    log.Logger
	lock      *flock.Flock

	mu      sync.RWMutex
	current *Index
}

// NewManager creates a Manager for the index stored in dir.
func NewManager(dir string, embedFunc chromem.EmbeddingFunc, logger log.Logger) *Manager {
	return &Manager{
		dir:       dir,
		embedFunc: embedFunc,
		logger:    logger,
		lock:      flock.New(filepath.Join(dir, ".index.lock")),
	}
}

// Path returns the snapshot file the manager persists to.
func (m *Manager) Path() string {
	return filepath.Join(m.dir, snapshotFile)
}

// Exists reports whether a persisted index snapshot is present.
func (m *Manager) Exists() bool {
	info, err := os.Stat(m.Path())
	return err == nil && !info.IsDir()
}

// Load reads the persisted snapshot and makes it the active index.
func (m *Manager) Load(ctx context.Context) error {
	ix, err := Open(m.Path(), m.embedFunc)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}

	m.swap(ix)
	m.logger.Info("vector index loaded", "path", m.Path(), "entries", ix.Count())
	return nil
}

// Install persists ix and makes it the active index.
//
// The swap is atomic for both readers of the snapshot file (temp file +
// rename) and in-process queries (pointer swap under the write lock).
func (m *Manager) Install(ctx context.Context, ix *Index) error {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	locked, err := m.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring index lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("index lock held by another process")
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("releasing index lock failed", "error", err)
		}
	}()

	if err := ix.Persist(m.Path()); err != nil {
		return err
	}

	m.swap(ix)
	m.logger.Info("vector index installed", "path", m.Path(), "entries", ix.Count())
	return nil
}

// Rebuild constructs a fresh index from entries and installs it.
//
// All-or-nothing: on any failure the previously active index stays in
// place and keeps serving queries.
func (m *Manager) Rebuild(ctx context.Context, entries []Entry) error {
	ix, err := New(m.embedFunc)
	if err != nil {
		return err
	}
	if err := ix.Add(ctx, entries); err != nil {
		return err
	}
	return m.Install(ctx, ix)
}

// Query runs a similarity query against the active index.
// Returns ErrNotLoaded when no index has been built or loaded yet.
func (m *Manager) Query(ctx context.Context, text string, k int) ([]Result, error) {
	m.mu.RLock()
	ix := m.current
	m.mu.RUnlock()

	if ix == nil {
		return nil, ErrNotLoaded
	}
	return ix.Query(ctx, text, k)
}

// Count returns the number of entries in the active index, or 0 when
// none is loaded.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return 0
	}
	return m.current.Count()
}

// Ready reports whether an index is active.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

func (m *Manager) swap(ix *Index) {
	m.mu.Lock()
	m.current = ix
	m.mu.Unlock()
}
