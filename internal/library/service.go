// Package library orchestrates the cache: deciding what needs updating,
// driving the catalog fetcher across a worker pool, merging results into
// the store, and answering lookups against the cached corpus.
package library

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"gamebot/internal/domain"
)

const (
	defaultChunkSize  = 15
	defaultWorkers    = 4
	defaultExpiration = 24 * time.Hour
)

// Options tunes the reconciliation pass.
type Options struct {
	ChunkSize  int           // Titles fetched between persistence checkpoints
	Workers    int           // Fetch pool width (parallelism ceiling, not request rate)
	Expiration time.Duration // Staleness threshold for entries and the document
	LockPath   string        // Cross-process refresh lock file; empty disables
}

// Service owns the cache store and reconciles it against the catalog.
type Service struct {
	client    domain.CatalogClient
	store     domain.CacheStore
	describer domain.Describer // may be nil
	logger    *slog.Logger
	opts      Options

	refreshMu sync.Mutex   // In-process single-refresh-at-a-time guard
	fileLock  *flock.Flock // Cross-process guard, nil when LockPath is empty

	now func() time.Time // Overridable clock for tests
}

// NewService creates the reconciler service.
func NewService(client domain.CatalogClient, store domain.CacheStore, describer domain.Describer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Expiration <= 0 {
		opts.Expiration = defaultExpiration
	}

	s := &Service{
		client:    client,
		store:     store,
		describer: describer,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
	if opts.LockPath != "" {
		s.fileLock = flock.New(opts.LockPath)
	}
	return s
}
