// Package store persists the cache document in a BoltDB file. The document
// is loaded wholesale, mutated in memory, and written back wholesale; a
// single writer lock serializes saves so readers always see a complete
// snapshot. Corrupt state is never fatal: it degrades to an empty document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"gamebot/internal/domain"
)

// Bucket names
var (
	bucketMeta  = []byte("meta")
	bucketGames = []byte("games")
)

// metaKey holds the document bookkeeping inside the meta bucket
var metaKey = []byte("cache")

// metaDoc is the persisted form of the document bookkeeping.
// Field names match the original cache file layout.
type metaDoc struct {
	LastUpdated int64             `json:"last_updated"`
	Signature   *domain.Signature `json:"library_signature,omitempty"`
	FailedGames []string          `json:"failed_games,omitempty"`
}

// GameStore implements domain.CacheStore using BoltDB.
type GameStore struct {
	db     *bolt.DB
	path   string
	logger *slog.Logger
	mu     sync.Mutex // Serializes Save and Backup

	// Memory-only document for path == "" (no persistence)
	mem *domain.Cache
}

// New opens (or creates) the store at path. An empty path yields a
// memory-only store, useful for tests. A corrupt database file is moved
// aside and replaced with a fresh one rather than failing.
func New(path string, logger *slog.Logger) (*GameStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return &GameStore{logger: logger, mem: domain.NewCache()}, nil
	}

	db, err := openOrReset(path, logger)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketMeta, bucketGames} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &GameStore{db: db, path: path, logger: logger}, nil
}

// openOrReset opens the bolt file, moving a corrupt one aside first.
func openOrReset(path string, logger *slog.Logger) (*bolt.DB, error) {
	opts := &bolt.Options{Timeout: 1 * time.Second}

	db, err := bolt.Open(path, 0600, opts)
	if err == nil {
		return db, nil
	}

	// A lock timeout means another process (or handle) has the healthy
	// database open; never quarantine it for that
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("cache database in use by another process: %w", err)
	}

	// Unreadable database: preserve it for inspection and start over
	corrupt := path + ".corrupt"
	logger.Error("cache database unreadable, starting fresh", "path", path, "moved_to", corrupt, "error", err)
	if renameErr := os.Rename(path, corrupt); renameErr != nil {
		return nil, fmt.Errorf("failed to move corrupt cache aside: %w", renameErr)
	}

	db, err = bolt.Open(path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	return db, nil
}

// Close releases the underlying database.
func (s *GameStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path ("" in memory-only mode).
func (s *GameStore) Path() string {
	return s.path
}

// Load reads the whole document. Missing or malformed pieces degrade to
// their zero state and are logged; Load never fails.
func (s *GameStore) Load() *domain.Cache {
	if s.db == nil {
		return cloneCache(s.mem)
	}

	cache := domain.NewCache()

	err := s.db.View(func(tx *bolt.Tx) error {
		if meta := tx.Bucket(bucketMeta); meta != nil {
			if data := meta.Get(metaKey); data != nil {
				var doc metaDoc
				if err := json.Unmarshal(data, &doc); err != nil {
					s.logger.Error("cache metadata corrupted, resetting", "error", err)
				} else {
					cache.LastUpdated = doc.LastUpdated
					cache.Signature = doc.Signature
					cache.FailedTitles = doc.FailedGames
				}
			}
		}

		games := tx.Bucket(bucketGames)
		if games == nil {
			return nil
		}
		return games.ForEach(func(k, v []byte) error {
			var entry domain.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				s.logger.Warn("skipping corrupted cache entry", "title", string(k), "error", err)
				return nil
			}
			cache.Entries[string(k)] = &entry
			return nil
		})
	})
	if err != nil {
		s.logger.Error("failed to read cache, starting empty", "error", err)
		return domain.NewCache()
	}

	return cache
}

// Save replaces the persisted document in one transaction.
func (s *GameStore) Save(cache *domain.Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.mem = cloneCache(cache)
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		doc := metaDoc{
			LastUpdated: cache.LastUpdated,
			Signature:   cache.Signature,
			FailedGames: cache.FailedTitles,
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal cache metadata: %w", err)
		}
		if err := meta.Put(metaKey, data); err != nil {
			return err
		}

		// Rewrite the games bucket wholesale so deleted titles don't linger
		if err := tx.DeleteBucket(bucketGames); err != nil {
			return err
		}
		games, err := tx.CreateBucket(bucketGames)
		if err != nil {
			return err
		}
		for name, entry := range cache.Entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal entry %q: %w", name, err)
			}
			if err := games.Put([]byte(name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Backup copies the database to a sibling .bak file. No-op in memory-only
// mode.
func (s *GameStore) Backup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	bak := s.path + ".bak"
	f, err := os.Create(bak)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer f.Close()

	err = s.db.View(func(tx *bolt.Tx) error {
		_, err := tx.WriteTo(f)
		return err
	})
	if err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	s.logger.Info("cache backup created", "path", bak)
	return nil
}

// Reset drops all persisted state, leaving an empty document. Used by the
// full-rebuild path after a backup has been taken.
func (s *GameStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.mem = domain.NewCache()
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketMeta, bucketGames} {
			if err := tx.DeleteBucket(bucket); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

// cloneCache deep-copies a document so memory-only mode callers can't
// mutate the stored snapshot.
func cloneCache(c *domain.Cache) *domain.Cache {
	if c == nil {
		return domain.NewCache()
	}
	out := domain.NewCache()
	out.LastUpdated = c.LastUpdated
	if c.Signature != nil {
		sig := *c.Signature
		sig.IDs = append([]int64(nil), c.Signature.IDs...)
		out.Signature = &sig
	}
	out.FailedTitles = append([]string(nil), c.FailedTitles...)
	for name, entry := range c.Entries {
		copied := *entry
		copied.Genres = append([]string(nil), entry.Genres...)
		if entry.Extra != nil {
			copied.Extra = make(map[string]json.RawMessage, len(entry.Extra))
			for k, v := range entry.Extra {
				copied.Extra[k] = append(json.RawMessage(nil), v...)
			}
		}
		out.Entries[name] = &copied
	}
	return out
}
