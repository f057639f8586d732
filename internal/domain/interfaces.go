package domain

import "context"

// CatalogClient talks to the external game catalog.
type CatalogClient interface {
	// OwnedGames returns the user's owned titles.
	OwnedGames(ctx context.Context) ([]LibraryItem, error)

	// AppDetails fetches genres and description for one app id.
	// Returns ErrNoDetail when the catalog has no public detail page,
	// ErrRateLimited when retries were exhausted against a 429.
	AppDetails(ctx context.Context, appID int64) (*EntryUpdate, error)
}

// CacheStore persists the cache document.
type CacheStore interface {
	// Load returns the persisted document, or an empty one if the
	// persisted state is absent or unreadable. Never fails.
	Load() *Cache

	// Save replaces the persisted document. Concurrent saves are
	// serialized; readers never observe a partial write.
	Save(cache *Cache) error

	// Backup copies the current persisted state to a sibling backup
	// location before a mutating pass. No-op when nothing is persisted.
	Backup() error
}

// Describer generates a short description for a title. Best-effort: callers
// must function identically when it is unavailable.
type Describer interface {
	Describe(ctx context.Context, title, hint string) (string, error)
}

// Embedder generates a vector representation of a title's text. Best-effort
// in the same way as Describer.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
