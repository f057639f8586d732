package library

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gamebot/internal/domain"
)

// Refresh runs a full reconciliation pass: backup, drift signature, update
// set, chunked fetch with per-chunk persistence, final stamp. With force
// the entry map is rebuilt from scratch. Returns the merged document.
func (s *Service) Refresh(ctx context.Context, force bool) (*domain.Cache, error) {
	owned, err := s.client.OwnedGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch owned games: %w", err)
	}
	return s.refresh(ctx, owned, force)
}

// refresh is the reconciliation pass proper, operating on an already
// fetched owned-item list.
func (s *Service) refresh(ctx context.Context, owned []domain.LibraryItem, force bool) (*domain.Cache, error) {
	if !s.refreshMu.TryLock() {
		return nil, domain.ErrRefreshInFlight
	}
	defer s.refreshMu.Unlock()

	if s.fileLock != nil {
		locked, err := s.fileLock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire refresh lock: %w", err)
		}
		if !locked {
			return nil, domain.ErrRefreshInFlight
		}
		defer s.fileLock.Unlock()
	}

	// Persistence failures abort the run; losing fetched work silently is
	// worse than stopping
	if err := s.store.Backup(); err != nil {
		return nil, fmt.Errorf("backup cache: %w", err)
	}

	cache := s.store.Load()
	if force {
		cache.Entries = make(map[string]*domain.Entry)
	}
	sig := ComputeSignature(owned)
	cache.Signature = &sig
	cache.FailedTitles = nil

	pending := s.buildUpdateSet(ctx, cache, owned, force)
	s.logger.Info("updating games", "queued", len(pending), "owned", len(owned), "force", force)

	for start := 0; start < len(pending); start += s.opts.ChunkSize {
		// Cancellation lands between chunks so the last persisted state
		// is always a complete checkpoint
		if err := ctx.Err(); err != nil {
			s.logger.Warn("refresh canceled between chunks", "completed", start, "queued", len(pending))
			return cache, err
		}

		end := start + s.opts.ChunkSize
		if end > len(pending) {
			end = len(pending)
		}
		s.mergeChunk(cache, s.fetchChunk(ctx, pending[start:end]))

		if err := s.store.Save(cache); err != nil {
			return nil, fmt.Errorf("persist cache after chunk: %w", err)
		}
		s.logger.Debug("chunk persisted", "completed", end, "queued", len(pending))
	}

	cache.LastUpdated = s.now().Unix()
	if err := s.store.Save(cache); err != nil {
		return nil, fmt.Errorf("persist cache: %w", err)
	}

	if len(cache.FailedTitles) > 0 {
		s.logger.Warn("some games failed to update", "count", len(cache.FailedTitles))
	}
	s.logger.Info("cache updated", "entries", len(cache.Entries), "failed", len(cache.FailedTitles))
	return cache, nil
}

// buildUpdateSet ensures every owned title has an entry and queues the ones
// that need fetching: new, incomplete, stale, or forced. Complete fresh
// entries are skipped, which is what makes a repeat pass free.
func (s *Service) buildUpdateSet(ctx context.Context, cache *domain.Cache, owned []domain.LibraryItem, force bool) []domain.LibraryItem {
	now := s.now().Unix()
	var pending []domain.LibraryItem

	for _, item := range owned {
		name := item.Name
		if name == "" {
			// The owned-games response occasionally omits names; the
			// detail page is the fallback before giving up on the item
			resolved, err := s.resolveName(ctx, item.AppID)
			if err != nil {
				s.logger.Warn("could not resolve game name", "appid", item.AppID, "error", err)
				cache.FailedTitles = append(cache.FailedTitles, strconv.FormatInt(item.AppID, 10))
				continue
			}
			name = resolved
		}

		entry, ok := cache.Entries[name]
		if !ok {
			entry = &domain.Entry{AppID: item.AppID}
			cache.Entries[name] = entry
		} else {
			entry.AppID = item.AppID
		}

		stale := now-entry.LastUpdated > int64(s.opts.Expiration.Seconds())
		if force || !entry.Complete() || stale {
			pending = append(pending, domain.LibraryItem{AppID: item.AppID, Name: name})
		}
	}
	return pending
}

// resolveName looks up a missing title name via the detail endpoint.
func (s *Service) resolveName(ctx context.Context, appID int64) (string, error) {
	update, err := s.client.AppDetails(ctx, appID)
	if err != nil {
		return "", err
	}
	if update.Name == "" {
		return "", fmt.Errorf("appid %d: %w", appID, domain.ErrNoDetail)
	}
	return update.Name, nil
}

// fetchResult pairs an item with its fetch outcome.
type fetchResult struct {
	item   domain.LibraryItem
	update *domain.EntryUpdate
	err    error
}

// fetchChunk fans one chunk out across the worker pool. The pool bounds
// in-flight parallelism; the request cadence is enforced inside the client
// independently of pool width.
func (s *Service) fetchChunk(ctx context.Context, chunk []domain.LibraryItem) []fetchResult {
	jobs := make(chan domain.LibraryItem)
	results := make(chan fetchResult, len(chunk))

	workers := s.opts.Workers
	if workers > len(chunk) {
		workers = len(chunk)
	}
	for i := 0; i < workers; i++ {
		go func() {
			for item := range jobs {
				update, err := s.client.AppDetails(ctx, item.AppID)
				results <- fetchResult{item: item, update: update, err: err}
			}
		}()
	}

	for _, item := range chunk {
		jobs <- item
	}
	close(jobs)

	collected := make([]fetchResult, 0, len(chunk))
	for range chunk {
		collected = append(collected, <-results)
	}
	return collected
}

// mergeChunk folds fetch results into the document. Failures are isolated:
// they land in FailedTitles and leave any prior entry data untouched.
func (s *Service) mergeChunk(cache *domain.Cache, results []fetchResult) {
	now := s.now().Unix()
	for _, r := range results {
		if r.err != nil {
			s.logger.Warn("failed to fetch game details",
				"appid", r.item.AppID, "title", r.item.Name, "error", r.err)
			cache.FailedTitles = append(cache.FailedTitles, r.item.Name)
			continue
		}

		entry, ok := cache.Entries[r.item.Name]
		if !ok {
			entry = &domain.Entry{AppID: r.item.AppID}
			cache.Entries[r.item.Name] = entry
		}
		entry.Genres = r.update.Genres
		entry.Description = r.update.Description
		entry.LastUpdated = now
	}
	sort.Strings(cache.FailedTitles)
}

// AddEntry upserts a single entry outside the batch path. The manual path
// still backs up first, like every mutating pass.
func (s *Service) AddEntry(name string, update domain.EntryUpdate) error {
	if err := s.store.Backup(); err != nil {
		return fmt.Errorf("backup cache: %w", err)
	}

	cache := s.store.Load()
	entry, ok := cache.Entries[name]
	if !ok {
		entry = &domain.Entry{}
		cache.Entries[name] = entry
	}
	entry.Genres = update.Genres
	entry.Description = update.Description
	entry.LastUpdated = s.now().Unix()

	if err := s.store.Save(cache); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	s.logger.Info("entry added", "title", name)
	return nil
}

// embeddingField is the persisted entry key holding the vector.
const embeddingField = "embedding"

// EmbedEntries generates and persists a vector for every cached entry that
// doesn't have one yet. Each vector is persisted as soon as it arrives, so
// an interrupted pass never repeats finished work. Returns the number of
// entries embedded.
func (s *Service) EmbedEntries(ctx context.Context, embedder domain.Embedder) (int, error) {
	if embedder == nil {
		return 0, domain.ErrNotConfigured
	}
	if err := s.store.Backup(); err != nil {
		return 0, fmt.Errorf("backup cache: %w", err)
	}

	cache := s.store.Load()
	names := make([]string, 0, len(cache.Entries))
	for name := range cache.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	embedded := 0
	for _, name := range names {
		entry := cache.Entries[name]
		if _, ok := entry.Extra[embeddingField]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return embedded, err
		}

		vec, err := embedder.Embed(ctx, embeddingText(name, entry))
		if err != nil {
			s.logger.Warn("failed to embed entry", "title", name, "error", err)
			continue
		}
		data, err := json.Marshal(vec)
		if err != nil {
			return embedded, fmt.Errorf("marshal embedding for %q: %w", name, err)
		}
		if entry.Extra == nil {
			entry.Extra = make(map[string]json.RawMessage)
		}
		entry.Extra[embeddingField] = data
		embedded++

		if err := s.store.Save(cache); err != nil {
			return embedded, fmt.Errorf("persist cache after embedding: %w", err)
		}
	}

	s.logger.Info("embedding pass finished", "embedded", embedded, "entries", len(cache.Entries))
	return embedded, nil
}

// embeddingText builds the text that represents an entry for embedding.
func embeddingText(name string, entry *domain.Entry) string {
	var b strings.Builder
	b.WriteString(name)
	if len(entry.Genres) > 0 {
		b.WriteString("\nGenres: ")
		b.WriteString(strings.Join(entry.Genres, ", "))
	}
	if entry.Description != "" && entry.Description != domain.NoDescription {
		b.WriteString("\n")
		b.WriteString(entry.Description)
	}
	return b.String()
}

// Describe generates an enriched description for a cached title and
// persists it. Best-effort: requires the enrichment collaborator to be
// configured, and the cache functions identically without it.
func (s *Service) Describe(ctx context.Context, title string) (string, error) {
	if s.describer == nil {
		return "", domain.ErrNotConfigured
	}

	cache := s.store.Load()
	entry, ok := cache.Entries[title]
	if !ok {
		return "", fmt.Errorf("%q: %w", title, domain.ErrTitleNotFound)
	}

	hint := entry.Description
	if hint == domain.NoDescription {
		hint = ""
	}
	generated, err := s.describer.Describe(ctx, title, hint)
	if err != nil {
		s.logger.Error("description generation failed", "title", title, "error", err)
		return "", err
	}

	if err := s.store.Backup(); err != nil {
		return "", fmt.Errorf("backup cache: %w", err)
	}
	entry.EnrichedDescription = generated
	if err := s.store.Save(cache); err != nil {
		return "", fmt.Errorf("persist cache: %w", err)
	}
	return generated, nil
}
