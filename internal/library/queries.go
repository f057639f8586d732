package library

import (
	"context"
	"errors"

	"gamebot/internal/domain"
	"gamebot/internal/search"
)

// Entries returns the current games, refreshing first when the library has
// drifted, entries are incomplete, or the cache has expired. When the
// owned-library source is unreachable the cached corpus is served as-is.
func (s *Service) Entries(ctx context.Context) (map[string]*domain.Entry, error) {
	owned, err := s.client.OwnedGames(ctx)
	if err != nil {
		s.logger.Warn("owned-games source unreachable, serving cached entries", "error", err)
		return s.store.Load().Entries, nil
	}

	cache := s.store.Load()
	if !NeedsRefresh(cache, ComputeSignature(owned), s.opts.Expiration, s.now()) {
		return cache.Entries, nil
	}

	refreshed, err := s.refresh(ctx, owned, false)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshInFlight) {
			// Another caller is already reconciling; the current
			// snapshot is the best answer available
			return cache.Entries, nil
		}
		return nil, err
	}
	return refreshed.Entries, nil
}

// CachedEntries returns the cached corpus without any freshness check.
func (s *Service) CachedEntries() map[string]*domain.Entry {
	return s.store.Load().Entries
}

// CachedTitles returns the cached title names in unspecified order.
func (s *Service) CachedTitles() []string {
	return s.store.Load().Titles()
}

// Entry returns one cached entry by exact title.
func (s *Service) Entry(title string) (*domain.Entry, bool) {
	entry, ok := s.store.Load().Entries[title]
	return entry, ok
}

// Genres returns the sorted distinct genres across the cached corpus.
func (s *Service) Genres() []string {
	return s.store.Load().Genres()
}

// FailedTitles returns the titles that failed during the last pass.
func (s *Service) FailedTitles() []string {
	return s.store.Load().FailedTitles
}

// TitlesByGenre returns the cached titles carrying the given lowercase
// genre.
func (s *Service) TitlesByGenre(genre string) []string {
	var titles []string
	for name, entry := range s.store.Load().Entries {
		if entry.HasGenre(genre) {
			titles = append(titles, name)
		}
	}
	return titles
}

// ResolveGenre finds cached genres matching a fuzzy query.
func (s *Service) ResolveGenre(query string) []string {
	return search.ResolveGenre(query, s.Genres(), search.DefaultGenreDistance)
}

// ResolveTitle finds cached titles matching a fuzzy query.
func (s *Service) ResolveTitle(query string) []string {
	return search.ResolveTitle(query, s.store.Load().Titles(), search.DefaultTitleDistance)
}

// SuggestGenres returns ranked nearest-alternative genres for a query that
// resolved to nothing.
func (s *Service) SuggestGenres(query string, limit int) []string {
	return search.Suggest(query, s.Genres(), limit)
}
