package library

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamebot/internal/domain"
	"gamebot/internal/logging"
	"gamebot/internal/store"
)

// fakeCatalog is an in-memory catalog with per-id results and call counting.
type fakeCatalog struct {
	mu          sync.Mutex
	owned       []domain.LibraryItem
	ownedErr    error
	details     map[int64]*domain.EntryUpdate
	failures    map[int64]error
	detailCalls int

	// blockDetails, when non-nil, is closed to release AppDetails calls;
	// started is closed once the first AppDetails call is in flight
	blockDetails chan struct{}
	started      chan struct{}
	startOnce    sync.Once
}

func (f *fakeCatalog) OwnedGames(ctx context.Context) ([]domain.LibraryItem, error) {
	if f.ownedErr != nil {
		return nil, f.ownedErr
	}
	return f.owned, nil
}

func (f *fakeCatalog) AppDetails(ctx context.Context, appID int64) (*domain.EntryUpdate, error) {
	if f.started != nil {
		f.startOnce.Do(func() { close(f.started) })
	}
	if f.blockDetails != nil {
		<-f.blockDetails
	}
	f.mu.Lock()
	f.detailCalls++
	f.mu.Unlock()

	if err, ok := f.failures[appID]; ok {
		return nil, err
	}
	if update, ok := f.details[appID]; ok {
		copied := *update
		return &copied, nil
	}
	return nil, fmt.Errorf("appid %d: %w", appID, domain.ErrNoDetail)
}

func (f *fakeCatalog) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls
}

func newTestService(t *testing.T, catalog *fakeCatalog) (*Service, *store.GameStore) {
	t.Helper()
	st, err := store.New("", logging.NullLogger())
	require.NoError(t, err)
	svc := NewService(catalog, st, nil, Options{ChunkSize: 2, Workers: 2}, logging.NullLogger())
	return svc, st
}

func twoGameCatalog() *fakeCatalog {
	return &fakeCatalog{
		owned: []domain.LibraryItem{
			{AppID: 620, Name: "Portal 2"},
			{AppID: 220, Name: "Half-Life 2"},
		},
		details: map[int64]*domain.EntryUpdate{
			620: {Name: "Portal 2", Genres: []string{"puzzle"}, Description: "The sequel."},
			220: {Name: "Half-Life 2", Genres: []string{"action"}, Description: "The crowbar one."},
		},
	}
}

func TestRefreshPopulatesCache(t *testing.T) {
	catalog := twoGameCatalog()
	svc, st := newTestService(t, catalog)

	cache, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, cache.Entries, 2)
	assert.Equal(t, []string{"puzzle"}, cache.Entries["Portal 2"].Genres)
	assert.Equal(t, "The crowbar one.", cache.Entries["Half-Life 2"].Description)
	assert.Empty(t, cache.FailedTitles)
	require.NotNil(t, cache.Signature)
	assert.Equal(t, 2, cache.Signature.Count)

	// Persisted, not just in memory
	assert.Len(t, st.Load().Entries, 2)
}

func TestRefreshIdempotence(t *testing.T) {
	catalog := twoGameCatalog()
	svc, _ := newTestService(t, catalog)

	_, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)
	first := catalog.calls()
	assert.Equal(t, 2, first)

	// Unchanged library: the second pass must perform zero fetches
	cache, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, first, catalog.calls())
	assert.Len(t, cache.Entries, 2)
}

func TestRefreshForceRefetchesEverything(t *testing.T) {
	catalog := twoGameCatalog()
	svc, _ := newTestService(t, catalog)

	_, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 4, catalog.calls())
}

func TestFailureIsolation(t *testing.T) {
	catalog := twoGameCatalog()
	catalog.failures = map[int64]error{220: domain.ErrRateLimited}
	svc, st := newTestService(t, catalog)

	// Seed prior known-good data for the title that will fail
	seed := domain.NewCache()
	seed.Entries["Half-Life 2"] = &domain.Entry{
		AppID:       220,
		Genres:      []string{"action"},
		Description: "Prior data.",
	}
	require.NoError(t, st.Save(seed))

	cache, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)

	// The success landed
	assert.Equal(t, "The sequel.", cache.Entries["Portal 2"].Description)
	// The failure is visible but the prior entry survived untouched
	assert.Equal(t, []string{"Half-Life 2"}, cache.FailedTitles)
	assert.Equal(t, "Prior data.", cache.Entries["Half-Life 2"].Description)
	assert.Equal(t, []string{"action"}, cache.Entries["Half-Life 2"].Genres)
}

func TestFailedTitlesClearedOnNextPass(t *testing.T) {
	catalog := twoGameCatalog()
	catalog.failures = map[int64]error{220: domain.ErrRateLimited}
	svc, _ := newTestService(t, catalog)

	cache, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, []string{"Half-Life 2"}, cache.FailedTitles)

	// The upstream recovers; the next pass retries and clears the list
	catalog.failures = nil
	cache, err = svc.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, cache.FailedTitles)
	assert.Equal(t, "The crowbar one.", cache.Entries["Half-Life 2"].Description)
}

func TestRefreshInFlightGuard(t *testing.T) {
	catalog := twoGameCatalog()
	catalog.blockDetails = make(chan struct{})
	catalog.started = make(chan struct{})
	svc, _ := newTestService(t, catalog)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background(), false)
		done <- err
	}()

	// Wait until the first refresh holds the guard and is mid-fetch
	select {
	case <-catalog.started:
	case <-time.After(time.Second):
		t.Fatal("first refresh never started fetching")
	}

	_, err := svc.Refresh(context.Background(), false)
	assert.ErrorIs(t, err, domain.ErrRefreshInFlight)

	close(catalog.blockDetails)
	require.NoError(t, <-done)
}

func TestMissingNameResolvedViaDetails(t *testing.T) {
	catalog := &fakeCatalog{
		owned: []domain.LibraryItem{{AppID: 570}},
		details: map[int64]*domain.EntryUpdate{
			570: {Name: "Dota 2", Genres: []string{"moba"}, Description: "Lanes."},
		},
	}
	svc, _ := newTestService(t, catalog)

	cache, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)
	require.Contains(t, cache.Entries, "Dota 2")
	assert.Equal(t, []string{"moba"}, cache.Entries["Dota 2"].Genres)
}

func TestUnresolvableItemRecordedByID(t *testing.T) {
	catalog := &fakeCatalog{
		owned: []domain.LibraryItem{{AppID: 999}},
	}
	svc, _ := newTestService(t, catalog)

	cache, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, cache.Entries)
	assert.Equal(t, []string{"999"}, cache.FailedTitles)
}

func TestEntriesServesCacheWhenSourceDown(t *testing.T) {
	catalog := twoGameCatalog()
	svc, st := newTestService(t, catalog)

	_, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, st.Load().Entries, 2)

	catalog.ownedErr = fmt.Errorf("network down")
	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEntriesRefreshesOnDrift(t *testing.T) {
	catalog := twoGameCatalog()
	svc, _ := newTestService(t, catalog)

	_, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)
	before := catalog.calls()

	// A new title appears in the library
	catalog.owned = append(catalog.owned, domain.LibraryItem{AppID: 570, Name: "Dota 2"})
	catalog.details[570] = &domain.EntryUpdate{Name: "Dota 2", Genres: []string{"moba"}, Description: "Lanes."}

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, before+1, catalog.calls())
}

func TestAddEntry(t *testing.T) {
	svc, st := newTestService(t, twoGameCatalog())

	err := svc.AddEntry("Homebrew Game", domain.EntryUpdate{
		Genres:      []string{"indie"},
		Description: "Hand-added.",
	})
	require.NoError(t, err)

	entry, ok := st.Load().Entries["Homebrew Game"]
	require.True(t, ok)
	assert.Equal(t, []string{"indie"}, entry.Genres)
}

func TestGenresAndLookups(t *testing.T) {
	svc, _ := newTestService(t, twoGameCatalog())
	_, err := svc.Refresh(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"action", "puzzle"}, svc.Genres())
	assert.Equal(t, []string{"Half-Life 2"}, svc.TitlesByGenre("action"))
	assert.Contains(t, svc.ResolveGenre("puzzel"), "puzzle")
	assert.Equal(t, []string{"Portal 2"}, svc.ResolveTitle("portal2"))
}

// fakeDescriber returns a canned description.
type fakeDescriber struct {
	result string
	err    error
}

func (f *fakeDescriber) Describe(ctx context.Context, title, hint string) (string, error) {
	return f.result, f.err
}

func TestDescribe(t *testing.T) {
	catalog := twoGameCatalog()
	st, err := store.New("", logging.NullLogger())
	require.NoError(t, err)
	svc := NewService(catalog, st, &fakeDescriber{result: "A timeless puzzler."}, Options{}, logging.NullLogger())

	_, err = svc.Refresh(context.Background(), false)
	require.NoError(t, err)

	generated, err := svc.Describe(context.Background(), "Portal 2")
	require.NoError(t, err)
	assert.Equal(t, "A timeless puzzler.", generated)
	assert.Equal(t, "A timeless puzzler.", st.Load().Entries["Portal 2"].EnrichedDescription)

	_, err = svc.Describe(context.Background(), "Unknown Game")
	assert.ErrorIs(t, err, domain.ErrTitleNotFound)
}

func TestDescribeUnconfigured(t *testing.T) {
	svc, _ := newTestService(t, twoGameCatalog())
	_, err := svc.Describe(context.Background(), "Portal 2")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

// fakeEmbedder returns a canned vector and records the embedded texts.
type fakeEmbedder struct {
	calls []string
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.1, 0.2}, nil
}

func TestEmbedEntries(t *testing.T) {
	st, err := store.New("", logging.NullLogger())
	require.NoError(t, err)

	cache := domain.NewCache()
	cache.Entries["Portal 2"] = &domain.Entry{
		AppID:       620,
		Genres:      []string{"puzzle"},
		Description: "The sequel.",
	}
	cache.Entries["Half-Life 2"] = &domain.Entry{
		AppID: 220,
		Extra: map[string]json.RawMessage{"embedding": json.RawMessage(`[1]`)},
	}
	require.NoError(t, st.Save(cache))

	svc := NewService(&fakeCatalog{}, st, nil, Options{}, logging.NullLogger())
	emb := &fakeEmbedder{}

	embedded, err := svc.EmbedEntries(context.Background(), emb)
	require.NoError(t, err)
	assert.Equal(t, 1, embedded)

	// Only the entry without a vector is embedded; its text carries the
	// title, genres, and description
	require.Len(t, emb.calls, 1)
	assert.Contains(t, emb.calls[0], "Portal 2")
	assert.Contains(t, emb.calls[0], "puzzle")
	assert.Contains(t, emb.calls[0], "The sequel.")

	loaded := st.Load()
	assert.JSONEq(t, `[0.1, 0.2]`, string(loaded.Entries["Portal 2"].Extra["embedding"]))
	assert.JSONEq(t, `[1]`, string(loaded.Entries["Half-Life 2"].Extra["embedding"]))
}

func TestEmbedEntriesSecondPassIsFree(t *testing.T) {
	st, err := store.New("", logging.NullLogger())
	require.NoError(t, err)

	cache := domain.NewCache()
	cache.Entries["Portal 2"] = &domain.Entry{AppID: 620, Description: "The sequel."}
	require.NoError(t, st.Save(cache))

	svc := NewService(&fakeCatalog{}, st, nil, Options{}, logging.NullLogger())
	emb := &fakeEmbedder{}

	_, err = svc.EmbedEntries(context.Background(), emb)
	require.NoError(t, err)

	embedded, err := svc.EmbedEntries(context.Background(), emb)
	require.NoError(t, err)
	assert.Zero(t, embedded)
	assert.Len(t, emb.calls, 1)
}

func TestEmbedEntriesFailureSkipsEntry(t *testing.T) {
	st, err := store.New("", logging.NullLogger())
	require.NoError(t, err)

	cache := domain.NewCache()
	cache.Entries["Portal 2"] = &domain.Entry{AppID: 620, Description: "The sequel."}
	require.NoError(t, st.Save(cache))

	svc := NewService(&fakeCatalog{}, st, nil, Options{}, logging.NullLogger())
	emb := &fakeEmbedder{err: fmt.Errorf("upstream unavailable")}

	embedded, err := svc.EmbedEntries(context.Background(), emb)
	require.NoError(t, err)
	assert.Zero(t, embedded)
	assert.NotContains(t, st.Load().Entries["Portal 2"].Extra, "embedding")
}

func TestEmbedEntriesUnconfigured(t *testing.T) {
	svc, _ := newTestService(t, twoGameCatalog())
	_, err := svc.EmbedEntries(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
