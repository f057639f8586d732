package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// NoDescription is stored when the catalog returned a detail page with an
// empty short description. It distinguishes "fetched but empty" from
// "never fetched" (empty string).
const NoDescription = "No description available."

// LibraryItem is one owned title as reported by the library source.
// The core never mutates it.
type LibraryItem struct {
	AppID int64  // Steam application identifier
	Name  string // Display title; may be empty until resolved
}

// EntryUpdate carries the metadata fetched for a single title.
type EntryUpdate struct {
	Name        string   // Title from the detail page (used to resolve missing names)
	Genres      []string // Lowercased genre labels
	Description string   // Trimmed short description, NoDescription if empty
}

// Entry is the cached metadata record for one title.
type Entry struct {
	AppID               int64
	Genres              []string
	Description         string
	EnrichedDescription string
	LastUpdated         int64 // Unix seconds of the last successful fetch

	// Extra preserves unknown fields found in the persisted entry so a
	// re-save never strips data written by other tools.
	Extra map[string]json.RawMessage
}

// Complete reports whether the entry has all required fields populated.
func (e *Entry) Complete() bool {
	return len(e.Genres) > 0 && e.Description != ""
}

// HasGenre reports whether the entry carries the given lowercase genre.
func (e *Entry) HasGenre(genre string) bool {
	for _, g := range e.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Persisted entry field names. Kept snake_case for compatibility with cache
// files written by earlier versions.
const (
	fieldAppID       = "appid"
	fieldGenres      = "genres"
	fieldDescription = "description"
	fieldEnriched    = "enriched_description"
	fieldLastUpdated = "last_updated"
)

// MarshalJSON writes the known fields plus any preserved extra fields.
func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(e.Extra)+5)
	for k, v := range e.Extra {
		m[k] = v
	}
	put := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		m[key] = data
		return nil
	}
	if err := put(fieldAppID, e.AppID); err != nil {
		return nil, err
	}
	genres := e.Genres
	if genres == nil {
		genres = []string{}
	}
	if err := put(fieldGenres, genres); err != nil {
		return nil, err
	}
	if err := put(fieldDescription, e.Description); err != nil {
		return nil, err
	}
	if e.EnrichedDescription != "" {
		if err := put(fieldEnriched, e.EnrichedDescription); err != nil {
			return nil, err
		}
	}
	if err := put(fieldLastUpdated, e.LastUpdated); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the known fields and stashes everything else in Extra.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		var err error
		switch key {
		case fieldAppID:
			err = json.Unmarshal(val, &e.AppID)
		case fieldGenres:
			err = json.Unmarshal(val, &e.Genres)
		case fieldDescription:
			err = json.Unmarshal(val, &e.Description)
		case fieldEnriched:
			err = json.Unmarshal(val, &e.EnrichedDescription)
		case fieldLastUpdated:
			err = json.Unmarshal(val, &e.LastUpdated)
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]json.RawMessage)
			}
			e.Extra[key] = val
			continue
		}
		if err != nil {
			return fmt.Errorf("entry field %q: %w", key, err)
		}
	}
	return nil
}

// Signature is a cheap fingerprint of the owned-item set, compared against
// the previously recorded signature to detect library drift.
type Signature struct {
	Count int     `json:"count"`
	IDs   []int64 `json:"ids"`
	Hash  uint64  `json:"hash"`
}

// Cache is the full persisted cache document: all entries plus bookkeeping.
// It is loaded wholesale, mutated in memory, and written back wholesale.
type Cache struct {
	LastUpdated  int64
	Signature    *Signature
	Entries      map[string]*Entry // keyed by title name
	FailedTitles []string          // titles that failed during the last pass
}

// NewCache returns an empty cache document.
func NewCache() *Cache {
	return &Cache{Entries: make(map[string]*Entry)}
}

// Genres returns the sorted set of distinct genres across all entries.
func (c *Cache) Genres() []string {
	seen := make(map[string]struct{})
	for _, e := range c.Entries {
		for _, g := range e.Genres {
			seen[g] = struct{}{}
		}
	}
	genres := make([]string, 0, len(seen))
	for g := range seen {
		genres = append(genres, g)
	}
	sort.Strings(genres)
	return genres
}

// Titles returns all cached title names in unspecified order.
func (c *Cache) Titles() []string {
	titles := make([]string, 0, len(c.Entries))
	for name := range c.Entries {
		titles = append(titles, name)
	}
	return titles
}
