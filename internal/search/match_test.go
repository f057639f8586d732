package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 0, Distance("portal", "portal"))
	assert.Equal(t, Distance("hades", "fades"), Distance("fades", "hades"))
	assert.Equal(t, 5, Distance("", "stray"))
}

func TestResolveGenre(t *testing.T) {
	known := []string{"action", "adventure", "rpg"}

	t.Run("typo within distance", func(t *testing.T) {
		assert.Contains(t, ResolveGenre("acton", known, DefaultGenreDistance), "action")
	})

	t.Run("substring match", func(t *testing.T) {
		matches := ResolveGenre("advent", known, DefaultGenreDistance)
		assert.Equal(t, []string{"adventure"}, matches)
	})

	t.Run("query contains genre", func(t *testing.T) {
		matches := ResolveGenre("rpgs", known, DefaultGenreDistance)
		assert.Contains(t, matches, "rpg")
	})

	t.Run("preserves known order", func(t *testing.T) {
		matches := ResolveGenre("a", []string{"action", "racing", "adventure"}, 0)
		assert.Equal(t, []string{"action", "racing", "adventure"}, matches)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, ResolveGenre("zzzzzzz", known, DefaultGenreDistance))
	})
}

func TestResolveTitle(t *testing.T) {
	known := []string{"The Witcher 3: Wild Hunt", "Portal 2", "Hades"}

	t.Run("simplified substring", func(t *testing.T) {
		matches := ResolveTitle("witcher3", known, DefaultTitleDistance)
		assert.Equal(t, []string{"The Witcher 3: Wild Hunt"}, matches)
	})

	t.Run("exact match short-circuits", func(t *testing.T) {
		titles := []string{"Portal", "Portal 2"}
		matches := ResolveTitle("portal", titles, DefaultTitleDistance)
		assert.Equal(t, []string{"Portal"}, matches)
	})

	t.Run("edit distance fallback", func(t *testing.T) {
		matches := ResolveTitle("hedes", known, DefaultTitleDistance)
		assert.Equal(t, []string{"Hades"}, matches)
	})

	t.Run("substring suppresses distance tier", func(t *testing.T) {
		titles := []string{"Dota 2", "Dot"}
		// "dota" is a substring of "dota2" only; "Dot" would match on
		// distance but must not appear alongside the substring match.
		matches := ResolveTitle("dota", titles, DefaultTitleDistance)
		assert.Equal(t, []string{"Dota 2"}, matches)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, ResolveTitle("completely unrelated query", known, DefaultTitleDistance))
	})
}

func TestSuggest(t *testing.T) {
	candidates := []string{"action", "adventure", "strategy", "simulation"}

	results := Suggest("actn", candidates, 2)
	assert.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 2)
	assert.Equal(t, "action", results[0])

	assert.Empty(t, Suggest("", candidates, 3))
	assert.Empty(t, Suggest("action", nil, 3))
}
