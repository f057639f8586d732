// Package search resolves fuzzy user queries (genre names, game titles)
// against the cached corpus.
package search

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sahilm "github.com/sahilm/fuzzy"
)

const (
	// DefaultGenreDistance is the edit-distance ceiling for genre queries
	DefaultGenreDistance = 2

	// DefaultTitleDistance is the edit-distance ceiling for title queries
	DefaultTitleDistance = 3
)

// Distance returns the Levenshtein distance between a and b.
// Callers normalize case before invoking.
func Distance(a, b string) int {
	return fuzzy.LevenshteinDistance(a, b)
}

// ResolveGenre returns the known genres matching the query: substring
// containment in either direction, or edit distance within maxDistance.
// Result order follows the iteration order of known.
func ResolveGenre(query string, known []string, maxDistance int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var matches []string
	for _, genre := range known {
		g := strings.ToLower(genre)
		if strings.Contains(g, q) || strings.Contains(q, g) {
			matches = append(matches, genre)
			continue
		}
		if Distance(q, g) <= maxDistance {
			matches = append(matches, genre)
		}
	}
	return matches
}

// ResolveTitle returns the known titles matching the query, in three
// mutually exclusive tiers: case-insensitive exact match wins outright;
// otherwise simplified-substring matches; otherwise edit distance within
// maxDistance on the simplified forms.
func ResolveTitle(query string, known []string, maxDistance int) []string {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}

	for _, title := range known {
		if strings.EqualFold(title, q) {
			return []string{title}
		}
	}

	sq := simplify(q)
	if sq == "" {
		return nil
	}

	var substrings []string
	for _, title := range known {
		if strings.Contains(simplify(title), sq) {
			substrings = append(substrings, title)
		}
	}
	if len(substrings) > 0 {
		return substrings
	}

	var near []string
	for _, title := range known {
		if Distance(sq, simplify(title)) <= maxDistance {
			near = append(near, title)
		}
	}
	return near
}

// Suggest returns up to limit candidates ranked by fuzzy match quality,
// used to offer nearest alternatives when resolution comes up empty.
func Suggest(query string, candidates []string, limit int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(candidates) == 0 {
		return nil
	}

	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(c)
	}

	ranked := sahilm.Find(q, lowered)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]string, 0, len(ranked))
	for _, m := range ranked {
		results = append(results, candidates[m.Index])
	}
	return results
}

// simplify lowercases and strips everything but letters and digits, so
// "The Witcher 3: Wild Hunt" and "witcher3" compare on equal footing.
func simplify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
