package library

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
	"time"

	"gamebot/internal/domain"
)

// ComputeSignature builds a cheap fingerprint of the owned-item set: the
// count, the ascending app ids, and an FNV-1a hash over the id sequence.
// The hash is deterministic across runs but carries no cross-version
// stability promise.
func ComputeSignature(items []domain.LibraryItem) domain.Signature {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.AppID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	h := fnv.New64a()
	var buf [8]byte
	for _, id := range ids {
		binary.BigEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
	}

	return domain.Signature{Count: len(ids), IDs: ids, Hash: h.Sum64()}
}

// HasDrifted reports whether the owned-item set differs from the cached
// signature. The count comparison runs first as a cheap short-circuit.
func HasDrifted(current domain.Signature, cached *domain.Signature) bool {
	if cached == nil {
		return true
	}
	if current.Count != cached.Count {
		return true
	}
	return current.Hash != cached.Hash
}

// NeedsRefresh reports whether the cache requires a refresh pass: the
// library drifted, any entry is incomplete, or the whole document is older
// than expiration. Completeness is checked before staleness since an
// incomplete cache needs work regardless of age.
func NeedsRefresh(cache *domain.Cache, current domain.Signature, expiration time.Duration, now time.Time) bool {
	if HasDrifted(current, cache.Signature) {
		return true
	}
	for _, entry := range cache.Entries {
		if !entry.Complete() {
			return true
		}
	}
	return now.Unix()-cache.LastUpdated > int64(expiration.Seconds())
}
