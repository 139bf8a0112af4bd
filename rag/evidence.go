package rag

import (
	"github.com/BaSui01/docflow/types"
)

// textKeyPrefixLen is the identity-proxy length used when a backend returns
// fragments without IDs. Deduplicating by text prefix is a documented
// approximation, not an error.
const textKeyPrefixLen = 100

// EvidenceStore is the ordered, deduplicated accumulator of retrieved
// fragments for one user turn. It grows only by appending previously-unseen
// fragments and never shrinks within a turn. Not safe for concurrent use;
// the turn that owns it serializes all folds.
type EvidenceStore struct {
	fragments []types.EvidenceFragment
	seen      map[string]bool
}

// NewEvidenceStore creates an empty evidence store.
func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{
		fragments: make([]types.EvidenceFragment, 0),
		seen:      make(map[string]bool),
	}
}

// Fold appends every previously-unseen fragment in arrival order and
// discards duplicates. It returns the number of fragments added. Folding
// the same fragment set twice is a no-op the second time.
func (s *EvidenceStore) Fold(incoming []types.EvidenceFragment) int {
	added := 0
	for _, f := range incoming {
		key := dedupKey(f)
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.fragments = append(s.fragments, f)
		added++
	}
	return added
}

// Fragments returns the accumulated fragments in append order. The caller
// must not mutate the returned slice.
func (s *EvidenceStore) Fragments() []types.EvidenceFragment {
	return s.fragments
}

// Len returns the number of accumulated fragments.
func (s *EvidenceStore) Len() int {
	return len(s.fragments)
}

// dedupKey returns the identity key for a fragment: its ID, or a text
// prefix when the backend supplied no ID.
func dedupKey(f types.EvidenceFragment) string {
	if f.ID != "" {
		return "id:" + f.ID
	}
	text := f.Text
	if len(text) > textKeyPrefixLen {
		text = text[:textKeyPrefixLen]
	}
	return "text:" + text
}
