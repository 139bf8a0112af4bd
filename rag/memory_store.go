package rag

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

// MemoryRetriever is an in-memory Retriever scoring fragments by term
// overlap with the query. Intended for tests and small corpora.
type MemoryRetriever struct {
	fragments []types.EvidenceFragment
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewMemoryRetriever creates an empty in-memory retriever.
func NewMemoryRetriever(logger *zap.Logger) *MemoryRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryRetriever{
		fragments: make([]types.EvidenceFragment, 0),
		logger:    logger.With(zap.String("component", "memory_retriever")),
	}
}

// AddFragments indexes fragments for retrieval.
func (r *MemoryRetriever) AddFragments(fragments ...types.EvidenceFragment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fragments = append(r.fragments, fragments...)
}

// Search implements Retriever.
func (r *MemoryRetriever) Search(ctx context.Context, query string, topK int, filter []string) ([]types.EvidenceFragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []types.EvidenceFragment{}, nil
	}

	var allowed map[string]bool
	if len(filter) > 0 {
		allowed = make(map[string]bool, len(filter))
		for _, id := range filter {
			allowed[id] = true
		}
	}

	queryTerms := tokenize(query)

	type scored struct {
		fragment types.EvidenceFragment
		score    float64
	}

	r.mu.RLock()
	candidates := make([]scored, 0, len(r.fragments))
	for _, f := range r.fragments {
		if allowed != nil && !allowed[f.DocumentID] {
			continue
		}
		if score := overlapScore(queryTerms, tokenize(f.Text)); score > 0 {
			candidates = append(candidates, scored{fragment: f, score: score})
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	results := make([]types.EvidenceFragment, 0, topK)
	for _, c := range candidates[:topK] {
		results = append(results, c.fragment)
	}
	return results, nil
}

func tokenize(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.Trim(w, ".,;:!?\"'()")] = true
	}
	return set
}

// overlapScore is the fraction of query terms present in the fragment.
func overlapScore(query, text map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for term := range query {
		if text[term] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
