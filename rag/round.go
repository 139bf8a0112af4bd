package rag

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/docflow/types"
)

// defaultTopK is used when a planned query carries no positive top_k.
const defaultTopK = 5

// RoundRunner executes one retrieval round: it fans the round's queries out
// to the retriever, then folds the results into the evidence store in
// query-issue order.
type RoundRunner struct {
	retriever   Retriever
	concurrency int
	logger      *zap.Logger
}

// NewRoundRunner creates a round runner. concurrency bounds the in-flight
// per-query searches; values below 1 mean sequential execution.
func NewRoundRunner(retriever Retriever, concurrency int, logger *zap.Logger) *RoundRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &RoundRunner{
		retriever:   retriever,
		concurrency: concurrency,
		logger:      logger.With(zap.String("component", "retrieval_round")),
	}
}

// Run executes one round over queries and folds new fragments into store.
// Blank queries are skipped. A failing query is logged and contributes zero
// results; it never aborts the round. The per-query searches run
// concurrently, but the fold happens once, after all queries return, in
// query-issue order, so the store's append-order invariant holds. Returns
// the number of fragments newly added this round.
func (r *RoundRunner) Run(ctx context.Context, queries []types.SearchQuery, store *EvidenceStore, filter []string) int {
	results := make([][]types.EvidenceFragment, len(queries))

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, sq := range queries {
		i, sq := i, sq
		if strings.TrimSpace(sq.Query) == "" {
			r.logger.Warn("skipping blank query", zap.Int("index", i))
			continue
		}

		topK := sq.TopK
		if topK <= 0 {
			topK = defaultTopK
		}

		g.Go(func() error {
			fragments, err := r.retriever.Search(ctx, sq.Query, topK, filter)
			if err != nil {
				// Absorbed: one failing query must not abort the round.
				r.logger.Error("query retrieval failed",
					zap.Int("index", i),
					zap.String("query", sq.Query),
					zap.Error(err))
				return nil
			}
			results[i] = fragments
			return nil
		})
	}

	// Workers only write their own slot and never return errors.
	_ = g.Wait()

	added := 0
	for _, fragments := range results {
		added += store.Fold(fragments)
	}

	r.logger.Info("retrieval round completed",
		zap.Int("queries", len(queries)),
		zap.Int("fragments_added", added),
		zap.Int("store_size", store.Len()))

	return added
}
