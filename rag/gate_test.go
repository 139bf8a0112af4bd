package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/docflow/types"
)

type stubEvaluator struct {
	verdict types.SufficiencyVerdict
	err     error
	calls   int
	lastCtx string
}

func (s *stubEvaluator) Evaluate(ctx context.Context, contextStr, question string) (types.SufficiencyVerdict, error) {
	s.calls++
	s.lastCtx = contextStr
	return s.verdict, s.err
}

func TestSufficiencyGate_FormatContext(t *testing.T) {
	store := NewEvidenceStore()
	store.Fold([]types.EvidenceFragment{
		{ID: "a", Text: "First fragment.", DocumentID: "doc1", PageNumber: 3},
		{ID: "b", Text: "Second fragment.", DocumentID: "doc2", PageNumber: types.PageUnknown},
	})

	gate := NewSufficiencyGate(&stubEvaluator{}, nil, 0, nil)
	out := gate.FormatContext(store)

	assert.Contains(t, out, "[Source: doc1, Page: 3]\nFirst fragment.")
	assert.Contains(t, out, "[Source: doc2, Page: Unknown]\nSecond fragment.")
}

type fixedCounter struct{ perBlock int }

func (c fixedCounter) CountTokens(string) int { return c.perBlock }

func TestSufficiencyGate_TokenBudgetKeepsWholeBlocks(t *testing.T) {
	store := NewEvidenceStore()
	store.Fold([]types.EvidenceFragment{
		{ID: "a", Text: "one", DocumentID: "d"},
		{ID: "b", Text: "two", DocumentID: "d"},
		{ID: "c", Text: "three", DocumentID: "d"},
	})

	// Budget fits exactly two 10-token blocks.
	gate := NewSufficiencyGate(&stubEvaluator{}, fixedCounter{perBlock: 10}, 20, nil)
	out := gate.FormatContext(store)

	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
	assert.NotContains(t, out, "three")
}

func TestSufficiencyGate_FirstBlockAlwaysIncluded(t *testing.T) {
	store := NewEvidenceStore()
	store.Fold([]types.EvidenceFragment{{ID: "a", Text: "oversized", DocumentID: "d"}})

	gate := NewSufficiencyGate(&stubEvaluator{}, fixedCounter{perBlock: 100}, 20, nil)
	assert.Contains(t, gate.FormatContext(store), "oversized")
}

func TestSufficiencyGate_EvaluatorErrorPropagates(t *testing.T) {
	cause := types.NewError(types.ErrUpstreamUnavailable, "evaluator LLM call failed").
		WithRetryable(true).WithCause(errors.New("llm down"))
	gate := NewSufficiencyGate(&stubEvaluator{err: cause}, nil, 0, nil)

	_, err := gate.Evaluate(context.Background(), NewEvidenceStore(), "question")

	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamUnavailable, types.GetErrorCode(err))
}

func TestSufficiencyGate_NormalizesVerdict(t *testing.T) {
	eval := &stubEvaluator{verdict: types.SufficiencyVerdict{
		IsSufficient:    true,
		ConfidenceScore: 1.7, // out of range
	}}
	gate := NewSufficiencyGate(eval, nil, 0, nil)

	verdict, err := gate.Evaluate(context.Background(), NewEvidenceStore(), "question")

	require.NoError(t, err)
	assert.Equal(t, 1.0, verdict.ConfidenceScore)
	assert.NotNil(t, verdict.SuggestedFollowups)
}
