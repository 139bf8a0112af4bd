package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

// Evaluator is the evaluation collaborator contract: judge whether context
// is sufficient to answer question.
type Evaluator interface {
	Evaluate(ctx context.Context, contextStr, question string) (types.SufficiencyVerdict, error)
}

// SufficiencyGate shapes the evidence store into a context string and
// delegates judgment to the evaluator. The gate performs no judgment of its
// own. Malformed verdict payloads are recovered inside the evaluator;
// transport failures propagate so the turn can surface them.
type SufficiencyGate struct {
	evaluator   Evaluator
	counter     TokenCounter
	tokenBudget int
	logger      *zap.Logger
}

// NewSufficiencyGate creates a gate. tokenBudget bounds the context string
// handed to the evaluator; 0 disables truncation.
func NewSufficiencyGate(evaluator Evaluator, counter TokenCounter, tokenBudget int, logger *zap.Logger) *SufficiencyGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SufficiencyGate{
		evaluator:   evaluator,
		counter:     counter,
		tokenBudget: tokenBudget,
		logger:      logger.With(zap.String("component", "sufficiency_gate")),
	}
}

// Evaluate formats store into a context string and asks the evaluator for a
// verdict. On success the returned verdict is always well-formed; an
// evaluator error aborts the turn and is returned as-is.
func (g *SufficiencyGate) Evaluate(ctx context.Context, store *EvidenceStore, question string) (types.SufficiencyVerdict, error) {
	contextStr := g.FormatContext(store)

	verdict, err := g.evaluator.Evaluate(ctx, contextStr, question)
	if err != nil {
		g.logger.Error("evaluator failed", zap.Error(err))
		return types.SufficiencyVerdict{}, err
	}

	return normalizeVerdict(verdict), nil
}

// FormatContext renders one block per fragment, each tagged with its source
// document and page, keeping whole blocks until the token budget is reached.
func (g *SufficiencyGate) FormatContext(store *EvidenceStore) string {
	var b strings.Builder
	used := 0

	for i, f := range store.Fragments() {
		block := fmt.Sprintf("[Source: %s, Page: %s]\n%s\n\n", f.DocumentID, f.PageLabel(), f.Text)

		if g.tokenBudget > 0 && g.counter != nil {
			cost := g.counter.CountTokens(block)
			if used+cost > g.tokenBudget && i > 0 {
				g.logger.Debug("context token budget reached",
					zap.Int("fragments_included", i),
					zap.Int("fragments_total", store.Len()))
				break
			}
			used += cost
		}

		b.WriteString(block)
	}

	return strings.TrimRight(b.String(), "\n")
}

// normalizeVerdict clamps the confidence into [0,1] and replaces nil lists
// so downstream code never sees a malformed verdict.
func normalizeVerdict(v types.SufficiencyVerdict) types.SufficiencyVerdict {
	if v.ConfidenceScore < 0 {
		v.ConfidenceScore = 0
	}
	if v.ConfidenceScore > 1 {
		v.ConfidenceScore = 1
	}
	if v.MissingAspects == nil {
		v.MissingAspects = []string{}
	}
	if v.SuggestedFollowups == nil {
		v.SuggestedFollowups = []string{}
	}
	return v
}
