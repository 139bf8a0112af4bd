package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/docflow/types"
)

func newTestController(maxIterations int, minConfidence float64) *Controller {
	return NewController(maxIterations, minConfidence, 4, zap.NewNop())
}

func insufficientVerdict(confidence float64, aspects, followups []string) types.SufficiencyVerdict {
	return types.SufficiencyVerdict{
		IsSufficient:       false,
		ConfidenceScore:    confidence,
		MissingAspects:     aspects,
		SuggestedFollowups: followups,
	}
}

func TestController_StopsOnSufficientVerdict(t *testing.T) {
	c := newTestController(3, 0.7)

	d := c.Decide(types.SufficiencyVerdict{IsSufficient: true, ConfidenceScore: 0.9}, "q", 5)

	assert.Equal(t, StateStopSufficient, d.State)
	assert.Empty(t, d.Queries)
	assert.Equal(t, 0, c.Iteration())
}

func TestController_SufficientBelowConfidenceContinues(t *testing.T) {
	c := newTestController(3, 0.7)

	verdict := types.SufficiencyVerdict{
		IsSufficient:       true,
		ConfidenceScore:    0.5,
		SuggestedFollowups: []string{"more detail"},
	}
	d := c.Decide(verdict, "q", 5)

	assert.Equal(t, StateContinue, d.State)
	assert.Equal(t, 1, c.Iteration())
}

func TestController_BudgetCheckedBeforeVerdict(t *testing.T) {
	c := newTestController(1, 0.7)

	d := c.Decide(insufficientVerdict(0.2, []string{"a"}, nil), "q", 3)
	require.Equal(t, StateContinue, d.State)

	// Budget is exhausted now: even a confident sufficient verdict stops
	// as exhausted.
	d = c.Decide(types.SufficiencyVerdict{IsSufficient: true, ConfidenceScore: 0.95}, "q", 2)
	assert.Equal(t, StateStopBudgetExhausted, d.State)
}

func TestController_ForcedStopOnEmptyRefinement(t *testing.T) {
	c := newTestController(3, 0.7)

	d := c.Decide(insufficientVerdict(0.3, []string{}, []string{}), "q", 4)

	assert.Equal(t, StateStopBudgetExhausted, d.State)
	assert.Equal(t, 0, c.Iteration())
}

func TestController_RefinementQueryGeneration(t *testing.T) {
	c := newTestController(3, 0.7)

	verdict := insufficientVerdict(0.4,
		[]string{"pricing", "availability", "support"},
		[]string{"follow one", "follow two", "follow three"})
	d := c.Decide(verdict, "what is the product", 6)

	require.Equal(t, StateContinue, d.State)
	require.Len(t, d.Queries, 4)
	assert.Equal(t, "follow one", d.Queries[0].Query)
	assert.Equal(t, "follow two", d.Queries[1].Query)
	assert.Equal(t, "what is the product - pricing", d.Queries[2].Query)
	assert.Equal(t, "what is the product - availability", d.Queries[3].Query)
}

func TestController_BlankSuggestionsSkipped(t *testing.T) {
	c := newTestController(3, 0.7)

	verdict := insufficientVerdict(0.4, []string{"  ", "pricing"}, []string{""})
	d := c.Decide(verdict, "q", 1)

	require.Equal(t, StateContinue, d.State)
	require.Len(t, d.Queries, 1)
	assert.Equal(t, "q - pricing", d.Queries[0].Query)
}

func TestController_MaxQueriesCap(t *testing.T) {
	c := NewController(3, 0.7, 2, zap.NewNop())

	verdict := insufficientVerdict(0.4,
		[]string{"a", "b"}, []string{"f1", "f2"})
	d := c.Decide(verdict, "q", 1)

	require.Equal(t, StateContinue, d.State)
	assert.Len(t, d.Queries, 2)
	assert.Equal(t, "f1", d.Queries[0].Query)
	assert.Equal(t, "f2", d.Queries[1].Query)
}

func TestController_HistoryRecordsEveryEvaluation(t *testing.T) {
	c := newTestController(3, 0.7)

	c.Decide(insufficientVerdict(0.3, []string{"a"}, nil), "q", 5)
	c.Decide(types.SufficiencyVerdict{IsSufficient: true, ConfidenceScore: 0.8}, "q", 2)

	summary := c.Summary()
	assert.Equal(t, 1, summary.TotalIterations)
	assert.Equal(t, 3, summary.MaxIterations)
	require.Len(t, summary.History, 2)
	assert.Equal(t, 0, summary.History[0].Iteration)
	assert.Equal(t, 5, summary.History[0].DocumentsRetrieved)
	assert.Equal(t, 1, summary.History[1].Iteration)
	assert.True(t, summary.History[1].IsSufficient)
}

func TestController_TerminationBound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxIterations := rapid.IntRange(1, 6).Draw(t, "maxIterations")
		c := NewController(maxIterations, 0.7, 4, zap.NewNop())

		calls := 0
		for {
			calls++
			verdict := insufficientVerdict(
				rapid.Float64Range(0, 0.69).Draw(t, "confidence"),
				[]string{rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "aspect")},
				nil)
			d := c.Decide(verdict, "q", 1)
			if d.State.Terminal() {
				break
			}
			if calls > maxIterations+1 {
				t.Fatalf("loop did not terminate within %d evaluations", maxIterations+1)
			}
		}

		if calls > maxIterations+1 {
			t.Fatalf("terminated after %d evaluations, budget allows %d", calls, maxIterations+1)
		}
		if c.Iteration() > maxIterations {
			t.Fatalf("iteration counter %d exceeds budget %d", c.Iteration(), maxIterations)
		}
	})
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StateContinue.Terminal())
	assert.True(t, StateStopSufficient.Terminal())
	assert.True(t, StateStopBudgetExhausted.Terminal())
}
