package chat

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

// State is the refinement loop's decision after one evaluation.
type State string

const (
	// StateContinue runs another retrieval round with refinement queries.
	StateContinue State = "CONTINUE"

	// StateStopSufficient ends the loop with evidence judged sufficient.
	StateStopSufficient State = "STOP_SUFFICIENT"

	// StateStopBudgetExhausted ends the loop without sufficient evidence,
	// either because the iteration budget ran out or because the verdict
	// yielded no usable refinement queries.
	StateStopBudgetExhausted State = "STOP_BUDGET_EXHAUSTED"
)

// Terminal reports whether s ends the loop.
func (s State) Terminal() bool {
	return s == StateStopSufficient || s == StateStopBudgetExhausted
}

// Per-source caps on refinement query generation.
const (
	maxVerbatimFollowups = 2
	maxAspectQueries     = 2
)

// Decision is one Controller transition: the next state and, when the state
// is StateContinue, the queries for the next retrieval round.
type Decision struct {
	State   State
	Queries []types.SearchQuery
}

// Controller is the bounded state machine driving the refinement loop. It
// is created once per user turn and must not be shared across turns.
type Controller struct {
	maxIterations int
	minConfidence float64
	maxQueries    int
	iteration     int
	history       []types.IterationRecord
	logger        *zap.Logger
}

// NewController creates a per-turn controller. maxQueries caps the total
// refinement queries generated per round; values below 1 fall back to the
// combined per-source caps.
func NewController(maxIterations int, minConfidence float64, maxQueries int, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxIterations < 1 {
		maxIterations = 1
	}
	if maxQueries < 1 {
		maxQueries = maxVerbatimFollowups + maxAspectQueries
	}
	return &Controller{
		maxIterations: maxIterations,
		minConfidence: minConfidence,
		maxQueries:    maxQueries,
		history:       make([]types.IterationRecord, 0, maxIterations+1),
		logger:        logger.With(zap.String("component", "refinement_controller")),
	}
}

// Decide evaluates the transition rule against verdict. The budget check
// runs before the verdict is inspected, so a sufficient verdict on an
// exhausted budget still stops as exhausted. Every call appends an
// IterationRecord; the iteration counter advances only on StateContinue,
// which bounds the loop at maxIterations+1 evaluations.
func (c *Controller) Decide(verdict types.SufficiencyVerdict, question string, documentsRetrieved int) Decision {
	c.history = append(c.history, types.IterationRecord{
		Iteration:          c.iteration,
		IsSufficient:       verdict.IsSufficient,
		ConfidenceScore:    verdict.ConfidenceScore,
		DocumentsRetrieved: documentsRetrieved,
		MissingAspects:     verdict.MissingAspects,
		SuggestedFollowups: verdict.SuggestedFollowups,
	})

	if c.iteration >= c.maxIterations {
		c.logger.Info("iteration budget exhausted",
			zap.Int("max_iterations", c.maxIterations))
		return Decision{State: StateStopBudgetExhausted}
	}

	if verdict.IsSufficient && verdict.ConfidenceScore >= c.minConfidence {
		c.logger.Info("evidence sufficient",
			zap.Float64("confidence", verdict.ConfidenceScore),
			zap.Int("iteration", c.iteration))
		return Decision{State: StateStopSufficient}
	}

	queries := c.refinementQueries(verdict, question)
	if len(queries) == 0 {
		// An insufficient verdict that suggests nothing cannot make
		// progress; stop instead of looping on the same evidence.
		c.logger.Warn("insufficient verdict yielded no refinement queries, stopping early",
			zap.Int("iteration", c.iteration))
		return Decision{State: StateStopBudgetExhausted}
	}

	c.iteration++
	c.logger.Info("refining",
		zap.Int("iteration", c.iteration),
		zap.Int("queries", len(queries)),
		zap.Float64("confidence", verdict.ConfidenceScore))

	return Decision{State: StateContinue, Queries: queries}
}

// refinementQueries derives the next round's queries from verdict: up to
// two suggested follow-ups verbatim, then up to two missing aspects each
// joined with the question.
func (c *Controller) refinementQueries(verdict types.SufficiencyVerdict, question string) []types.SearchQuery {
	queries := make([]types.SearchQuery, 0, c.maxQueries)

	followups := verdict.SuggestedFollowups
	if len(followups) > maxVerbatimFollowups {
		followups = followups[:maxVerbatimFollowups]
	}
	for _, f := range followups {
		if strings.TrimSpace(f) == "" {
			continue
		}
		queries = append(queries, types.SearchQuery{Query: f})
	}

	aspects := verdict.MissingAspects
	if len(aspects) > maxAspectQueries {
		aspects = aspects[:maxAspectQueries]
	}
	for _, a := range aspects {
		if strings.TrimSpace(a) == "" {
			continue
		}
		queries = append(queries, types.SearchQuery{
			Query: fmt.Sprintf("%s - %s", question, a),
		})
	}

	if len(queries) > c.maxQueries {
		queries = queries[:c.maxQueries]
	}
	return queries
}

// Iteration returns the number of refinement rounds run so far.
func (c *Controller) Iteration() int {
	return c.iteration
}

// Summary reports the loop's outcome for the turn's response payload.
func (c *Controller) Summary() types.RefinementSummary {
	return types.RefinementSummary{
		TotalIterations: c.iteration,
		MaxIterations:   c.maxIterations,
		History:         c.history,
	}
}
