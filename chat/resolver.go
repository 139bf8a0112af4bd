package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

// Synthesizer is the answer-synthesis collaborator contract.
type Synthesizer interface {
	Synthesize(ctx context.Context, contextStr, question string, sources []types.EvidenceFragment) (*types.AnswerResult, error)
}

// SessionAppender records a completed question/answer pair in a session.
type SessionAppender interface {
	AppendTurn(ctx context.Context, sessionID, question, answer string) error
}

// Metrics is the subset of the metrics collector the chat pipeline records
// to. A nil Metrics disables recording.
type Metrics interface {
	RecordTurn(outcome string, duration time.Duration, iterations, fragments int)
	RecordSessionUpdateFailure()
}

// ResolveRequest carries everything the Resolver needs to turn a terminal
// state into an answer.
type ResolveRequest struct {
	State            State
	SessionID        string
	Question         string
	ResolvedQuestion string
	Context          string
	Fragments        []types.EvidenceFragment
	Verdict          types.SufficiencyVerdict
}

// Resolver produces the turn's final answer: a synthesized one on
// StateStopSufficient, a deterministic fallback on StateStopBudgetExhausted.
// Session history is updated identically in both paths, best-effort.
type Resolver struct {
	synthesizer Synthesizer
	sessions    SessionAppender
	metrics     Metrics
	logger      *zap.Logger
}

// NewResolver creates a resolver. sessions and metrics may be nil.
func NewResolver(synthesizer Synthesizer, sessions SessionAppender, metrics Metrics, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		synthesizer: synthesizer,
		sessions:    sessions,
		metrics:     metrics,
		logger:      logger.With(zap.String("component", "response_resolver")),
	}
}

// Resolve produces the AnswerResult for a terminal state. Synthesis errors
// propagate: there is no safe default answer. The fallback path makes no
// LLM call.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (*types.AnswerResult, error) {
	var result *types.AnswerResult

	switch req.State {
	case StateStopSufficient:
		answer, err := r.synthesizer.Synthesize(ctx, req.Context, req.ResolvedQuestion, req.Fragments)
		if err != nil {
			return nil, err
		}
		result = answer

	case StateStopBudgetExhausted:
		result = &types.AnswerResult{
			Answer:     buildFallbackAnswer(req.Question, req.Verdict),
			Citations:  []types.Citation{},
			IsFallback: true,
		}

	default:
		return nil, types.NewError(types.ErrMalformedResponse,
			fmt.Sprintf("cannot resolve non-terminal state %q", req.State))
	}

	r.appendSession(ctx, req.SessionID, req.Question, result.Answer)

	return result, nil
}

// appendSession records the turn in session history. Failure is logged and
// counted, never fatal: the answer has already been produced.
func (r *Resolver) appendSession(ctx context.Context, sessionID, question, answer string) {
	if r.sessions == nil || sessionID == "" {
		return
	}
	if err := r.sessions.AppendTurn(ctx, sessionID, question, answer); err != nil {
		r.logger.Warn("session history update failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		if r.metrics != nil {
			r.metrics.RecordSessionUpdateFailure()
		}
	}
}

// buildFallbackAnswer constructs the budget-exhausted response from the
// final verdict: it acknowledges the question, enumerates what is missing,
// reports the confidence reached, and offers fixed remediation steps.
func buildFallbackAnswer(question string, verdict types.SufficiencyVerdict) string {
	var b strings.Builder

	fmt.Fprintf(&b, "I could not gather enough evidence to answer %q reliably.\n\n", question)

	if len(verdict.MissingAspects) > 0 {
		b.WriteString("The retrieved documents do not cover:\n")
		for _, aspect := range verdict.MissingAspects {
			fmt.Fprintf(&b, "- %s\n", aspect)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Final confidence after retrieval: %.2f.\n\n", verdict.ConfidenceScore)

	b.WriteString("You could try to:\n")
	b.WriteString("- rephrase the question\n")
	b.WriteString("- upload more documents covering the topic\n")
	b.WriteString("- ask narrower questions\n")

	return b.String()
}
