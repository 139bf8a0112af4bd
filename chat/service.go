package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/config"
	"github.com/BaSui01/docflow/internal/store"
	"github.com/BaSui01/docflow/rag"
	"github.com/BaSui01/docflow/types"
)

// Planner is the plan-generation collaborator contract.
type Planner interface {
	Plan(ctx context.Context, question string, history []types.ConversationTurn) (*types.RetrievalPlan, error)
}

// SessionStore is the session history the service reads and validates
// against. Appends go through the Resolver.
type SessionStore interface {
	Exists(ctx context.Context, sessionID string) (bool, error)
	History(ctx context.Context, sessionID string, limit int) ([]types.ConversationTurn, error)
}

// TurnRecorder persists completed turns for audit. Persistence is
// best-effort and never fails the turn.
type TurnRecorder interface {
	SaveTurn(ctx context.Context, record *store.TurnRecord) error
}

// TurnResult is the orchestrator's final payload for one user turn.
type TurnResult struct {
	Plan              *types.RetrievalPlan     `json:"plan"`
	Evidence          []types.EvidenceFragment `json:"evidence"`
	Evaluation        types.SufficiencyVerdict `json:"evaluation"`
	Response          *types.AnswerResult      `json:"response"`
	RefinementSummary types.RefinementSummary  `json:"refinement_summary"`
	AgentReasoning    string                   `json:"agent_reasoning"`
}

// Service orchestrates one user turn: plan, then bounded rounds of
// retrieve-evaluate-refine, then resolve. Each turn owns its evidence store
// and controller; distinct turns share only the injected collaborators.
type Service struct {
	planner  Planner
	rounds   *rag.RoundRunner
	gate     *rag.SufficiencyGate
	resolver *Resolver
	sessions SessionStore
	turns    TurnRecorder
	metrics  Metrics
	cfg      config.ChatConfig
	logger   *zap.Logger
}

// NewService wires the chat pipeline. sessions, turns and metrics may be
// nil; the corresponding concerns are then skipped.
func NewService(
	planner Planner,
	rounds *rag.RoundRunner,
	gate *rag.SufficiencyGate,
	resolver *Resolver,
	sessions SessionStore,
	turns TurnRecorder,
	metrics Metrics,
	cfg config.ChatConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		planner:  planner,
		rounds:   rounds,
		gate:     gate,
		resolver: resolver,
		sessions: sessions,
		turns:    turns,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "chat_service")),
	}
}

// ProcessTurn answers question within the given session. documentFilter,
// when non-empty, restricts retrieval to those document IDs. Planning,
// evaluation and synthesis failures abort the turn; per-query retrieval
// failures are absorbed along the way, so an exhausted budget yields a
// fallback answer, not an error.
func (s *Service) ProcessTurn(ctx context.Context, sessionID, question string, documentFilter []string) (*TurnResult, error) {
	start := time.Now()

	if strings.TrimSpace(question) == "" {
		return nil, types.NewError(types.ErrInvalidInput, "question cannot be empty")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, types.NewError(types.ErrInvalidInput, "session ID cannot be empty")
	}

	history, err := s.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	plan, err := s.planner.Plan(ctx, question, history)
	if err != nil {
		s.recordOutcome(ctx, "error", start, nil, nil, 0)
		return nil, err
	}

	resolved := plan.ResolvedQuestion
	if strings.TrimSpace(resolved) == "" {
		resolved = question
	}

	s.logger.Info("plan generated",
		zap.String("session_id", sessionID),
		zap.String("question_type", string(plan.QuestionType)),
		zap.Int("search_queries", len(plan.SearchQueries)))

	evidence := rag.NewEvidenceStore()
	controller := NewController(s.cfg.MaxIterations, s.cfg.MinConfidence, s.cfg.MaxRefinementQueries, s.logger)

	queries := plan.InitialQueries()
	var verdict types.SufficiencyVerdict
	var decision Decision
	for {
		added := s.rounds.Run(ctx, queries, evidence, documentFilter)
		verdict, err = s.gate.Evaluate(ctx, evidence, resolved)
		if err != nil {
			s.recordOutcome(ctx, "error", start, nil, nil, evidence.Len())
			return nil, err
		}
		decision = controller.Decide(verdict, resolved, added)
		if decision.State != StateContinue {
			break
		}
		queries = decision.Queries
	}

	result, err := s.resolver.Resolve(ctx, ResolveRequest{
		State:            decision.State,
		SessionID:        sessionID,
		Question:         question,
		ResolvedQuestion: resolved,
		Context:          s.gate.FormatContext(evidence),
		Fragments:        evidence.Fragments(),
		Verdict:          verdict,
	})
	if err != nil {
		s.recordOutcome(ctx, "error", start, nil, nil, evidence.Len())
		return nil, err
	}

	summary := controller.Summary()

	turn := &TurnResult{
		Plan:              plan,
		Evidence:          evidence.Fragments(),
		Evaluation:        verdict,
		Response:          result,
		RefinementSummary: summary,
		AgentReasoning:    buildReasoning(plan, summary, verdict, evidence.Len()),
	}

	outcome := "answered"
	if result.IsFallback {
		outcome = "fallback"
	}
	s.recordOutcome(ctx, outcome, start, &sessionTurn{
		sessionID: sessionID,
		question:  question,
		summary:   summary,
	}, result, evidence.Len())

	s.logger.Info("turn completed",
		zap.String("session_id", sessionID),
		zap.String("outcome", outcome),
		zap.Int("iterations", summary.TotalIterations),
		zap.Int("evidence_fragments", evidence.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return turn, nil
}

// loadHistory validates the session and returns its recent turns. A store
// read error degrades to empty history; an unknown session aborts the turn.
func (s *Service) loadHistory(ctx context.Context, sessionID string) ([]types.ConversationTurn, error) {
	if s.sessions == nil {
		return nil, nil
	}

	ok, err := s.sessions.Exists(ctx, sessionID)
	if err != nil {
		s.logger.Warn("session lookup failed, proceeding without history",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, types.NewError(types.ErrInvalidInput, "invalid session or session expired")
	}

	history, err := s.sessions.History(ctx, sessionID, s.cfg.MaxHistoryRecords)
	if err != nil {
		s.logger.Warn("history load failed, proceeding without history",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, nil
	}
	return history, nil
}

type sessionTurn struct {
	sessionID string
	question  string
	summary   types.RefinementSummary
}

// recordOutcome emits turn metrics and, for completed turns, persists the
// audit record. Both are best-effort.
func (s *Service) recordOutcome(ctx context.Context, outcome string, start time.Time, turn *sessionTurn, result *types.AnswerResult, fragments int) {
	iterations := 0
	if turn != nil {
		iterations = turn.summary.TotalIterations
	}
	if s.metrics != nil {
		s.metrics.RecordTurn(outcome, time.Since(start), iterations, fragments)
	}

	if s.turns == nil || turn == nil || result == nil {
		return
	}
	record := &store.TurnRecord{
		SessionID:       turn.sessionID,
		Question:        turn.question,
		Answer:          result.Answer,
		IsFallback:      result.IsFallback,
		Iterations:      turn.summary.TotalIterations,
		ConfidenceScore: lastConfidence(turn.summary),
		EvidenceCount:   fragments,
	}
	if err := s.turns.SaveTurn(ctx, record); err != nil {
		s.logger.Warn("turn persistence failed",
			zap.String("session_id", turn.sessionID),
			zap.Error(err))
	}
}

func lastConfidence(summary types.RefinementSummary) float64 {
	if len(summary.History) == 0 {
		return 0
	}
	return summary.History[len(summary.History)-1].ConfidenceScore
}

// buildReasoning summarizes the turn's agent activity for the response
// payload.
func buildReasoning(plan *types.RetrievalPlan, summary types.RefinementSummary, verdict types.SufficiencyVerdict, fragments int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Classified the question as %q and planned %d search queries. ",
		plan.QuestionType, len(plan.SearchQueries))
	fmt.Fprintf(&b, "Ran %d refinement iteration(s) accumulating %d evidence fragments. ",
		summary.TotalIterations, fragments)
	if verdict.IsSufficient {
		fmt.Fprintf(&b, "Evidence judged sufficient with confidence %.2f.", verdict.ConfidenceScore)
	} else {
		fmt.Fprintf(&b, "Evidence remained insufficient (confidence %.2f).", verdict.ConfidenceScore)
	}
	return b.String()
}
