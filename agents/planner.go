package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/llm"
	"github.com/BaSui01/docflow/llm/retry"
	"github.com/BaSui01/docflow/types"
)

// PlannerConfig configures the planner agent.
type PlannerConfig struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	// MaxHistoryRecords bounds the conversation turns included in the prompt.
	MaxHistoryRecords int `json:"max_history_records"`
}

// DefaultPlannerConfig returns the default planner configuration.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Temperature:       0.3,
		MaxTokens:         2000,
		MaxHistoryRecords: 2,
	}
}

// Planner turns a user question into a retrieval plan. A malformed plan is
// fatal for the turn: there is no safe default plan, unlike verdicts.
type Planner struct {
	provider llm.Provider
	retryer  retry.Retryer
	metrics  Metrics
	cfg      PlannerConfig
	logger   *zap.Logger
}

// NewPlanner creates a planner agent. retryer and metrics may be nil.
func NewPlanner(provider llm.Provider, retryer retry.Retryer, metrics Metrics, cfg PlannerConfig, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		provider: provider,
		retryer:  retryer,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "planner")),
	}
}

// Plan generates a retrieval plan for question, resolving references
// against the supplied conversation history.
func (p *Planner) Plan(ctx context.Context, question string, history []types.ConversationTurn) (*types.RetrievalPlan, error) {
	if strings.TrimSpace(question) == "" {
		return nil, types.NewError(types.ErrInvalidInput, "question cannot be empty")
	}

	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: plannerPrompt},
			{Role: llm.RoleUser, Content: p.buildUserPrompt(question, history)},
		},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		JSONMode:    true,
	}

	resp, err := p.complete(ctx, req)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamUnavailable, "planner LLM call failed").
			WithRetryable(true).WithCause(err)
	}

	plan, err := p.parsePlan(resp.Content)
	if err != nil {
		return nil, err
	}

	p.logger.Info("plan generated",
		zap.String("question_type", string(plan.QuestionType)),
		zap.Int("search_queries", len(plan.SearchQueries)),
		zap.Int("max_searches", plan.MaxSearches))

	return plan, nil
}

func (p *Planner) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := p.doComplete(ctx, req)
	recordLLMCall(p.metrics, p.provider.Name(), "planner", err, time.Since(start))
	return resp, err
}

func (p *Planner) doComplete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if p.retryer == nil {
		return p.provider.Complete(ctx, req)
	}
	return retry.DoWithResultTyped(p.retryer, ctx, func() (*llm.CompletionResponse, error) {
		return p.provider.Complete(ctx, req)
	})
}

func (p *Planner) buildUserPrompt(question string, history []types.ConversationTurn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s", question)

	if n := p.cfg.MaxHistoryRecords; n > 0 && len(history) > 0 {
		if len(history) > n {
			history = history[len(history)-n:]
		}
		b.WriteString("\n\nPrevious Conversation:\n")
		for i, turn := range history {
			fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, turn.Question, i+1, turn.Answer)
		}
	}

	return b.String()
}

// parsePlan validates the raw LLM payload. Missing required fields are
// MALFORMED_PLAN; an unknown question type degrades to "other".
func (p *Planner) parsePlan(raw string) (*types.RetrievalPlan, error) {
	var plan types.RetrievalPlan
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &plan); err != nil {
		return nil, types.NewError(types.ErrMalformedPlan, "plan is not valid JSON").WithCause(err)
	}

	if strings.TrimSpace(plan.ResolvedQuestion) == "" {
		return nil, types.NewError(types.ErrMalformedPlan, "plan missing resolved_question")
	}
	if plan.QuestionType == "" {
		return nil, types.NewError(types.ErrMalformedPlan, "plan missing question_type")
	}
	if len(plan.SearchQueries) == 0 {
		return nil, types.NewError(types.ErrMalformedPlan, "plan missing search_queries")
	}

	if !types.ValidQuestionType(plan.QuestionType) {
		p.logger.Warn("unknown question type, degrading to other",
			zap.String("question_type", string(plan.QuestionType)))
		plan.QuestionType = types.QuestionOther
	}

	for i := range plan.SearchQueries {
		if plan.SearchQueries[i].TopK <= 0 {
			plan.SearchQueries[i].TopK = 5
		}
	}

	if plan.MaxSearches <= 0 || plan.MaxSearches > len(plan.SearchQueries) {
		plan.MaxSearches = len(plan.SearchQueries)
	}

	return &plan, nil
}
