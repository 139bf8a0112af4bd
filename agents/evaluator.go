package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/llm"
	"github.com/BaSui01/docflow/llm/retry"
	"github.com/BaSui01/docflow/types"
)

// EvaluatorConfig configures the evaluator agent.
type EvaluatorConfig struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultEvaluatorConfig returns the default evaluator configuration.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Temperature: 0.0,
		MaxTokens:   1000,
	}
}

// Evaluator judges whether retrieved context suffices to answer a question.
// Malformed verdict payloads degrade to the conservative default rather
// than failing: the verdict gates loop termination, so a well-formed value
// must always come back. Transport failures still surface as errors so the
// gate can log them.
type Evaluator struct {
	provider llm.Provider
	retryer  retry.Retryer
	metrics  Metrics
	cfg      EvaluatorConfig
	logger   *zap.Logger
}

// NewEvaluator creates an evaluator agent. retryer and metrics may be nil.
func NewEvaluator(provider llm.Provider, retryer retry.Retryer, metrics Metrics, cfg EvaluatorConfig, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		provider: provider,
		retryer:  retryer,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "evaluator")),
	}
}

// Evaluate implements rag.Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, contextStr, question string) (types.SufficiencyVerdict, error) {
	userPrompt := fmt.Sprintf("Question: %s\n\nRetrieved context:\n%s", question, contextStr)

	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: evaluatorPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
		JSONMode:    true,
	}

	resp, err := e.complete(ctx, req)
	if err != nil {
		return types.SufficiencyVerdict{}, types.NewError(types.ErrUpstreamUnavailable, "evaluator LLM call failed").
			WithRetryable(true).WithCause(err)
	}

	verdict := e.parseVerdict(resp.Content)

	e.logger.Debug("context evaluated",
		zap.Bool("is_sufficient", verdict.IsSufficient),
		zap.Float64("confidence", verdict.ConfidenceScore),
		zap.Int("missing_aspects", len(verdict.MissingAspects)))

	return verdict, nil
}

// parseVerdict decodes the raw payload, substituting the conservative
// default for unparseable JSON and per-field zero values for missing
// fields.
func (e *Evaluator) parseVerdict(raw string) types.SufficiencyVerdict {
	var verdict types.SufficiencyVerdict
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &verdict); err != nil {
		e.logger.Warn("verdict is not valid JSON, substituting conservative default",
			zap.Error(err))
		return types.DefaultVerdict()
	}

	if verdict.ConfidenceScore < 0 {
		verdict.ConfidenceScore = 0
	}
	if verdict.ConfidenceScore > 1 {
		verdict.ConfidenceScore = 1
	}
	if verdict.MissingAspects == nil {
		verdict.MissingAspects = []string{}
	}
	if verdict.SuggestedFollowups == nil {
		verdict.SuggestedFollowups = []string{}
	}

	return verdict
}

func (e *Evaluator) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := e.doComplete(ctx, req)
	recordLLMCall(e.metrics, e.provider.Name(), "evaluator", err, time.Since(start))
	return resp, err
}

func (e *Evaluator) doComplete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if e.retryer == nil {
		return e.provider.Complete(ctx, req)
	}
	return retry.DoWithResultTyped(e.retryer, ctx, func() (*llm.CompletionResponse, error) {
		return e.provider.Complete(ctx, req)
	})
}
