package agents

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/llm"
	"github.com/BaSui01/docflow/llm/retry"
	"github.com/BaSui01/docflow/types"
)

// SynthesizerConfig configures the synthesizer agent.
type SynthesizerConfig struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultSynthesizerConfig returns the default synthesizer configuration.
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		Temperature: 0.3,
		MaxTokens:   2000,
	}
}

// Synthesizer produces the final answer from accumulated context. Failures
// propagate: there is no safe default for "no answer".
type Synthesizer struct {
	provider llm.Provider
	retryer  retry.Retryer
	metrics  Metrics
	cfg      SynthesizerConfig
	logger   *zap.Logger
}

// NewSynthesizer creates a synthesizer agent. retryer and metrics may be nil.
func NewSynthesizer(provider llm.Provider, retryer retry.Retryer, metrics Metrics, cfg SynthesizerConfig, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		provider: provider,
		retryer:  retryer,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "synthesizer")),
	}
}

// Synthesize answers question from contextStr and assembles citations from
// the source fragments, deduplicated by (document, page) in first-seen
// order.
func (s *Synthesizer) Synthesize(ctx context.Context, contextStr, question string, sources []types.EvidenceFragment) (*types.AnswerResult, error) {
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextStr, question)

	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: synthesizerPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	resp, err := s.complete(ctx, req)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamUnavailable, "synthesizer LLM call failed").
			WithRetryable(true).WithCause(err)
	}

	result := &types.AnswerResult{
		Answer:     resp.Content,
		Citations:  types.DedupCitations(sources),
		IsFallback: false,
	}

	s.logger.Info("answer synthesized",
		zap.Int("answer_chars", len(result.Answer)),
		zap.Int("citations", len(result.Citations)))

	return result, nil
}

func (s *Synthesizer) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := s.doComplete(ctx, req)
	recordLLMCall(s.metrics, s.provider.Name(), "synthesizer", err, time.Since(start))
	return resp, err
}

func (s *Synthesizer) doComplete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.retryer == nil {
		return s.provider.Complete(ctx, req)
	}
	return retry.DoWithResultTyped(s.retryer, ctx, func() (*llm.CompletionResponse, error) {
		return s.provider.Complete(ctx, req)
	})
}
