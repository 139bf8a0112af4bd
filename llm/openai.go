package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/docflow/types"
)

// OpenAIConfig configures the OpenAI-compatible provider.
type OpenAIConfig struct {
	BaseURL        string        `json:"base_url"`
	APIKey         string        `json:"api_key"`
	Model          string        `json:"model"`
	EmbeddingModel string        `json:"embedding_model"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	// RateLimitRPS caps client-side request rate; 0 disables the limiter.
	RateLimitRPS float64 `json:"rate_limit_rps,omitempty"`
}

// OpenAIProvider implements Provider against any OpenAI-compatible API.
type OpenAIProvider struct {
	cfg     OpenAIConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAIProvider creates an OpenAI-compatible provider.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), int(cfg.RateLimitRPS)+1)
	}

	return &OpenAIProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger.With(zap.String("component", "openai_provider")),
	}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	body := openAIChatRequest{
		Model:       p.cfg.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var out openAIChatResponse
	if err := p.post(ctx, "/chat/completions", body, &out); err != nil {
		return nil, err
	}

	if len(out.Choices) == 0 {
		return nil, types.NewError(types.ErrMalformedResponse, "completion returned no choices")
	}

	return &CompletionResponse{
		Content:      out.Choices[0].Message.Content,
		Model:        out.Model,
		PromptTokens: out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}, nil
}

type openAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Provider.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	var out openAIEmbeddingResponse
	if err := p.post(ctx, "/embeddings", openAIEmbeddingRequest{Model: p.cfg.EmbeddingModel, Input: texts}, &out); err != nil {
		return nil, err
	}

	if len(out.Data) != len(texts) {
		return nil, types.NewError(types.ErrMalformedResponse,
			fmt.Sprintf("embedding count mismatch: want %d got %d", len(texts), len(out.Data)))
	}

	vectors := make([][]float64, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, types.NewError(types.ErrMalformedResponse, "embedding index out of range")
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (p *OpenAIProvider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return types.NewError(types.ErrUpstreamUnavailable, "rate limiter wait aborted").WithCause(err)
	}
	return nil
}

func (p *OpenAIProvider) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return types.NewError(types.ErrUpstreamUnavailable, "LLM call timed out").
				WithRetryable(true).WithCause(err)
		}
		return types.NewError(types.ErrUpstreamUnavailable, "LLM call failed").
			WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewError(types.ErrUpstreamUnavailable, "failed to read LLM response").
			WithRetryable(true).WithCause(err)
	}

	p.logger.Debug("llm call completed",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return mapHTTPError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return types.NewError(types.ErrMalformedResponse, "failed to decode LLM response").WithCause(err)
	}
	return nil
}

// mapHTTPError maps an upstream HTTP status to the error taxonomy. 429 and
// 5xx are retryable; 4xx are not.
func mapHTTPError(status int, body []byte) error {
	msg := fmt.Sprintf("upstream returned status %d", status)
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}

	e := types.NewError(types.ErrUpstreamUnavailable, msg).WithHTTPStatus(status)
	if status == http.StatusTooManyRequests || status >= 500 {
		e = e.WithRetryable(true)
	}
	return e
}
