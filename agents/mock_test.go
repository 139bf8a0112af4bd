package agents

import (
	"context"
	"errors"

	"github.com/BaSui01/docflow/llm"
)

// mockProvider replays canned completions and records requests.
type mockProvider struct {
	responses []string
	err       error
	calls     int
	requests  []llm.CompletionRequest
}

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.calls >= len(m.responses) {
		return nil, errors.New("mock exhausted")
	}
	content := m.responses[m.calls]
	m.calls++
	return &llm.CompletionResponse{Content: content, Model: "mock"}, nil
}

func (m *mockProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (m *mockProvider) Name() string { return "mock" }
