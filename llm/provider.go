package llm

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single chat-completion call.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// JSONMode requests a JSON-object response from providers that support it.
	JSONMode bool `json:"-"`
}

// CompletionResponse is the provider's reply.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	PromptTokens int    `json:"prompt_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Provider is the LLM collaborator contract consumed by the agents. All
// calls honor ctx cancellation; a nil error implies a non-nil response.
type Provider interface {
	// Complete performs one chat completion.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Embed returns one embedding vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// Name identifies the provider for logs and metrics.
	Name() string
}
