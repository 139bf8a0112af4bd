// Package llm defines the chat-completion and embedding provider contract
// and an OpenAI-compatible HTTP implementation.
package llm
