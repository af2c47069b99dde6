package llm

import (
	"context"
	"fmt"

	"github.com/raglab/arxrag/internal/config"
)

// Client abstracts a chat + embedding inference backend. The agent loop,
// query engine, and ingestion pipeline depend on this interface instead of a
// concrete provider; the variant is selected once at startup.
type Client interface {
	// Chat sends the conversation to the model and returns the assistant's
	// next message. When tools is non-empty the model may respond with tool
	// calls instead of (or alongside) text content.
	Chat(ctx context.Context, messages []Message, tools []Tool) (Message, error)

	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Message is a chat message in the OpenAI wire shape, which both providers
// map onto.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a model-requested function invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a callable function exposed to the model.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type Function struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Parameters  Parameters `json:"parameters"`
}

type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ForProvider returns the Client variant for the given provider.
func ForProvider(p config.Provider, cfg config.Config) (Client, error) {
	switch p {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAI), nil
	case config.ProviderOllama:
		return NewOllamaClient(cfg.Ollama), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", p)
	}
}
