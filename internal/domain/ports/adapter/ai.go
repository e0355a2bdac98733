package adapter

import "context"

// Message represents a chat message sent to a provider.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// CompletionRequest is a single streaming model call.
type CompletionRequest struct {
	Model string
	// Messages are sent as-is. Template flows send one user message holding
	// the rendered prompt.
	Messages    []Message
	Stop        []string
	Temperature *float64
}

// TextStream yields the model's reply incrementally. Next blocks until the
// next chunk is available and returns false at the end of the stream or on
// error; Err reports which. Close must always be called.
type TextStream interface {
	Next() bool
	Text() string
	Err() error
	Close() error
}

// AIServiceAdapter is the port for streaming LLM chat.
type AIServiceAdapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	StreamCompletion(ctx context.Context, req CompletionRequest) (TextStream, error)
}

// TokenCounter estimates prompt size for a model.
type TokenCounter interface {
	Count(model, text string) int
}
