// File path: internal/llm/providers/provider.go
package providers

import "context"

type Message struct {
	Role    string
	Content string
}

// Provider is the minimal contract a language-model backend must satisfy:
// chat completion and ordered batch embedding.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Embed(ctx context.Context, input []string) ([][]float32, error)
	Name() string
}
