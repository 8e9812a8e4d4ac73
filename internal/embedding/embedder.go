// File path: internal/embedding/embedder.go
package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nicodishanthj/reqlens/internal/common"
	"github.com/nicodishanthj/reqlens/internal/llm/providers"
)

const (
	defaultDimensions  = 384
	defaultMaxInputLen = 8192
)

// ErrInputTooLong marks an input rejected by the length guard before any
// provider call is made.
var ErrInputTooLong = errors.New("embedding input exceeds maximum length")

// Error reports which input of a batch failed and why, so callers can skip
// the offending record and continue with the rest.
type Error struct {
	Index int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding input %d: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Embedder turns text into fixed-dimension vectors. Output order matches
// input order, one vector per input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// ProviderEmbedder delegates to a language-model provider and enforces the
// length guard and dimension contract around it.
type ProviderEmbedder struct {
	provider   providers.Provider
	dimensions int
	maxInput   int
}

func NewProviderEmbedder(provider providers.Provider, dimensions int) *ProviderEmbedder {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	maxInput := defaultMaxInputLen
	if raw := strings.TrimSpace(os.Getenv("EMBED_MAX_INPUT")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxInput = parsed
		}
	}
	return &ProviderEmbedder{provider: provider, dimensions: dimensions, maxInput: maxInput}
}

func (p *ProviderEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.provider == nil {
		return nil, errors.New("nil embedding provider")
	}
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, &Error{Index: i, Err: errors.New("empty input")}
		}
		if len(text) > p.maxInput {
			return nil, &Error{Index: i, Err: ErrInputTooLong}
		}
	}
	vectors, err := p.provider.Embed(ctx, texts)
	if err != nil {
		common.Logger().Error("embedding: provider call failed", "provider", p.provider.Name(), "error", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != p.dimensions {
			return nil, &Error{Index: i, Err: fmt.Errorf("vector has %d dimensions, want %d", len(vec), p.dimensions)}
		}
	}
	return vectors, nil
}

func (p *ProviderEmbedder) Dimensions() int { return p.dimensions }

func (p *ProviderEmbedder) Name() string {
	if p.provider == nil {
		return "none"
	}
	return p.provider.Name()
}

// HashEmbedder produces deterministic vectors with no network dependency.
// Used when no provider credentials are configured and in tests.
type HashEmbedder struct {
	dimensions int
	maxInput   int
}

func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	return &HashEmbedder{dimensions: dimensions, maxInput: defaultMaxInputLen}
}

func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, &Error{Index: i, Err: errors.New("empty input")}
		}
		if len(text) > h.maxInput {
			return nil, &Error{Index: i, Err: ErrInputTooLong}
		}
		vectors[i] = providers.HashVector(text, h.dimensions)
	}
	return vectors, nil
}

func (h *HashEmbedder) Dimensions() int { return h.dimensions }

func (h *HashEmbedder) Name() string { return "hash" }

// NewEmbedder selects the embedding backend from the environment. EMBED_DIM
// overrides the default dimensionality and must match the vector collection.
func NewEmbedder(ctx context.Context) Embedder {
	dimensions := defaultDimensions
	if raw := strings.TrimSpace(os.Getenv("EMBED_DIM")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			dimensions = parsed
		}
	}
	logger := common.Logger()
	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "" || strings.TrimSpace(os.Getenv("GEMINI_API_KEY")) != "" {
		embedder := NewProviderEmbedder(providerFromEnv(ctx), dimensions)
		logger.Info("embedding: provider embedder selected", "provider", embedder.Name(), "dimensions", dimensions)
		return embedder
	}
	logger.Warn("embedding: no API keys set; using deterministic hash embedder", "dimensions", dimensions)
	return NewHashEmbedder(dimensions)
}

func providerFromEnv(ctx context.Context) providers.Provider {
	if apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); apiKey != "" {
		if provider, err := providers.NewOpenAIProvider(apiKey); err == nil {
			return provider
		}
	}
	if apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); apiKey != "" {
		if provider, err := providers.NewGeminiProvider(ctx, apiKey); err == nil {
			return provider
		}
	}
	return providers.NewLocalProvider(0)
}
