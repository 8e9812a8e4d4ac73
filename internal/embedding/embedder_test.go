// File path: internal/embedding/embedder_test.go
package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/nicodishanthj/reqlens/internal/llm/providers"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	embedder := NewHashEmbedder(384)
	first, err := embedder.Embed(context.Background(), []string{"validate customer credit limit"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := embedder.Embed(context.Background(), []string{"validate customer credit limit"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(first) != 1 || len(first[0]) != 384 {
		t.Fatalf("unexpected shape: %d x %d", len(first), len(first[0]))
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestHashEmbedderUnitLength(t *testing.T) {
	embedder := NewHashEmbedder(64)
	vectors, err := embedder.Embed(context.Background(), []string{"orders over the limit require review"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	var norm float64
	for _, v := range vectors[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Fatalf("expected unit vector, norm %f", math.Sqrt(norm))
	}
}

func TestHashEmbedderRejectsOversizedInput(t *testing.T) {
	embedder := NewHashEmbedder(16)
	inputs := []string{"short ok text", strings.Repeat("x", defaultMaxInputLen+1)}
	_, err := embedder.Embed(context.Background(), inputs)
	var embedErr *Error
	if !errors.As(err, &embedErr) {
		t.Fatalf("expected embedding Error, got %v", err)
	}
	if embedErr.Index != 1 {
		t.Fatalf("expected index 1, got %d", embedErr.Index)
	}
	if !errors.Is(err, ErrInputTooLong) {
		t.Fatalf("expected ErrInputTooLong, got %v", err)
	}
}

func TestHashEmbedderRejectsEmptyInput(t *testing.T) {
	embedder := NewHashEmbedder(16)
	_, err := embedder.Embed(context.Background(), []string{"fine", "   "})
	var embedErr *Error
	if !errors.As(err, &embedErr) || embedErr.Index != 1 {
		t.Fatalf("expected Error at index 1, got %v", err)
	}
}

type fixedDimProvider struct {
	dims int
}

func (f *fixedDimProvider) Chat(ctx context.Context, messages []providers.Message) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fixedDimProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	out := make([][]float32, len(input))
	for i := range input {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *fixedDimProvider) Name() string { return "fixed" }

func TestProviderEmbedderValidatesDimensions(t *testing.T) {
	embedder := NewProviderEmbedder(&fixedDimProvider{dims: 8}, 384)
	_, err := embedder.Embed(context.Background(), []string{"some text"})
	var embedErr *Error
	if !errors.As(err, &embedErr) {
		t.Fatalf("expected dimension error, got %v", err)
	}
	if !strings.Contains(embedErr.Err.Error(), "want 384") {
		t.Fatalf("unexpected error detail: %v", embedErr.Err)
	}
}

func TestProviderEmbedderGuardsBeforeCall(t *testing.T) {
	embedder := NewProviderEmbedder(&fixedDimProvider{dims: 384}, 384)
	_, err := embedder.Embed(context.Background(), []string{strings.Repeat("y", defaultMaxInputLen+1)})
	if !errors.Is(err, ErrInputTooLong) {
		t.Fatalf("expected ErrInputTooLong before provider call, got %v", err)
	}
	vectors, err := embedder.Embed(context.Background(), []string{"ok input"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != 384 {
		t.Fatalf("unexpected shape")
	}
}
