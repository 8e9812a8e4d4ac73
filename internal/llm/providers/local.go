// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// LocalProvider needs no network or credentials. Chat answers with a short
// deterministic digest of the prompt; Embed hashes token n-grams into a
// fixed-dimension unit vector. Useful for tests and air-gapped runs.
type LocalProvider struct {
	dimensions int
}

func NewLocalProvider(dimensions int) *LocalProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &LocalProvider{dimensions: dimensions}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1].Content
	fields := strings.Fields(last)
	if len(fields) > 24 {
		fields = fields[:24]
	}
	return fmt.Sprintf("Local summary: %s", strings.Join(fields, " ")), nil
}

func (l *LocalProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(input))
	for i, text := range input {
		vectors[i] = HashVector(text, l.dimensions)
	}
	return vectors, nil
}

func (l *LocalProvider) Name() string {
	return "local"
}

// hashStopwords would otherwise dominate short statements and drown the
// content terms similarity should key on.
var hashStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"after": {}, "be": {}, "before": {}, "by": {}, "for": {}, "from": {},
	"in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "to": {}, "when": {}, "with": {},
}

// bigramWeight keeps word order as a secondary signal without letting
// non-shared bigrams swamp the unigram overlap between short texts.
const bigramWeight = 0.25

// HashVector folds word unigrams and down-weighted bigrams into dim buckets
// via FNV-1a and normalizes to unit length, so cosine similarity behaves
// sensibly for overlapping texts. Stopwords are dropped before hashing.
// Identical input always yields the identical vector.
func HashVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	words := contentWords(text)
	bump := func(token string, weight float32) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		idx := int(sum % uint64(dim))
		sign := weight
		if sum&(1<<63) != 0 {
			sign = -weight
		}
		vec[idx] += sign
	}
	for i, w := range words {
		bump(w, 1)
		if i+1 < len(words) {
			bump(w+" "+words[i+1], bigramWeight)
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// contentWords lowercases, splits, and drops stopwords. A text made entirely
// of stopwords keeps its raw tokens so the vector is never empty.
func contentWords(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	filtered := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := hashStopwords[w]; !stop {
			filtered = append(filtered, w)
		}
	}
	if len(filtered) == 0 {
		return words
	}
	return filtered
}
