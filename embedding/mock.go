package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockProvider produces deterministic vectors from text content. Identical
// texts map to identical vectors, so similarity tests behave predictably
// without a network dependency.
type MockProvider struct {
	dims int
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock with the given dimensionality.
func NewMockProvider(dims int) *MockProvider {
	if dims <= 0 {
		dims = 16
	}
	return &MockProvider{dims: dims}
}

// Embed implements Provider.
func (p *MockProvider) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = p.vectorFor(text)
	}
	return out, nil
}

// Dimensions implements Provider.
func (p *MockProvider) Dimensions() int {
	return p.dims
}

// vectorFor hashes the text into a unit vector.
func (p *MockProvider) vectorFor(text string) []float64 {
	vec := make([]float64, p.dims)
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float64(int64(seed>>32)) / float64(math.MaxInt32)
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
