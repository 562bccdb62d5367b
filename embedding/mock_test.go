package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider(16)

	first, err := p.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	second, err := p.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)

	assert.Equal(t, first, second, "same text yields the same vector")
}

func TestMockProviderDistinguishesTexts(t *testing.T) {
	p := NewMockProvider(16)

	vecs, err := p.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestMockProviderUnitVectors(t *testing.T) {
	p := NewMockProvider(32)
	assert.Equal(t, 32, p.Dimensions())

	vecs, err := p.Embed(context.Background(), []string{"normalize me"})
	require.NoError(t, err)
	require.Len(t, vecs[0], 32)

	var norm float64
	for _, v := range vecs[0] {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestMockProviderDefaultDimensions(t *testing.T) {
	p := NewMockProvider(0)
	assert.Equal(t, 16, p.Dimensions())
}
