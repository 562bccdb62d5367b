package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRanksByCosineSimilarity(t *testing.T) {
	d := NewInMemoryDriver()
	err := d.Upsert(context.Background(), "docs", []Document{
		{ID: "east", Vector: []float64{1, 0}},
		{ID: "north", Vector: []float64{0, 1}},
		{ID: "northeast", Vector: []float64{1, 1}},
	})
	require.NoError(t, err)

	matches, err := d.Query(context.Background(), "docs", []float64{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "east", matches[0].Document.ID)
	assert.Equal(t, "northeast", matches[1].Document.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestQueryTopKZero(t *testing.T) {
	d := NewInMemoryDriver()
	require.NoError(t, d.Upsert(context.Background(), "docs", []Document{{ID: "a", Vector: []float64{1}}}))

	matches, err := d.Query(context.Background(), "docs", []float64{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryDimensionMismatch(t *testing.T) {
	d := NewInMemoryDriver()
	require.NoError(t, d.Upsert(context.Background(), "docs", []Document{{ID: "a", Vector: []float64{1, 0}}}))

	_, err := d.Query(context.Background(), "docs", []float64{1}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions differ")
}

func TestUpsertReplacesByID(t *testing.T) {
	d := NewInMemoryDriver()
	require.NoError(t, d.Upsert(context.Background(), "docs", []Document{{ID: "a", Text: "old", Vector: []float64{1, 0}}}))
	require.NoError(t, d.Upsert(context.Background(), "docs", []Document{{ID: "a", Text: "new", Vector: []float64{1, 0}}}))

	matches, err := d.Query(context.Background(), "docs", []float64{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Document.Text)
}

func TestUpsertRequiresID(t *testing.T) {
	d := NewInMemoryDriver()
	err := d.Upsert(context.Background(), "docs", []Document{{Vector: []float64{1}}})
	require.Error(t, err)
}

func TestDeleteIgnoresUnknownIDs(t *testing.T) {
	d := NewInMemoryDriver()
	require.NoError(t, d.Upsert(context.Background(), "docs", []Document{{ID: "a", Vector: []float64{1}}}))

	require.NoError(t, d.Delete(context.Background(), "docs", []string{"a", "ghost"}))

	matches, err := d.Query(context.Background(), "docs", []float64{1}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDocumentsAreCopied(t *testing.T) {
	d := NewInMemoryDriver()
	vec := []float64{1, 0}
	meta := map[string]any{"lang": "en"}
	require.NoError(t, d.Upsert(context.Background(), "docs", []Document{{ID: "a", Vector: vec, Metadata: meta}}))

	vec[0] = 99
	meta["lang"] = "de"

	matches, err := d.Query(context.Background(), "docs", []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, []float64{1, 0}, matches[0].Document.Vector)
	assert.Equal(t, "en", matches[0].Document.Metadata["lang"])
}
