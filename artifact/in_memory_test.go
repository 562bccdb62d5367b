package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGetRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Save("s-1", "a-1", []byte("report")))

	data, err := s.Get("s-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("report"), data)
}

func TestGetCopiesBytes(t *testing.T) {
	s := NewInMemoryStore()
	original := []byte("immutable")
	require.NoError(t, s.Save("s-1", "a-1", original))

	original[0] = 'X'
	data, err := s.Get("s-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), data)

	data[0] = 'Y'
	again, err := s.Get("s-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), again)
}

func TestArtifactsAreSessionScoped(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Save("s-1", "a-1", []byte("one")))

	_, err := s.Get("s-2", "a-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Save("s-1", "a-1", []byte("one")))
	require.NoError(t, s.Save("s-1", "a-2", []byte("two")))

	ids, err := s.List("s-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a-1", "a-2"}, ids)

	empty, err := s.List("unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDelete(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Save("s-1", "a-1", []byte("one")))

	require.NoError(t, s.Delete("s-1", "a-1"))
	_, err := s.Get("s-1", "a-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete("s-1", "a-1"), ErrNotFound)
	assert.ErrorIs(t, s.Delete("ghost", "a-1"), ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Save("s-1", "a-1", []byte("v1")))
	require.NoError(t, s.Save("s-1", "a-1", []byte("v2")))

	data, err := s.Get("s-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}
