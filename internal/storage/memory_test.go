package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "k1", strings.NewReader("hello"), 5, "image/png"))

	rc, obj, err := s.Open(ctx, "k1")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "image/png", obj.MediaType)
	assert.EqualValues(t, 5, obj.Size)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreDeleteRevokes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "k1", strings.NewReader("x"), -1, "image/png"))

	require.NoError(t, s.Delete(ctx, "k1"))
	require.NoError(t, s.Delete(ctx, "k1"))

	_, _, err := s.Open(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreShortWrite(t *testing.T) {
	s := NewMemoryStore()
	err := s.Put(context.Background(), "k", strings.NewReader("abc"), 10, "image/png")
	assert.Error(t, err)
}
