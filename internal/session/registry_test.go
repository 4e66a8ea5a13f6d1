package session

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backpro/internal/encoder"
	"backpro/internal/storage"
	"backpro/internal/upload"
)

type nopGenerator struct{}

func (nopGenerator) Call(context.Context, string, string, string, string) ([]byte, error) {
	return []byte("img"), nil
}

func newRegistry(t *testing.T) (*Registry, *storage.MemoryStore, *time.Time) {
	t.Helper()
	store := storage.NewMemoryStore()
	r := NewRegistry(store, encoder.New(store), nopGenerator{}, nil, zerolog.Nop())
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, store, &now
}

func selectPNG(t *testing.T, ws *Workspace, slot upload.Slot) {
	t.Helper()
	_, err := ws.Uploads.Select(context.Background(), slot, upload.Candidate{
		Name:      "p.png",
		MediaType: "image/png",
		Body:      bytes.NewReader([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}),
	})
	require.NoError(t, err)
}

func TestAcquire(t *testing.T) {
	r, _, _ := newRegistry(t)

	ws, created := r.Acquire("")
	require.True(t, created)
	assert.NotEmpty(t, ws.ID)

	again, created := r.Acquire(ws.ID)
	assert.False(t, created)
	assert.Same(t, ws, again)

	other, created := r.Acquire("forged-or-expired")
	assert.True(t, created)
	assert.NotEqual(t, "forged-or-expired", other.ID)
	assert.Equal(t, 2, r.Len())
}

func TestWorkspacesAreIndependent(t *testing.T) {
	r, _, _ := newRegistry(t)
	a, _ := r.Acquire("")
	b, _ := r.Acquire("")

	selectPNG(t, a, upload.SlotChild)
	selectPNG(t, a, upload.SlotAdult)

	assert.True(t, a.Generation.CanGenerate())
	assert.False(t, b.Generation.CanGenerate())
}

func TestSweepReleasesIdleWorkspaces(t *testing.T) {
	r, store, now := newRegistry(t)

	stale, _ := r.Acquire("")
	selectPNG(t, stale, upload.SlotChild)

	*now = now.Add(90 * time.Minute)
	fresh, _ := r.Acquire("")
	selectPNG(t, fresh, upload.SlotAdult)
	require.Equal(t, 2, store.Len())

	*now = now.Add(40 * time.Minute)
	removed := r.Sweep(context.Background(), time.Hour)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, store.Len())

	same, created := r.Acquire(fresh.ID)
	assert.False(t, created)
	assert.Same(t, fresh, same)
	replacement, created := r.Acquire(stale.ID)
	assert.True(t, created)
	assert.NotEqual(t, stale.ID, replacement.ID)
}

func TestClose(t *testing.T) {
	r, store, _ := newRegistry(t)
	ws, _ := r.Acquire("")
	selectPNG(t, ws, upload.SlotChild)
	selectPNG(t, ws, upload.SlotAdult)

	r.Close(context.Background())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, store.Len())
}
