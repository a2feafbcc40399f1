package source

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/core"
)

func TestSyntheticSourceProducesConfiguredHeaps(t *testing.T) {
	s, err := NewSyntheticSource(map[string]any{
		"heaps":          3,
		"items_per_heap": 2,
		"item_size":      32,
	})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	for n := 0; n < 3; n++ {
		h, err := s.Next(ctx)
		require.NoError(t, err)
		require.Len(t, h.Items, 3)

		ts := h.Items[0]
		assert.True(t, ts.Inline)
		assert.Equal(t, uint64(timestampID), ts.ID)
		assert.Equal(t, uint64(n), ts.Immediate)

		for i, item := range h.Items[1:] {
			assert.False(t, item.Inline)
			assert.Equal(t, dataBaseID+uint64(i), item.ID)
			require.Len(t, item.Buffer, 32)
			for j, b := range item.Buffer {
				require.Equal(t, byte(n+i+j), b, "heap %d item %d byte %d", n, i, j)
			}
		}
	}

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSyntheticSourceDefaults(t *testing.T) {
	s, err := NewSyntheticSource(nil)
	require.NoError(t, err)

	h, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, h.Items, 2)
	assert.Len(t, h.Items[1].Buffer, 65536)
}

func TestSyntheticSourceRejectsBadOptions(t *testing.T) {
	_, err := NewSyntheticSource(map[string]any{"item_size": 0})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	_, err = NewSyntheticSource(map[string]any{"items_per_heap": -1})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestSyntheticSourceHonorsContext(t *testing.T) {
	s, err := NewSyntheticSource(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSourceFactory(t *testing.T) {
	s, err := New(config.SourceConfig{Type: "synthetic", Options: map[string]any{"heaps": 1}})
	require.NoError(t, err)
	assert.IsType(t, &SyntheticSource{}, s)

	_, err = New(config.SourceConfig{Type: "bogus"})
	assert.ErrorIs(t, err, core.ErrSourceUnknown)
}
