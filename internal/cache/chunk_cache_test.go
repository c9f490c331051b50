package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultai/internal/model"
)

func TestMemoryChunkCache(t *testing.T) {
	c := NewMemoryChunkCache()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	chunks := []model.DocumentChunk{{Filename: "a.pdf", Type: model.SourcePDF, PageNum: 1, Content: "hello"}}
	require.NoError(t, c.Set(ctx, "abc", chunks))
	chunks[0].Content = "mutated"

	got, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", got[0].Content)
}

func TestChunkKey(t *testing.T) {
	assert.Equal(t, "vaultai:chunks:deadbeef", chunkKey("deadbeef"))
}
