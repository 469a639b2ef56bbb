package vector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/vector"
)

func newChunk(id, text string) domain.Chunk {
	return domain.Chunk{
		ChunkID:        id,
		DocumentPartID: "part-1",
		SourcePath:     "/data/a.txt",
		DeviceID:       "dev-1",
		Kind:           domain.SourceFilesystem,
		UnitLocator:    "filesystem:/data/a.txt",
		Index:          0,
		Text:           text,
	}
}

func TestChromemAddQueryRemove(t *testing.T) {
	ctx := context.Background()
	p, err := vector.NewChromemProvider(vector.ChromemConfig{})
	require.NoError(t, err)
	defer p.Close()

	embedding := []float32{1, 0, 0}
	require.NoError(t, p.Add(ctx, newChunk("chunk-1", "hello"), embedding))

	count, err := p.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	exists, err := p.Exists(ctx, "chunk-1")
	require.NoError(t, err)
	require.True(t, exists)

	results, err := p.Query(ctx, embedding, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "chunk-1", results[0].ChunkID)

	require.NoError(t, p.Remove(ctx, []string{"chunk-1"}))
	count, err = p.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	exists, err = p.Exists(ctx, "chunk-1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestChromemAddIsIdempotentForSameID(t *testing.T) {
	ctx := context.Background()
	p, err := vector.NewChromemProvider(vector.ChromemConfig{})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Add(ctx, newChunk("chunk-1", "hello"), []float32{1, 0, 0}))
	require.NoError(t, p.Add(ctx, newChunk("chunk-1", "hello v2"), []float32{0, 1, 0}))

	count, err := p.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count, "re-adding the same chunk id overwrites rather than duplicating")
}
