package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/index"
)

func chunkWith(docID string, vec []float32) *core.Chunk {
	return &core.Chunk{ID: core.NewID(), DocumentID: docID, Embedding: vec}
}

func TestUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	x := NewIndex()

	near := chunkWith("doc-a", []float32{1, 0, 0})
	far := chunkWith("doc-b", []float32{0, 1, 0})
	require.NoError(t, x.Upsert(ctx, []*core.Chunk{near, far}))

	matches, err := x.Query(ctx, []float32{1, 0, 0}, index.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, near.ID, matches[0].ChunkID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	x := NewIndex()

	chunk := chunkWith("doc-a", []float32{1, 0})
	require.NoError(t, x.Upsert(ctx, []*core.Chunk{chunk}))

	chunk.Embedding = []float32{0, 1}
	require.NoError(t, x.Upsert(ctx, []*core.Chunk{chunk}))

	assert.Equal(t, 1, x.Len())
	matches, err := x.Query(ctx, []float32{0, 1}, index.Filter{}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestDeleteChunks(t *testing.T) {
	ctx := context.Background()
	x := NewIndex()

	a := chunkWith("doc-a", []float32{1, 0})
	b := chunkWith("doc-a", []float32{0, 1})
	require.NoError(t, x.Upsert(ctx, []*core.Chunk{a, b}))

	require.NoError(t, x.DeleteChunks(ctx, []string{a.ID, "never-indexed"}))
	assert.Equal(t, 1, x.Len())
}

func TestDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	x := NewIndex()

	require.NoError(t, x.Upsert(ctx, []*core.Chunk{
		chunkWith("doc-a", []float32{1, 0}),
		chunkWith("doc-a", []float32{0.9, 0.1}),
		chunkWith("doc-b", []float32{0, 1}),
	}))

	require.NoError(t, x.DeleteByDocument(ctx, "doc-a"))
	assert.Equal(t, 1, x.Len())

	matches, err := x.Query(ctx, []float32{1, 0}, index.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-b", matches[0].DocumentID)
}

func TestQueryFilterAndStaleDimensions(t *testing.T) {
	ctx := context.Background()
	x := NewIndex()

	require.NoError(t, x.Upsert(ctx, []*core.Chunk{
		chunkWith("doc-a", []float32{1, 0}),
		chunkWith("doc-b", []float32{1, 0}),
		chunkWith("doc-c", []float32{1, 0, 0}), // embedded under an older model
	}))

	t.Run("document filter", func(t *testing.T) {
		matches, err := x.Query(ctx, []float32{1, 0}, index.Filter{DocumentIDs: []string{"doc-b"}}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "doc-b", matches[0].DocumentID)
	})

	t.Run("mismatched dimension excluded", func(t *testing.T) {
		matches, err := x.Query(ctx, []float32{1, 0}, index.Filter{}, 10)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
		for _, m := range matches {
			assert.NotEqual(t, "doc-c", m.DocumentID)
		}
	})
}
