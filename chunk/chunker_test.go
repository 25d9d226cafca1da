package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/core"
)

func defaultOpts() core.ProcessOptions {
	return core.ProcessOptions{ChunkSize: 200, ChunkOverlap: 40}
}

func TestSplit(t *testing.T) {
	c := NewChunker()

	t.Run("short text is one piece", func(t *testing.T) {
		pieces, err := c.Split("just a short paragraph", defaultOpts())
		require.NoError(t, err)
		require.Len(t, pieces, 1)
		assert.Equal(t, 0, pieces[0].Seq)
		assert.Equal(t, "just a short paragraph", pieces[0].Text)
	})

	t.Run("long text splits within bounds", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 50; i++ {
			b.WriteString("Sentence number with several words in it. ")
		}
		pieces, err := c.Split(b.String(), defaultOpts())
		require.NoError(t, err)
		require.Greater(t, len(pieces), 1)
		for i, p := range pieces {
			assert.Equal(t, i, p.Seq, "seq must be dense and zero-indexed")
			assert.LessOrEqual(t, p.CharCount, 200)
			assert.NotEmpty(t, p.Text)
		}
	})

	t.Run("empty text yields nothing", func(t *testing.T) {
		pieces, err := c.Split("   \n\t  ", defaultOpts())
		require.NoError(t, err)
		assert.Empty(t, pieces)
	})

	t.Run("invalid options rejected", func(t *testing.T) {
		_, err := c.Split("text", core.ProcessOptions{ChunkSize: 10, ChunkOverlap: 10})
		assert.ErrorIs(t, err, core.ErrInvalidChunkOptions)
	})
}

func TestSplitDeterminism(t *testing.T) {
	c := NewChunker()
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	first, err := c.Split(text, defaultOpts())
	require.NoError(t, err)
	second, err := c.Split(text, defaultOpts())
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, estimateTokens("ab"))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
}
