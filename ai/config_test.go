package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 768, cfg.EmbeddingDimension)
	assert.Positive(t, cfg.EmbeddingBatchLimit)
}

func TestNewConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithEmbeddingHost("http://localhost:9100"),
		WithEmbeddingModel("text-embedding-3-small"),
		WithEmbeddingDimension(1536),
		WithEmbeddingBatchLimit(100),
		WithAPIToken("secret"),
	)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:9100/v1", cfg.EmbeddingHost)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 1536, cfg.EmbeddingDimension)
	assert.Equal(t, 100, cfg.EmbeddingBatchLimit)
	assert.Equal(t, "secret", cfg.APIToken)
}

func TestConfigNormalize(t *testing.T) {
	t.Run("adds v1 suffix", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://localhost:11434"))
		cfg.Normalize()
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("strips trailing slash before suffix", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://localhost:11434/"))
		cfg.Normalize()
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("idempotent", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://localhost:11434/v1"))
		cfg.Normalize()
		cfg.Normalize()
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("empty host", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty model", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingModel(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero dimension", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingDimension(0))
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero batch limit", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingBatchLimit(0))
		assert.Error(t, cfg.Validate())
	})
}

func TestEmbeddingErrorClassification(t *testing.T) {
	transient := NewTransientEmbeddingError(assert.AnError)
	fatal := NewFatalEmbeddingError(assert.AnError)

	assert.True(t, IsTransient(transient))
	assert.False(t, IsTransient(fatal))
	assert.False(t, IsTransient(assert.AnError))
	assert.ErrorIs(t, transient, assert.AnError)
	assert.ErrorIs(t, fatal, assert.AnError)
}
