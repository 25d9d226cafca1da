package openai

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/corpora/ai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder   embeddings.Embedder
	dimension  int
	batchLimit int
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:   embedder,
		dimension:  config.EmbeddingDimension,
		batchLimit: config.EmbeddingBatchLimit,
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Dimension returns the declared output dimension of the configured model.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// BatchLimit returns the maximum number of texts per EmbedTexts call.
func (e *Embedder) BatchLimit() int {
	return e.batchLimit
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return nil, ai.NewFatalEmbeddingError(errors.New("provider returned no vectors"))
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a
// batch. Every returned vector is checked against the declared dimension;
// a mismatch is a fatal embedding error.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) > e.batchLimit {
		return nil, ai.NewFatalEmbeddingError(ai.ErrBatchLimitExceeded)
	}

	e.logger.Debug("generating embeddings", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, classify(err)
	}

	for i, vec := range vectors {
		if len(vec) != e.dimension {
			e.logger.Error("provider returned wrong dimension",
				"index", i, "got", len(vec), "want", e.dimension)
			return nil, ai.NewFatalEmbeddingError(ai.ErrDimensionMismatch)
		}
	}

	return vectors, nil
}

// classify maps a provider error into the retry taxonomy. Rate limits,
// timeouts and temporary network failures are transient; auth and invalid
// input failures are fatal.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ai.NewTransientEmbeddingError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ai.NewTransientEmbeddingError(err)
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "timeout", "temporarily", "overloaded", "unavailable"} {
		if strings.Contains(msg, marker) {
			return ai.NewTransientEmbeddingError(err)
		}
	}
	return ai.NewFatalEmbeddingError(err)
}
