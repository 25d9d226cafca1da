package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts. Callers must not exceed BatchLimit texts per call.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed output dimension the provider declares for
	// its model. Every returned vector must have exactly this length.
	Dimension() int

	// BatchLimit returns the maximum number of texts accepted per
	// EmbedTexts call.
	BatchLimit() int
}

// Recognizer converts non-text media into text: OCR engines for raster
// images, speech recognition for audio. Both share one contract so the
// ingestion pipeline need not know the media type.
// Implementations must be thread-safe for concurrent use.
type Recognizer interface {
	// Recognize extracts text from raw media bytes.
	// Returns an empty string for media with no recognizable content.
	Recognize(ctx context.Context, data []byte) (string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// OCR returns the image recognition service, or nil when the deployment
	// has none configured.
	OCR() Recognizer

	// Transcriber returns the speech recognition service, or nil when the
	// deployment has none configured.
	Transcriber() Recognizer

	// Close releases resources held by the provider and its services.
	Close() error
}
