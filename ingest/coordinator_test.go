package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/ai"
	aimock "github.com/poiesic/corpora/ai/mock"
	"github.com/poiesic/corpora/blob"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/extract"
	indexmem "github.com/poiesic/corpora/index/memory"
	"github.com/poiesic/corpora/storage"
	"github.com/poiesic/corpora/storage/memory"
)

type fixture struct {
	store    *memory.Store
	blobs    *blob.Store
	embedder *aimock.Embedder
	index    *indexmem.Index
	coord    *Coordinator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store := memory.NewStore()
	blobs, err := blob.Open("", true)
	require.NoError(t, err)

	embedder := &aimock.Embedder{Dim: 8, Limit: 4}
	idx := indexmem.NewIndex()

	registry := extract.NewRegistry()
	registry.Register(core.TypeText, extract.NewTextExtractor())

	defaults := []Option{WithRetry(3, time.Millisecond), WithDefaultOptions(core.ProcessOptions{
		ChunkSize: 128, ChunkOverlap: 16,
	})}
	coord, err := NewCoordinator(store, blobs, registry, embedder, idx, append(defaults, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		coord.Close()
		_ = blobs.Close()
		_ = store.Close()
	})
	return &fixture{store: store, blobs: blobs, embedder: embedder, index: idx, coord: coord}
}

func (f *fixture) addDocument(t *testing.T, content string) *core.Document {
	t.Helper()
	doc := &core.Document{
		ID: core.NewID(), Title: "note", OwnerID: "alice",
		FileName: "note.txt", Type: core.TypeText, Status: core.StatusUploaded,
	}
	require.NoError(t, f.store.CreateDocument(context.Background(), doc))
	require.NoError(t, f.blobs.Put(doc.ID, []byte(content)))
	return doc
}

func (f *fixture) status(t *testing.T, id string) core.DocumentStatus {
	t.Helper()
	doc, err := f.store.GetDocument(context.Background(), id)
	require.NoError(t, err)
	return doc.Status
}

func TestProcessSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, strings.Repeat("Interesting sentence about databases. ", 20))

	require.NoError(t, f.coord.Process(ctx, doc.ID, nil))

	got, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusProcessed, got.Status)
	assert.Equal(t, 1, got.Version)
	assert.NotEmpty(t, got.ContentHash)
	assert.Empty(t, got.LastError)

	chunks, err := f.store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 0, chunks[0].Seq)
	assert.Equal(t, got.ChunkCount, len(chunks))
	assert.Len(t, chunks[0].Embedding, 8)
	assert.Equal(t, len(chunks), f.index.Len())

	_, err = f.store.GetActiveJob(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProcessContention(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "some text to process")

	release := make(chan struct{})
	started := make(chan struct{})
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		close(started)
		<-release
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = aimock.DeterministicVector(text, 8)
		}
		return out, nil
	}

	_, err := f.coord.Submit(ctx, doc.ID, nil)
	require.NoError(t, err)
	<-started

	_, err = f.coord.Submit(ctx, doc.ID, nil)
	assert.ErrorIs(t, err, core.ErrAlreadyProcessing)

	close(release)
	require.Eventually(t, func() bool {
		return f.status(t, doc.ID) == core.StatusProcessed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProcessFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "good text")
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, ai.NewFatalEmbeddingError(errors.New("model does not exist"))
	}

	err := f.coord.Process(ctx, doc.ID, nil)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageEmbed, stageErr.Stage)

	got, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusError, got.Status)
	assert.Contains(t, got.LastError, "embed:")
	assert.Equal(t, 0, got.Version)

	chunks, err := f.store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, f.index.Len())

	// fatal errors burn exactly one attempt
	assert.Equal(t, 1, f.embedder.CallCount())
}

func TestTransientEmbedRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "short text")

	calls := 0
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls < 3 {
			return nil, ai.NewTransientEmbeddingError(errors.New("rate limited"))
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = aimock.DeterministicVector(text, 8)
		}
		return out, nil
	}

	require.NoError(t, f.coord.Process(ctx, doc.ID, nil))
	assert.Equal(t, 3, calls)
	assert.Equal(t, core.StatusProcessed, f.status(t, doc.ID))
}

func TestEmptyDocumentProcesses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "   \n\t ")

	require.NoError(t, f.coord.Process(ctx, doc.ID, nil))

	got, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusProcessed, got.Status)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, 0, got.ChunkCount)
	assert.NotEmpty(t, got.ContentHash)
	assert.Empty(t, got.LastError)

	chunks, err := f.store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, f.index.Len())
	assert.Equal(t, 0, f.embedder.CallCount())
}

func TestConcurrentMetadataEditSurvivesRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "text that takes a while to embed")

	release := make(chan struct{})
	started := make(chan struct{})
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		close(started)
		<-release
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = aimock.DeterministicVector(text, 8)
		}
		return out, nil
	}

	_, err := f.coord.Submit(ctx, doc.ID, nil)
	require.NoError(t, err)
	<-started

	// edit metadata while the run is in flight
	mid, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	mid.Title = "renamed mid-run"
	require.NoError(t, f.store.UpdateDocument(ctx, mid))

	close(release)
	require.Eventually(t, func() bool {
		return f.status(t, doc.ID) == core.StatusProcessed
	}, 5*time.Second, 10*time.Millisecond)

	got, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed mid-run", got.Title)
	assert.NotEmpty(t, got.ContentHash)
}

func TestReprocess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "original content for the first pass")
	require.NoError(t, f.coord.Process(ctx, doc.ID, nil))

	firstChunks, err := f.store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, f.blobs.Put(doc.ID, []byte("entirely different second draft")))
	_, err = f.coord.Reprocess(ctx, doc.ID, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := f.store.GetDocument(ctx, doc.ID)
		return err == nil && got.Status == core.StatusProcessed && got.Version == 2
	}, 5*time.Second, 10*time.Millisecond)

	secondChunks, err := f.store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, secondChunks)
	assert.NotEqual(t, firstChunks[0].Text, secondChunks[0].Text)

	// superseded entries left the index with the old revision
	assert.Equal(t, len(secondChunks), f.index.Len())
}

func TestReprocessGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "content")

	t.Run("reprocess before first run", func(t *testing.T) {
		_, err := f.coord.Reprocess(ctx, doc.ID, nil)
		assert.ErrorIs(t, err, core.ErrNotReprocessable)
	})

	require.NoError(t, f.coord.Process(ctx, doc.ID, nil))

	t.Run("submit on processed document", func(t *testing.T) {
		_, err := f.coord.Submit(ctx, doc.ID, nil)
		assert.ErrorIs(t, err, core.ErrIllegalTransition)
	})

	t.Run("reprocess after error is allowed", func(t *testing.T) {
		f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, ai.NewFatalEmbeddingError(errors.New("down"))
		}
		_, err := f.coord.Reprocess(ctx, doc.ID, nil)
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return f.status(t, doc.ID) == core.StatusError
		}, 5*time.Second, 10*time.Millisecond)

		f.embedder.EmbedTextsFunc = nil
		_, err = f.coord.Reprocess(ctx, doc.ID, nil)
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return f.status(t, doc.ID) == core.StatusProcessed
		}, 5*time.Second, 10*time.Millisecond)
	})
}

func TestProcessInvalidOptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, "content")

	err := f.coord.Process(ctx, doc.ID, &core.ProcessOptions{ChunkSize: 100, ChunkOverlap: 100})
	assert.ErrorIs(t, err, core.ErrInvalidChunkOptions)
	assert.Equal(t, core.StatusUploaded, f.status(t, doc.ID))
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("zero attempts", func(t *testing.T) {
		err := RetryWithBackoff(ctx, func() error { return nil }, 0, time.Millisecond, nil)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("eventual success", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("flaky")
			}
			return nil
		}, 5, time.Millisecond, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable stops immediately", func(t *testing.T) {
		calls := 0
		permanent := errors.New("permanent")
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return permanent
		}, 5, time.Millisecond, func(error) bool { return false })
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := RetryWithBackoff(cctx, func() error { return errors.New("never") }, 3, time.Millisecond, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
