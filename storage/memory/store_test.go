package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

func newDoc(owner, title string) *core.Document {
	return &core.Document{
		ID:       core.NewID(),
		Title:    title,
		OwnerID:  owner,
		FileName: title + ".txt",
		Type:     core.TypeText,
		Status:   core.StatusUploaded,
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	doc := newDoc("alice", "notes")
	require.NoError(t, store.CreateDocument(ctx, doc))

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := store.CreateDocument(ctx, doc)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		got.Title = "mutated"
		again, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "notes", again.Title)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := store.GetDocument(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("update touches metadata only", func(t *testing.T) {
		edit := *doc
		edit.Title = "renamed"
		edit.Status = core.StatusProcessed // must be ignored
		require.NoError(t, store.UpdateDocument(ctx, &edit))

		got, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.Equal(t, core.StatusUploaded, got.Status)
	})
}

func TestUpdateStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	doc := newDoc("alice", "cas")
	require.NoError(t, store.CreateDocument(ctx, doc))

	t.Run("legal transition", func(t *testing.T) {
		err := store.UpdateStatus(ctx, doc.ID, core.StatusUploaded, core.StatusProcessing, "")
		require.NoError(t, err)
		got, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, core.StatusProcessing, got.Status)
	})

	t.Run("stale expected status conflicts", func(t *testing.T) {
		err := store.UpdateStatus(ctx, doc.ID, core.StatusUploaded, core.StatusProcessing, "")
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("illegal edge conflicts", func(t *testing.T) {
		err := store.UpdateStatus(ctx, doc.ID, core.StatusProcessing, core.StatusReprocessing, "")
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("error records the cause", func(t *testing.T) {
		err := store.UpdateStatus(ctx, doc.ID, core.StatusProcessing, core.StatusError, "embed failed")
		require.NoError(t, err)
		got, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "embed failed", got.LastError)
	})
}

func TestChunkRevisions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	doc := newDoc("alice", "revisions")
	require.NoError(t, store.CreateDocument(ctx, doc))

	mkChunks := func(rev, n int) []*core.Chunk {
		chunks := make([]*core.Chunk, n)
		for i := range chunks {
			chunks[i] = &core.Chunk{
				ID:         core.NewID(),
				DocumentID: doc.ID,
				Revision:   rev,
				Seq:        i,
				Text:       "chunk",
				Embedding:  []float32{1, 0},
			}
		}
		return chunks
	}

	require.NoError(t, store.InsertChunks(ctx, mkChunks(1, 3)))

	t.Run("staged chunks invisible before swap", func(t *testing.T) {
		got, err := store.GetChunks(ctx, doc.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("swap promotes the revision", func(t *testing.T) {
		require.NoError(t, store.SwapChunkRevision(ctx, doc.ID, 1))
		got, err := store.GetChunks(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, c := range got {
			assert.Equal(t, i, c.Seq)
		}
		d, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, d.Version)
		assert.Equal(t, 3, d.ChunkCount)
	})

	t.Run("second swap drops the old revision", func(t *testing.T) {
		require.NoError(t, store.InsertChunks(ctx, mkChunks(2, 2)))
		require.NoError(t, store.SwapChunkRevision(ctx, doc.ID, 2))

		got, err := store.GetChunks(ctx, doc.ID)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		for _, c := range got {
			assert.Equal(t, 2, c.Revision)
		}
	})

	t.Run("delete revision is a no-op when absent", func(t *testing.T) {
		assert.NoError(t, store.DeleteRevision(ctx, doc.ID, 99))
	})
}

func TestDeleteDocumentCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	doc := newDoc("alice", "cascade")
	require.NoError(t, store.CreateDocument(ctx, doc))
	require.NoError(t, store.InsertChunks(ctx, []*core.Chunk{{
		ID: core.NewID(), DocumentID: doc.ID, Revision: 1, Seq: 0, Text: "x",
	}}))
	require.NoError(t, store.SwapChunkRevision(ctx, doc.ID, 1))

	tag := &core.Tag{ID: core.NewID(), Name: "work"}
	require.NoError(t, store.CreateTag(ctx, tag))
	require.NoError(t, store.AttachTag(ctx, doc.ID, tag.ID))

	require.NoError(t, store.DeleteDocument(ctx, doc.ID))

	_, err := store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := store.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageCount)
}

func TestTagUniquenessAndUsage(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	tag := &core.Tag{ID: core.NewID(), Name: "Research"}
	require.NoError(t, store.CreateTag(ctx, tag))

	t.Run("case-insensitive duplicate rejected", func(t *testing.T) {
		err := store.CreateTag(ctx, &core.Tag{ID: core.NewID(), Name: "research"})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("lookup by any casing", func(t *testing.T) {
		got, err := store.GetTagByName(ctx, "RESEARCH")
		require.NoError(t, err)
		assert.Equal(t, tag.ID, got.ID)
	})

	doc := newDoc("alice", "tagged")
	require.NoError(t, store.CreateDocument(ctx, doc))

	t.Run("attach increments usage once", func(t *testing.T) {
		require.NoError(t, store.AttachTag(ctx, doc.ID, tag.ID))
		err := store.AttachTag(ctx, doc.ID, tag.ID)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		got, err := store.GetTag(ctx, tag.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.UsageCount)
	})

	t.Run("delete blocked while attached", func(t *testing.T) {
		err := store.DeleteTag(ctx, tag.ID)
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("detach decrements and unblocks delete", func(t *testing.T) {
		require.NoError(t, store.DetachTag(ctx, doc.ID, tag.ID))
		err := store.DetachTag(ctx, doc.ID, tag.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, store.DeleteTag(ctx, tag.ID))
		_, err = store.GetTagByName(ctx, "research")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("rename frees the old name", func(t *testing.T) {
		a := &core.Tag{ID: core.NewID(), Name: "alpha"}
		require.NoError(t, store.CreateTag(ctx, a))

		renamed := *a
		renamed.Name = "beta"
		require.NoError(t, store.UpdateTag(ctx, &renamed))

		b := &core.Tag{ID: core.NewID(), Name: "alpha"}
		assert.NoError(t, store.CreateTag(ctx, b))
	})
}

func TestListDocumentsFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	a := newDoc("alice", "alpha")
	a.Language = "en"
	b := newDoc("bob", "beta")
	b.Language = "de"
	b.Type = core.TypePDF
	require.NoError(t, store.CreateDocument(ctx, a))
	require.NoError(t, store.CreateDocument(ctx, b))

	tag := &core.Tag{ID: core.NewID(), Name: "work"}
	require.NoError(t, store.CreateTag(ctx, tag))
	require.NoError(t, store.AttachTag(ctx, a.ID, tag.ID))

	t.Run("by author", func(t *testing.T) {
		got, err := store.ListDocuments(ctx, core.SearchFilters{Author: "bob"}, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("by type", func(t *testing.T) {
		got, err := store.ListDocuments(ctx, core.SearchFilters{Types: []core.DocumentType{core.TypePDF}}, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("by tag", func(t *testing.T) {
		got, err := store.ListDocuments(ctx, core.SearchFilters{Tags: []string{"WORK"}}, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[0].ID)
	})

	t.Run("unknown tag matches nothing", func(t *testing.T) {
		got, err := store.ListDocuments(ctx, core.SearchFilters{Tags: []string{"nope"}}, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("time window", func(t *testing.T) {
		got, err := store.ListDocuments(ctx, core.SearchFilters{
			After: time.Now().Add(time.Hour),
		}, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSearchKeyword(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	doc := newDoc("alice", "quarterly report")
	require.NoError(t, store.CreateDocument(ctx, doc))
	require.NoError(t, store.InsertChunks(ctx, []*core.Chunk{{
		ID: core.NewID(), DocumentID: doc.ID, Revision: 1, Seq: 0,
		Text: "Revenue grew in the third quarter.",
	}}))
	require.NoError(t, store.SwapChunkRevision(ctx, doc.ID, 1))

	t.Run("matches title", func(t *testing.T) {
		got, err := store.SearchKeyword(ctx, []string{"quarterly"}, core.SearchFilters{}, 10)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("matches live chunk text", func(t *testing.T) {
		got, err := store.SearchKeyword(ctx, []string{"revenue"}, core.SearchFilters{}, 10)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("no terms no results", func(t *testing.T) {
		got, err := store.SearchKeyword(ctx, nil, core.SearchFilters{}, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestJobConflict(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	doc := newDoc("alice", "jobbed")
	require.NoError(t, store.CreateDocument(ctx, doc))

	job := &core.ProcessingJob{ID: core.NewID(), DocumentID: doc.ID, Status: core.JobRunning}
	require.NoError(t, store.CreateJob(ctx, job))

	t.Run("second active job conflicts", func(t *testing.T) {
		err := store.CreateJob(ctx, &core.ProcessingJob{
			ID: core.NewID(), DocumentID: doc.ID, Status: core.JobPending,
		})
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("active lookup", func(t *testing.T) {
		got, err := store.GetActiveJob(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
	})

	t.Run("terminal job frees the slot", func(t *testing.T) {
		job.Status = core.JobCompleted
		require.NoError(t, store.UpdateJob(ctx, job))

		_, err := store.GetActiveJob(ctx, doc.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.NoError(t, store.CreateJob(ctx, &core.ProcessingJob{
			ID: core.NewID(), DocumentID: doc.ID, Status: core.JobPending,
		}))
	})
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Close())

	_, err := store.GetDocument(ctx, "any")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	err = store.CreateDocument(ctx, newDoc("alice", "late"))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
