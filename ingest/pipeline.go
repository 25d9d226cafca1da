// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

// run executes one processing run. The document holds status `active`
// (processing or reprocessing) on entry and leaves in processed or error.
// New chunks are staged under doc.Version+1 and only become visible at the
// commit stage, so the previous chunk set stays searchable throughout.
func (c *Coordinator) run(ctx context.Context, doc *core.Document, job *core.ProcessingJob, opts core.ProcessOptions, active core.DocumentStatus) error {
	logger := c.logger.With("document", doc.ID, "job", job.ID)
	logger.Info("processing started", "type", doc.Type, "status", active)

	job.Status = core.JobRunning
	job.Attempts++
	if err := c.store.UpdateJob(ctx, job); err != nil {
		logger.Warn("failed to mark job running", "error", err)
	}

	revision := doc.Version + 1
	var stagedIDs []string

	fail := func(stage Stage, cause error) error {
		return c.fail(ctx, logger, doc, job, active, &StageError{Stage: stage, Err: cause}, revision, stagedIDs)
	}
	if err := ctx.Err(); err != nil {
		return fail(StageLoad, err)
	}

	data, err := c.blobs.Get(doc.ID)
	if err != nil {
		return fail(StageLoad, err)
	}

	extracted, err := c.registry.Extract(ctx, doc.Type, data)
	if err != nil {
		return fail(StageExtract, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(StageExtract, err)
	}

	pieces, err := c.chunker.Split(extracted.Text, opts)
	if err != nil {
		return fail(StageChunk, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(StageChunk, err)
	}

	// Zero pieces is a valid outcome: an empty document commits an empty
	// revision and still ends processed.
	chunks := make([]*core.Chunk, len(pieces))
	if len(pieces) > 0 {
		texts := make([]string, len(pieces))
		for i, p := range pieces {
			texts[i] = p.Text
		}
		vectors, err := embedBatches(ctx, c.embedder, texts, c.maxAttempts, c.baseDelay)
		if err != nil {
			return fail(StageEmbed, err)
		}
		if err := ctx.Err(); err != nil {
			return fail(StageEmbed, err)
		}

		stagedIDs = make([]string, len(pieces))
		for i, p := range pieces {
			chunks[i] = &core.Chunk{
				ID:         core.NewID(),
				DocumentID: doc.ID,
				Revision:   revision,
				Seq:        p.Seq,
				Text:       p.Text,
				TokenCount: p.TokenCount,
				CharCount:  p.CharCount,
				Embedding:  vectors[i],
			}
			stagedIDs[i] = chunks[i].ID
		}
	}

	// remembered for index cleanup once the new revision is live
	oldChunks, err := c.store.GetChunks(ctx, doc.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fail(StageStore, err)
	}

	if len(chunks) > 0 {
		if err := c.store.InsertChunks(ctx, chunks); err != nil {
			return fail(StageStore, err)
		}
		if err := c.index.Upsert(ctx, chunks); err != nil {
			return fail(StageIndex, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(StageCommit, err)
	}

	if err := c.store.SwapChunkRevision(ctx, doc.ID, revision); err != nil {
		return fail(StageCommit, err)
	}

	if len(oldChunks) > 0 {
		oldIDs := make([]string, len(oldChunks))
		for i, old := range oldChunks {
			oldIDs[i] = old.ID
		}
		if err := c.index.DeleteChunks(ctx, oldIDs); err != nil {
			logger.Warn("failed to clear superseded index entries", "error", err)
		}
	}

	// Re-read before writing the hash so metadata edited mid-run (title,
	// language) is not clobbered by the snapshot taken at prepare time.
	if fresh, err := c.store.GetDocument(ctx, doc.ID); err != nil {
		logger.Warn("failed to store content hash", "error", err)
	} else {
		fresh.ContentHash = core.ContentHash(extracted.Text)
		if err := c.store.UpdateDocument(ctx, fresh); err != nil {
			logger.Warn("failed to store content hash", "error", err)
		}
	}

	if err := c.store.UpdateStatus(ctx, doc.ID, active, core.StatusProcessed, ""); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// deleted mid-run after commit: chunks cascaded away, clear the index
			c.cleanupDeleted(ctx, logger, doc.ID)
			return nil
		}
		return fail(StageCommit, err)
	}

	job.Status = core.JobCompleted
	job.LastError = ""
	if err := c.store.UpdateJob(ctx, job); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("failed to mark job completed", "error", err)
	}

	logger.Info("processing complete", "chunks", len(chunks), "revision", revision)
	return nil
}

// fail rolls back the staged revision and records the failure. A cancelled
// context marks the job cancelled rather than failed; a document deleted
// mid-run just gets its index entries cleared.
func (c *Coordinator) fail(ctx context.Context, logger *slog.Logger, doc *core.Document, job *core.ProcessingJob, active core.DocumentStatus, stageErr *StageError, revision int, stagedIDs []string) error {
	// rollback runs on a fresh context so cancellation cannot strand
	// half-staged data
	cleanupCtx := context.Background()

	if err := c.store.DeleteRevision(cleanupCtx, doc.ID, revision); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Error("failed to roll back staged chunks", "revision", revision, "error", err)
	}
	if len(stagedIDs) > 0 {
		if err := c.index.DeleteChunks(cleanupCtx, stagedIDs); err != nil {
			logger.Error("failed to roll back staged index entries", "error", err)
		}
	}

	cancelled := errors.Is(stageErr.Err, context.Canceled) || errors.Is(stageErr.Err, context.DeadlineExceeded) || ctx.Err() != nil

	if err := c.store.UpdateStatus(cleanupCtx, doc.ID, active, core.StatusError, stageErr.Error()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.cleanupDeleted(cleanupCtx, logger, doc.ID)
			return stageErr
		}
		logger.Error("failed to record error status", "error", err)
	}

	if cancelled {
		job.Status = core.JobCancelled
	} else {
		job.Status = core.JobFailed
	}
	job.LastError = stageErr.Error()
	if err := c.store.UpdateJob(cleanupCtx, job); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Error("failed to update job", "error", err)
	}

	logger.Error("processing failed", "stage", stageErr.Stage, "cancelled", cancelled, "error", stageErr.Err)
	return stageErr
}

// cleanupDeleted clears index entries for a document removed mid-run.
func (c *Coordinator) cleanupDeleted(ctx context.Context, logger *slog.Logger, docID string) {
	if err := c.index.DeleteByDocument(ctx, docID); err != nil {
		logger.Error("failed to clear index for deleted document", "error", err)
	}
	logger.Info("document deleted during processing; run abandoned")
}
