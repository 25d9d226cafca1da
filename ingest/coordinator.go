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
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/blob"
	"github.com/poiesic/corpora/chunk"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/extract"
	"github.com/poiesic/corpora/index"
	"github.com/poiesic/corpora/storage"
)

// DefaultProcessOptions are used when a run supplies none.
var DefaultProcessOptions = core.ProcessOptions{
	ChunkSize:    1024,
	ChunkOverlap: 128,
}

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = time.Second
)

// Coordinator drives document processing: extract, chunk, embed, index,
// commit. One run per document at a time; concurrent runs across documents
// share a bounded worker pool.
type Coordinator struct {
	store    storage.Store
	blobs    *blob.Store
	registry *extract.Registry
	chunker  *chunk.Chunker
	embedder ai.Embedder
	index    index.Store

	pool     *ants.Pool
	locks    *keyedLocks
	logger   *slog.Logger
	defaults core.ProcessOptions

	maxAttempts int
	baseDelay   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(c *Coordinator) error {
		if size < 1 {
			size = 1
		}
		if c.pool != nil {
			c.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "ingest")
		return nil
	}
}

// WithRetry tunes embedding retry behavior.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Coordinator) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
		return nil
	}
}

// WithDefaultOptions overrides the fallback chunking options.
func WithDefaultOptions(opts core.ProcessOptions) Option {
	return func(c *Coordinator) error {
		if err := core.ValidateProcessOptions(opts); err != nil {
			return err
		}
		c.defaults = opts
		return nil
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(
	store storage.Store,
	blobs *blob.Store,
	registry *extract.Registry,
	embedder ai.Embedder,
	idx index.Store,
	opts ...Option,
) (*Coordinator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		store:       store,
		blobs:       blobs,
		registry:    registry,
		chunker:     chunk.NewChunker(),
		embedder:    embedder,
		index:       idx,
		pool:        pool,
		locks:       newKeyedLocks(),
		logger:      slog.Default().With("component", "ingest"),
		defaults:    DefaultProcessOptions,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		if optErr := opt(c); optErr != nil {
			c.Close()
			return nil, optErr
		}
	}
	return c, nil
}

// Submit schedules the first processing run for an uploaded document and
// returns the job id. Returns core.ErrAlreadyProcessing when a run is
// already in flight.
func (c *Coordinator) Submit(ctx context.Context, docID string, opts *core.ProcessOptions) (string, error) {
	return c.schedule(ctx, docID, opts, false)
}

// Reprocess schedules a fresh run for a processed or failed document. The
// previous chunk set stays live and searchable until the new one commits.
func (c *Coordinator) Reprocess(ctx context.Context, docID string, opts *core.ProcessOptions) (string, error) {
	return c.schedule(ctx, docID, opts, true)
}

// Process runs the pipeline synchronously on the caller's goroutine.
// Used by the CLI and tests; Submit/Reprocess are the service path.
func (c *Coordinator) Process(ctx context.Context, docID string, opts *core.ProcessOptions) error {
	doc, job, active, err := c.prepare(ctx, docID, opts, false)
	if err != nil {
		return err
	}
	defer c.locks.Release(docID)
	return c.run(ctx, doc, job, c.resolve(opts), active)
}

func (c *Coordinator) schedule(ctx context.Context, docID string, opts *core.ProcessOptions, reprocess bool) (string, error) {
	doc, job, active, err := c.prepare(ctx, docID, opts, reprocess)
	if err != nil {
		return "", err
	}

	resolved := c.resolve(opts)
	c.wg.Add(1)
	submitErr := c.pool.Submit(func() {
		defer c.wg.Done()
		defer c.locks.Release(docID)
		if err := c.run(c.ctx, doc, job, resolved, active); err != nil {
			c.logger.Error("processing run failed", "document", docID, "error", err)
		}
	})
	if submitErr != nil {
		c.wg.Done()
		c.locks.Release(docID)
		c.abandon(ctx, doc, job, active, submitErr)
		return "", submitErr
	}
	return job.ID, nil
}

// prepare validates the request, claims the per-document lock, records the
// job and moves the document into its active status. On any error the lock
// is released before returning.
func (c *Coordinator) prepare(ctx context.Context, docID string, opts *core.ProcessOptions, reprocess bool) (*core.Document, *core.ProcessingJob, core.DocumentStatus, error) {
	resolved := c.resolve(opts)
	if err := core.ValidateProcessOptions(resolved); err != nil {
		return nil, nil, "", err
	}
	if !c.locks.TryAcquire(docID) {
		return nil, nil, "", core.ErrAlreadyProcessing
	}

	doc, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		c.locks.Release(docID)
		return nil, nil, "", err
	}

	var from, active core.DocumentStatus
	switch doc.Status {
	case core.StatusProcessing, core.StatusReprocessing:
		c.locks.Release(docID)
		return nil, nil, "", core.ErrAlreadyProcessing
	case core.StatusUploaded:
		if reprocess {
			c.locks.Release(docID)
			return nil, nil, "", fmt.Errorf("%w: document has never been processed", core.ErrNotReprocessable)
		}
		from, active = core.StatusUploaded, core.StatusProcessing
	case core.StatusProcessed, core.StatusError:
		if !reprocess {
			c.locks.Release(docID)
			return nil, nil, "", fmt.Errorf("%w: %s → %s", core.ErrIllegalTransition, doc.Status, core.StatusProcessing)
		}
		from, active = doc.Status, core.StatusReprocessing
	default:
		c.locks.Release(docID)
		return nil, nil, "", fmt.Errorf("%w: %q", core.ErrInvalidStatus, doc.Status)
	}

	job := &core.ProcessingJob{
		ID:         core.NewID(),
		DocumentID: docID,
		Options:    resolved,
		Status:     core.JobPending,
	}
	if err := c.store.CreateJob(ctx, job); err != nil {
		c.locks.Release(docID)
		if errors.Is(err, storage.ErrConflict) {
			return nil, nil, "", core.ErrAlreadyProcessing
		}
		return nil, nil, "", err
	}

	if err := c.store.UpdateStatus(ctx, docID, from, active, ""); err != nil {
		job.Status = core.JobFailed
		job.LastError = err.Error()
		if updErr := c.store.UpdateJob(ctx, job); updErr != nil {
			c.logger.Error("failed to record job failure", "job", job.ID, "error", updErr)
		}
		c.locks.Release(docID)
		if errors.Is(err, storage.ErrConflict) {
			return nil, nil, "", core.ErrAlreadyProcessing
		}
		return nil, nil, "", err
	}
	return doc, job, active, nil
}

func (c *Coordinator) resolve(opts *core.ProcessOptions) core.ProcessOptions {
	if opts == nil {
		return c.defaults
	}
	resolved := *opts
	if resolved.ChunkSize == 0 {
		resolved.ChunkSize = c.defaults.ChunkSize
	}
	if resolved.ChunkOverlap == 0 {
		resolved.ChunkOverlap = c.defaults.ChunkOverlap
	}
	return resolved
}

// abandon reverts a prepared run that never made it onto the pool.
func (c *Coordinator) abandon(ctx context.Context, doc *core.Document, job *core.ProcessingJob, active core.DocumentStatus, cause error) {
	if err := c.store.UpdateStatus(ctx, doc.ID, active, core.StatusError, cause.Error()); err != nil {
		c.logger.Error("failed to revert status", "document", doc.ID, "error", err)
	}
	job.Status = core.JobFailed
	job.LastError = cause.Error()
	if err := c.store.UpdateJob(ctx, job); err != nil {
		c.logger.Error("failed to update job", "job", job.ID, "error", err)
	}
}

// Close stops accepting work, cancels in-flight runs, and waits for them to
// unwind before releasing the pool.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
	if c.pool != nil {
		c.pool.Release()
	}
}
