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


// Package bulk applies one operation across many documents with per-item
// isolation: one bad id never poisons its neighbors, and every requested id
// gets exactly one outcome in request order.
package bulk

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/corpora/auth"
	"github.com/poiesic/corpora/blob"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/index"
	"github.com/poiesic/corpora/ingest"
	"github.com/poiesic/corpora/storage"
	"github.com/poiesic/corpora/tags"
)

const (
	// DefaultMaxBatchSize caps ids per request.
	DefaultMaxBatchSize = 100
	// bulk work stays below the ingest pool so reprocess storms cannot
	// starve interactive uploads
	defaultWorkers = 4
)

// Params carries action-specific inputs.
type Params struct {
	TagNames []string             // tag: names to attach, created on demand
	Title    string               // edit: new title, empty leaves it alone
	Language string               // edit: new language, empty leaves it alone
	Options  *core.ProcessOptions // reprocess: chunking overrides
}

// Orchestrator executes bulk operations.
type Orchestrator struct {
	store      storage.Store
	blobs      *blob.Store
	coord      *ingest.Coordinator
	tagManager *tags.Manager
	index      index.Store
	authorizer auth.Authorizer

	pool     *ants.Pool
	maxBatch int
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithMaxBatchSize overrides the per-request id cap.
func WithMaxBatchSize(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		o.maxBatch = n
		return nil
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			n = 1
		}
		if o.pool != nil {
			o.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "bulk")
		return nil
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	store storage.Store,
	blobs *blob.Store,
	coord *ingest.Coordinator,
	tagManager *tags.Manager,
	idx index.Store,
	authorizer auth.Authorizer,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if coord == nil {
		return nil, ErrCoordinatorRequired
	}
	if tagManager == nil {
		return nil, ErrTagManagerRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}

	pool, err := ants.NewPool(defaultWorkers)
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		store:      store,
		blobs:      blobs,
		coord:      coord,
		tagManager: tagManager,
		index:      idx,
		authorizer: authorizer,
		pool:       pool,
		maxBatch:   DefaultMaxBatchSize,
		logger:     slog.Default().With("component", "bulk"),
	}
	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Close()
			return nil, optErr
		}
	}
	return o, nil
}

// Close releases the worker pool.
func (o *Orchestrator) Close() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// Execute runs action over every id. The result carries one item per
// requested id, in request order, regardless of individual outcomes.
// Oversized batches are rejected whole before any item runs.
func (o *Orchestrator) Execute(ctx context.Context, identity auth.Identity, action core.BulkAction, ids []string, params Params) (*core.BulkResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoDocuments
	}
	if len(ids) > o.maxBatch {
		return nil, fmt.Errorf("%w: %d ids, limit %d", ErrBatchSizeExceeded, len(ids), o.maxBatch)
	}

	switch action {
	case core.BulkDelete, core.BulkTag, core.BulkReprocess, core.BulkEdit:
		if o.authorizer != nil && !o.authorizer.CanBulkEdit(identity) {
			return nil, core.ErrPermissionDenied
		}
	case core.BulkDownload:
		// read-only
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if action == core.BulkEdit && params.Title == "" && params.Language == "" {
		return nil, ErrNothingToEdit
	}

	result := &core.BulkResult{
		OperationID: core.NewID(),
		Action:      action,
		Items:       make([]core.BulkItemResult, len(ids)),
	}
	o.logger.Info("bulk operation started", "operation", result.OperationID, "action", action, "documents", len(ids))

	if action == core.BulkDownload {
		if err := o.download(ctx, ids, result); err != nil {
			return nil, err
		}
	} else {
		o.fanOut(ctx, identity, action, ids, params, result)
	}

	o.logger.Info("bulk operation finished",
		"operation", result.OperationID, "succeeded", result.Succeeded(), "failed", result.Failed())
	return result, nil
}

// fanOut runs one item per worker. Item i writes only results[i], so no
// synchronization beyond the wait group is needed.
func (o *Orchestrator) fanOut(ctx context.Context, identity auth.Identity, action core.BulkAction, ids []string, params Params, result *core.BulkResult) {
	var wg sync.WaitGroup
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		if err := o.pool.Submit(func() {
			defer wg.Done()
			result.Items[i] = o.applyOne(ctx, identity, action, id, params)
		}); err != nil {
			wg.Done()
			result.Items[i] = core.BulkItemResult{DocumentID: id, Error: err.Error()}
		}
	}
	wg.Wait()
}

func (o *Orchestrator) applyOne(ctx context.Context, identity auth.Identity, action core.BulkAction, id string, params Params) core.BulkItemResult {
	var err error
	switch action {
	case core.BulkDelete:
		err = o.deleteOne(ctx, id)
	case core.BulkTag:
		err = o.tagOne(ctx, identity, id, params.TagNames)
	case core.BulkReprocess:
		_, err = o.coord.Reprocess(ctx, id, params.Options)
	case core.BulkEdit:
		err = o.editOne(ctx, id, params)
	}
	if err != nil {
		return core.BulkItemResult{DocumentID: id, Error: err.Error()}
	}
	return core.BulkItemResult{DocumentID: id, Success: true}
}

// deleteOne removes the document everywhere: metadata (chunks and
// associations cascade), blob payload, index entries.
func (o *Orchestrator) deleteOne(ctx context.Context, id string) error {
	if err := o.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := o.blobs.Delete(id); err != nil {
		o.logger.Warn("orphaned blob left behind", "document", id, "error", err)
	}
	if err := o.index.DeleteByDocument(ctx, id); err != nil {
		o.logger.Warn("orphaned index entries left behind", "document", id, "error", err)
	}
	return nil
}

// tagOne attaches every requested tag. A tag already present counts as
// success; the operation is idempotent per tag.
func (o *Orchestrator) tagOne(ctx context.Context, identity auth.Identity, id string, names []string) error {
	if len(names) == 0 {
		return errors.New("no tags given")
	}
	for _, name := range names {
		if _, err := o.tagManager.Attach(ctx, identity, id, name); err != nil {
			if errors.Is(err, tags.ErrAlreadyAttached) {
				continue
			}
			return err
		}
	}
	return nil
}

func (o *Orchestrator) editOne(ctx context.Context, id string, params Params) error {
	doc, err := o.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if params.Title != "" {
		doc.Title = params.Title
	}
	if params.Language != "" {
		doc.Language = params.Language
	}
	return o.store.UpdateDocument(ctx, doc)
}

// download collects readable payloads concurrently, then writes the archive
// sequentially. Unreadable ids become failed items; the zip carries the rest.
func (o *Orchestrator) download(ctx context.Context, ids []string, result *core.BulkResult) error {
	type payload struct {
		name string
		data []byte
	}
	payloads := make([]*payload, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultWorkers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			doc, err := o.store.GetDocument(gctx, id)
			if err != nil {
				result.Items[i] = core.BulkItemResult{DocumentID: id, Error: err.Error()}
				return nil
			}
			data, err := o.blobs.Get(id)
			if err != nil {
				result.Items[i] = core.BulkItemResult{DocumentID: id, Error: err.Error()}
				return nil
			}
			payloads[i] = &payload{name: doc.FileName, data: data}
			result.Items[i] = core.BulkItemResult{DocumentID: id, Success: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]int)
	for _, p := range payloads {
		if p == nil {
			continue
		}
		name := p.name
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%d-%s", n, name)
		}
		seen[p.name]++

		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return fmt.Errorf("write zip entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	result.Archive = buf.Bytes()
	return nil
}
