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


package corpora

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/ai/openai"
	"github.com/poiesic/corpora/auth"
	"github.com/poiesic/corpora/blob"
	"github.com/poiesic/corpora/bulk"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/extract"
	"github.com/poiesic/corpora/index"
	indexmemory "github.com/poiesic/corpora/index/memory"
	"github.com/poiesic/corpora/index/pgvector"
	"github.com/poiesic/corpora/ingest"
	"github.com/poiesic/corpora/search"
	"github.com/poiesic/corpora/storage"
	"github.com/poiesic/corpora/storage/memory"
	"github.com/poiesic/corpora/storage/postgres"
	"github.com/poiesic/corpora/tags"
	"github.com/poiesic/corpora/validate"
)

// System wires the full pipeline behind one facade: relational store,
// blob store, AI provider, vector index, ingestion coordinator, bulk
// orchestrator, tag manager, and search engine.
type System struct {
	store        storage.Store
	blobs        *blob.Store
	idx          index.Store
	provider     ai.Provider
	validator    *validate.Validator
	registry     *extract.Registry
	coordinator  *ingest.Coordinator
	orchestrator *bulk.Orchestrator
	tagManager   *tags.Manager
	engine       *search.Engine
	cache        *search.Cache
	authorizer   auth.Authorizer
	logger       *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig     *ai.Config
	provider     ai.Provider
	dsn          string
	blobPath     string
	authorizer   auth.Authorizer
	validateOpts []validate.Option
	ingestOpts   []ingest.Option
	bulkOpts     []bulk.Option
	searchOpts   []search.Option
	cacheEntries int64
	cacheTTL     time.Duration
	logger       *slog.Logger
}

// WithAIConfig sets the provider configuration used when no provider is
// injected.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects an AI provider, bypassing the OpenAI-compatible
// default. The System takes ownership and closes it.
func WithProvider(provider ai.Provider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithPostgres backs the relational store and the vector index with the
// database at dsn. Default is in-memory backends.
func WithPostgres(dsn string) SystemOption {
	return func(o *systemOptions) {
		o.dsn = dsn
	}
}

// WithBlobPath sets the on-disk blob store location. Default is an
// in-memory blob store.
func WithBlobPath(path string) SystemOption {
	return func(o *systemOptions) {
		o.blobPath = path
	}
}

// WithAuthorizer overrides the default role-based authorizer.
func WithAuthorizer(authorizer auth.Authorizer) SystemOption {
	return func(o *systemOptions) {
		if authorizer != nil {
			o.authorizer = authorizer
		}
	}
}

// WithValidation forwards options to the file validator.
func WithValidation(opts ...validate.Option) SystemOption {
	return func(o *systemOptions) {
		o.validateOpts = append(o.validateOpts, opts...)
	}
}

// WithIngestOptions forwards options to the ingestion coordinator.
func WithIngestOptions(opts ...ingest.Option) SystemOption {
	return func(o *systemOptions) {
		o.ingestOpts = append(o.ingestOpts, opts...)
	}
}

// WithBulkOptions forwards options to the bulk orchestrator.
func WithBulkOptions(opts ...bulk.Option) SystemOption {
	return func(o *systemOptions) {
		o.bulkOpts = append(o.bulkOpts, opts...)
	}
}

// WithSearchOptions forwards options to the search engine.
func WithSearchOptions(opts ...search.Option) SystemOption {
	return func(o *systemOptions) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}

// WithResultCache sizes the search result cache.
func WithResultCache(maxEntries int64, ttl time.Duration) SystemOption {
	return func(o *systemOptions) {
		o.cacheEntries = maxEntries
		o.cacheTTL = ttl
	}
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) SystemOption {
	return func(o *systemOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewSystem creates a fully wired System.
func NewSystem(ctx context.Context, opts ...SystemOption) (*System, error) {
	// Apply options
	options := &systemOptions{
		aiConfig:   ai.DefaultConfig(), // Default if not provided
		authorizer: auth.RoleAuthorizer{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open relational store and vector index
	var store storage.Store
	var idx index.Store
	var err error
	if options.dsn != "" {
		store, err = postgres.NewStore(ctx, options.dsn, postgres.WithLogger(options.logger))
		if err != nil {
			return nil, fmt.Errorf("opening document store: %w", err)
		}
		idx, err = pgvector.NewIndex(ctx, options.dsn)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("opening vector index: %w", err)
		}
	} else {
		store = memory.NewStore()
		idx = indexmemory.NewIndex()
	}

	// Open blob store
	blobs, err := blob.Open(options.blobPath, options.blobPath == "")
	if err != nil {
		idx.Close()
		store.Close()
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			blobs.Close()
			idx.Close()
			store.Close()
			return nil, err
		}
	}

	registry := extract.DefaultRegistry(provider)
	validator := validate.NewValidator(options.validateOpts...)
	tagManager := tags.NewManager(store, options.authorizer)

	coordinator, err := ingest.NewCoordinator(store, blobs, registry, provider.Embedder(), idx,
		append([]ingest.Option{ingest.WithLogger(options.logger)}, options.ingestOpts...)...)
	if err != nil {
		provider.Close()
		blobs.Close()
		idx.Close()
		store.Close()
		return nil, err
	}

	orchestrator, err := bulk.NewOrchestrator(store, blobs, coordinator, tagManager, idx, options.authorizer,
		append([]bulk.Option{bulk.WithLogger(options.logger)}, options.bulkOpts...)...)
	if err != nil {
		coordinator.Close()
		provider.Close()
		blobs.Close()
		idx.Close()
		store.Close()
		return nil, err
	}

	cache, err := search.NewCache(options.cacheEntries, options.cacheTTL)
	if err == nil {
		options.searchOpts = append(options.searchOpts, search.WithCache(cache))
	} else {
		orchestrator.Close()
		coordinator.Close()
		provider.Close()
		blobs.Close()
		idx.Close()
		store.Close()
		return nil, err
	}

	engine, err := search.NewEngine(store, idx, provider.Embedder(),
		append([]search.Option{search.WithLogger(options.logger)}, options.searchOpts...)...)
	if err != nil {
		cache.Close()
		orchestrator.Close()
		coordinator.Close()
		provider.Close()
		blobs.Close()
		idx.Close()
		store.Close()
		return nil, err
	}

	return &System{
		store:        store,
		blobs:        blobs,
		idx:          idx,
		provider:     provider,
		validator:    validator,
		registry:     registry,
		coordinator:  coordinator,
		orchestrator: orchestrator,
		tagManager:   tagManager,
		engine:       engine,
		cache:        cache,
		authorizer:   options.authorizer,
		logger:       options.logger,
	}, nil
}

// UploadRequest carries one file into the pipeline.
type UploadRequest struct {
	FileName    string
	Title       string
	ContentType string
	Language    string
	Data        []byte
	Tags        []string
	Options     *core.ProcessOptions
}

// Upload validates and stores a file, records the document as uploaded,
// attaches any requested tags, and schedules the first processing run.
// The returned job id identifies that run.
func (s *System) Upload(ctx context.Context, identity auth.Identity, req UploadRequest) (*core.Document, string, error) {
	if !s.authorizer.CanUpload(identity) {
		return nil, "", core.ErrPermissionDenied
	}

	result, err := s.validator.Validate(req.Data, req.ContentType)
	if err != nil {
		return nil, "", err
	}

	doc := &core.Document{
		ID:          core.NewID(),
		Title:       req.Title,
		OwnerID:     identity.UserID,
		FileName:    req.FileName,
		ContentType: result.ContentType,
		Type:        result.Type,
		Size:        result.Size,
		Language:    req.Language,
		Status:      core.StatusUploaded,
	}
	if doc.Title == "" {
		doc.Title = req.FileName
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, "", err
	}

	if err := s.blobs.Put(doc.ID, req.Data); err != nil {
		return nil, "", fmt.Errorf("storing file content: %w", err)
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(doc.ID); delErr != nil {
			s.logger.Warn("orphaned blob after failed document create", "documentID", doc.ID, "err", delErr)
		}
		return nil, "", err
	}

	for _, name := range req.Tags {
		if _, err := s.tagManager.Attach(ctx, identity, doc.ID, name); err != nil {
			s.logger.Warn("failed to attach tag on upload", "documentID", doc.ID, "tag", name, "err", err)
		}
	}

	s.cache.Invalidate()

	jobID, err := s.coordinator.Submit(ctx, doc.ID, req.Options)
	if err != nil {
		// The document stays uploaded; a later Submit can pick it up
		return doc, "", err
	}
	return doc, jobID, nil
}

// Reprocess schedules a fresh processing run for a processed or failed
// document.
func (s *System) Reprocess(ctx context.Context, docID string, opts *core.ProcessOptions) (string, error) {
	s.cache.Invalidate()
	return s.coordinator.Reprocess(ctx, docID, opts)
}

// Process runs the pipeline synchronously. Used by the CLI.
func (s *System) Process(ctx context.Context, docID string, opts *core.ProcessOptions) error {
	s.cache.Invalidate()
	return s.coordinator.Process(ctx, docID, opts)
}

// Document retrieves a document with its tags.
func (s *System) Document(ctx context.Context, id string) (*core.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// Documents lists documents matching the filters, most recent first.
func (s *System) Documents(ctx context.Context, filters core.SearchFilters, limit int) ([]*core.Document, error) {
	return s.store.ListDocuments(ctx, filters, limit)
}

// DeleteDocument removes a document, its chunks, its stored file, and
// its index entries.
func (s *System) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(id); err != nil {
		s.logger.Warn("failed to delete stored file", "documentID", id, "err", err)
	}
	if err := s.idx.DeleteByDocument(ctx, id); err != nil {
		s.logger.Warn("failed to clear index entries", "documentID", id, "err", err)
	}
	s.cache.Invalidate()
	return nil
}

// FileContent retrieves a document's original uploaded bytes.
func (s *System) FileContent(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(id)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Search runs a hybrid query and returns one page of ranked hits.
func (s *System) Search(ctx context.Context, query string, filters core.SearchFilters, page, pageSize int) (*core.RankedResults, error) {
	return s.engine.Search(ctx, query, filters, page, pageSize)
}

// Bulk runs a bulk action. Mutating actions invalidate cached search
// results.
func (s *System) Bulk(ctx context.Context, identity auth.Identity, action core.BulkAction, ids []string, params bulk.Params) (*core.BulkResult, error) {
	result, err := s.orchestrator.Execute(ctx, identity, action, ids, params)
	if action != core.BulkDownload {
		s.cache.Invalidate()
	}
	return result, err
}

// AttachTag labels a document, creating the tag on first use.
func (s *System) AttachTag(ctx context.Context, identity auth.Identity, docID, tagName string) error {
	if _, err := s.tagManager.Attach(ctx, identity, docID, tagName); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// DetachTag removes a label from a document.
func (s *System) DetachTag(ctx context.Context, identity auth.Identity, docID, tagName string) error {
	if err := s.tagManager.Detach(ctx, identity, docID, tagName); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// Tags exposes the tag manager for create/rename/delete/list.
func (s *System) Tags() *tags.Manager {
	return s.tagManager
}

// Store exposes the relational store.
func (s *System) Store() storage.Store {
	return s.store
}

// Close shuts the system down: drains in-flight processing first, then
// releases every backend.
func (s *System) Close() error {
	s.coordinator.Close()
	s.orchestrator.Close()
	s.cache.Close()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.idx.Close(); err != nil {
		s.logger.Error("error closing vector index", "err", err)
		return err
	}
	if err := s.blobs.Close(); err != nil {
		s.logger.Error("error closing blob store", "err", err)
		return err
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing document store", "err", err)
		return err
	}
	return nil
}
