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


package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/index"
	"github.com/poiesic/corpora/storage"
)

const (
	// DefaultSemanticWeight and DefaultKeywordWeight blend the two legs.
	DefaultSemanticWeight = 0.7
	DefaultKeywordWeight  = 0.3

	// DefaultPageSize is applied when the caller passes zero.
	DefaultPageSize = 10

	// defaultMaxCandidates bounds how many raw hits each leg contributes
	// before merging.
	defaultMaxCandidates = 200

	snippetRunes = 200
)

// Engine provides hybrid semantic and keyword search over documents.
type Engine struct {
	store    storage.Store
	index    index.Store
	embedder ai.Embedder
	cache    *Cache
	logger   *slog.Logger

	semanticWeight float32
	keywordWeight  float32
	maxCandidates  int
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithWeights sets the blend between the semantic and keyword legs.
// The weights are normalized to sum to one.
func WithWeights(semantic, keyword float32) Option {
	return func(e *Engine) error {
		sum := semantic + keyword
		if semantic < 0 || keyword < 0 || sum <= 0 {
			return ErrInvalidWeights
		}
		e.semanticWeight = semantic / sum
		e.keywordWeight = keyword / sum
		return nil
	}
}

// WithCache attaches a result cache. Callers own invalidation: call
// cache.Invalidate after any document mutation.
func WithCache(cache *Cache) Option {
	return func(e *Engine) error {
		e.cache = cache
		return nil
	}
}

// WithMaxCandidates bounds how many raw hits each leg contributes.
func WithMaxCandidates(n int) Option {
	return func(e *Engine) error {
		if n > 0 {
			e.maxCandidates = n
		}
		return nil
	}
}

// NewEngine creates a new search engine.
func NewEngine(store storage.Store, idx index.Store, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		store:          store,
		index:          idx,
		embedder:       embedder,
		logger:         slog.Default().With("component", "search"),
		semanticWeight: DefaultSemanticWeight,
		keywordWeight:  DefaultKeywordWeight,
		maxCandidates:  defaultMaxCandidates,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Search runs a hybrid query and returns one page of ranked hits.
func (e *Engine) Search(ctx context.Context, query string, filters core.SearchFilters, page, pageSize int) (*core.RankedResults, error) {
	return e.SearchWithMonitor(ctx, query, filters, page, pageSize, nil)
}

// SearchWithMonitor runs a hybrid query with monitoring. The monitor
// receives callbacks at each stage of the search process.
//
// Both legs run against the same candidate document set: the vector
// index answers nearest-neighbor over live chunk embeddings, the
// relational store answers term containment over titles, file names,
// and chunk text. Hits present in both legs score from both. An index
// backend failure is returned as an error, never as an empty page.
func (e *Engine) SearchWithMonitor(ctx context.Context, query string, filters core.SearchFilters, page, pageSize int, monitor SearchMonitor) (*core.RankedResults, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}
	if page < 0 || pageSize < 0 {
		return nil, ErrInvalidPage
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(trimmed, filters, page, pageSize); ok {
			monitor.CacheHit(trimmed)
			return cached, nil
		}
	}

	monitor.Start(trimmed)

	// Resolve the filters to a candidate document set once, shared by
	// both legs.
	var idxFilter index.Filter
	if !filters.IsZero() {
		candidates, err := e.store.ListDocuments(ctx, filters, 0)
		if err != nil {
			e.logger.Error("error resolving search filters", "err", err)
			return nil, fmt.Errorf("resolving filters: %w", err)
		}
		if len(candidates) == 0 {
			return e.emptyPage(page, pageSize, monitor), nil
		}
		idxFilter.DocumentIDs = make([]string, len(candidates))
		for i, doc := range candidates {
			idxFilter.DocumentIDs[i] = doc.ID
		}
	}

	// 1. Semantic leg
	vector, err := e.embedder.EmbedText(ctx, trimmed)
	if err != nil {
		e.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	monitor.AfterEmbedding(vector)

	matches, err := e.index.Query(ctx, vector, idxFilter, e.maxCandidates)
	if err != nil {
		e.logger.Error("error querying vector index", "err", err)
		return nil, fmt.Errorf("vector index query: %w", err)
	}
	monitor.AfterSemanticSearch(matches)

	// 2. Keyword leg
	terms := tokenizeAndFilter(trimmed)
	var keywordDocs []*core.Document
	if len(terms) > 0 {
		keywordDocs, err = e.store.SearchKeyword(ctx, terms, filters, e.maxCandidates)
		if err != nil {
			e.logger.Error("error running keyword search", "err", err)
			return nil, fmt.Errorf("keyword search: %w", err)
		}
	}
	monitor.AfterKeywordSearch(keywordDocs)

	// 3. Merge and score
	hits, err := e.merge(ctx, terms, matches, keywordDocs, monitor)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		// Ties go to the most recently updated document
		if !hits[i].Document.UpdatedAt.Equal(hits[j].Document.UpdatedAt) {
			return hits[i].Document.UpdatedAt.After(hits[j].Document.UpdatedAt)
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	results := &core.RankedResults{
		Hits:     pageSlice(hits, page, pageSize),
		Total:    len(hits),
		Page:     page,
		PageSize: pageSize,
	}
	monitor.Finish(results)

	if e.cache != nil {
		e.cache.Put(trimmed, filters, page, pageSize, results)
	}
	return results, nil
}

// merge combines the two legs into one hit list. Semantic matches become
// chunk-level hits; keyword-only documents contribute their strongest
// chunk. Index entries whose chunk or document has since been deleted
// are skipped.
func (e *Engine) merge(ctx context.Context, terms []string, matches []index.Match, keywordDocs []*core.Document, monitor SearchMonitor) ([]*core.SearchHit, error) {
	docs := make(map[string]*core.Document, len(keywordDocs))
	for _, doc := range keywordDocs {
		docs[doc.ID] = doc
	}
	keywordSet := make(map[string]bool, len(keywordDocs))
	for _, doc := range keywordDocs {
		keywordSet[doc.ID] = true
	}

	hits := make([]*core.SearchHit, 0, len(matches)+len(keywordDocs))
	seenDocs := make(map[string]bool)

	for _, match := range matches {
		chunk, err := e.store.GetChunk(ctx, match.ChunkID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Index entry outlived its chunk
				continue
			}
			return nil, fmt.Errorf("resolving chunk %s: %w", match.ChunkID, err)
		}

		doc, err := e.resolveDocument(ctx, docs, match.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}

		hit := &core.SearchHit{
			Document:      doc,
			ChunkID:       chunk.ID,
			ChunkSeq:      chunk.Seq,
			Snippet:       snippet(chunk.Text),
			SemanticScore: normalizeSimilarity(match.Score),
			KeywordScore:  keywordStrength(terms, doc.Title+" "+doc.FileName+" "+chunk.Text),
		}
		hit.Score = e.semanticWeight*hit.SemanticScore + e.keywordWeight*hit.KeywordScore

		if keywordSet[doc.ID] && hit.KeywordScore > 0 {
			monitor.SemanticAndKeywordHit(hit)
		} else {
			monitor.SemanticHit(hit)
		}
		hits = append(hits, hit)
		seenDocs[doc.ID] = true
	}

	for _, doc := range keywordDocs {
		if seenDocs[doc.ID] {
			continue
		}
		hit, err := e.bestKeywordHit(ctx, terms, doc)
		if err != nil {
			return nil, err
		}
		if hit == nil {
			continue
		}
		monitor.KeywordHit(hit)
		hits = append(hits, hit)
	}

	return hits, nil
}

// bestKeywordHit picks the document's strongest chunk for a
// keyword-only hit. Returns nil when no chunk scores above zero against
// the query; title and file name matches still count through the
// per-chunk scoring text.
func (e *Engine) bestKeywordHit(ctx context.Context, terms []string, doc *core.Document) (*core.SearchHit, error) {
	chunks, err := e.store.GetChunks(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolving chunks for %s: %w", doc.ID, err)
	}

	var best *core.Chunk
	var bestScore float32
	for _, chunk := range chunks {
		score := keywordStrength(terms, doc.Title+" "+doc.FileName+" "+chunk.Text)
		if best == nil || score > bestScore {
			best, bestScore = chunk, score
		}
	}
	if best == nil || bestScore == 0 {
		return nil, nil
	}

	hit := &core.SearchHit{
		Document:     doc,
		ChunkID:      best.ID,
		ChunkSeq:     best.Seq,
		Snippet:      snippet(best.Text),
		KeywordScore: bestScore,
	}
	hit.Score = e.keywordWeight * hit.KeywordScore
	return hit, nil
}

func (e *Engine) resolveDocument(ctx context.Context, cache map[string]*core.Document, id string) (*core.Document, error) {
	if doc, ok := cache[id]; ok {
		return doc, nil
	}
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			cache[id] = nil
			return nil, nil
		}
		return nil, fmt.Errorf("resolving document %s: %w", id, err)
	}
	cache[id] = doc
	return doc, nil
}

func (e *Engine) emptyPage(page, pageSize int, monitor SearchMonitor) *core.RankedResults {
	results := &core.RankedResults{
		Hits:     []*core.SearchHit{},
		Page:     page,
		PageSize: pageSize,
	}
	monitor.Finish(results)
	return results
}

// normalizeSimilarity maps cosine similarity from [-1, 1] to [0, 1].
func normalizeSimilarity(score float32) float32 {
	normalized := (score + 1) / 2
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

func pageSlice(hits []*core.SearchHit, page, pageSize int) []*core.SearchHit {
	offset := (page - 1) * pageSize
	if offset >= len(hits) {
		return []*core.SearchHit{}
	}
	end := offset + pageSize
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes])
}
