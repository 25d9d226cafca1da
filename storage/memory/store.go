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


// Package memory implements storage.Store entirely in memory.
//
// It mirrors the semantics of the postgres backend (atomic status
// transitions, revisioned chunk swaps, usage-count bookkeeping) and is the
// backend used throughout the test suite.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

// Store is an in-memory storage.Store implementation guarded by one RWMutex.
// Write operations that span several structures (swap, delete, attach) hold
// the write lock for their duration, which gives the same atomicity the
// postgres backend gets from transactions.
type Store struct {
	mu sync.RWMutex

	documents map[string]*core.Document
	chunks    map[string]*core.Chunk          // chunk id -> chunk
	tags      map[string]*core.Tag            // tag id -> tag
	tagNames  map[string]string               // normalized name -> tag id
	docTags   map[string]map[string]struct{}  // document id -> tag ids
	jobs      map[string]*core.ProcessingJob  // job id -> job

	closed bool
}

var _ storage.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]*core.Document),
		chunks:    make(map[string]*core.Chunk),
		tags:      make(map[string]*core.Tag),
		tagNames:  make(map[string]string),
		docTags:   make(map[string]map[string]struct{}),
		jobs:      make(map[string]*core.ProcessingJob),
	}
}

// WithTransaction executes fn while holding the write lock, giving fn an
// all-or-nothing view relative to other writers. Rollback of partial writes
// is the caller's concern, matching the contract's "may contain transaction
// state" looseness.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) checkOpen() error {
	if s.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// --- documents ---

func (s *Store) CreateDocument(ctx context.Context, doc *core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.documents[doc.ID]; ok {
		return storage.ErrDuplicateKey
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	s.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	doc, ok := s.documents[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := copyDocument(doc)
	out.Tags = s.tagNamesForLocked(id)
	return out, nil
}

func (s *Store) ListDocuments(ctx context.Context, filters core.SearchFilters, limit int) ([]*core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var out []*core.Document
	for id, doc := range s.documents {
		if !s.matchesFiltersLocked(doc, id, filters) {
			continue
		}
		d := copyDocument(doc)
		d.Tags = s.tagNamesForLocked(id)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateDocument(ctx context.Context, doc *core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	stored, ok := s.documents[doc.ID]
	if !ok {
		return storage.ErrNotFound
	}
	stored.Title = doc.Title
	stored.FileName = doc.FileName
	stored.Language = doc.Language
	stored.ContentHash = doc.ContentHash
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, from, to core.DocumentStatus, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	doc, ok := s.documents[id]
	if !ok {
		return storage.ErrNotFound
	}
	if doc.Status != from || !core.CanTransition(from, to) {
		return storage.ErrConflict
	}
	doc.Status = to
	doc.LastError = lastErr
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.documents[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.documents, id)
	for chunkID, chunk := range s.chunks {
		if chunk.DocumentID == id {
			delete(s.chunks, chunkID)
		}
	}
	for tagID := range s.docTags[id] {
		if tag, ok := s.tags[tagID]; ok && tag.UsageCount > 0 {
			tag.UsageCount--
		}
	}
	delete(s.docTags, id)
	for jobID, job := range s.jobs {
		if job.DocumentID == id {
			delete(s.jobs, jobID)
		}
	}
	return nil
}

func (s *Store) SearchKeyword(ctx context.Context, terms []string, filters core.SearchFilters, limit int) ([]*core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	var out []*core.Document
	for id, doc := range s.documents {
		if !s.matchesFiltersLocked(doc, id, filters) {
			continue
		}
		if !s.matchesTermsLocked(doc, lowered) {
			continue
		}
		d := copyDocument(doc)
		d.Tags = s.tagNamesForLocked(id)
		out = append(out, d)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// matchesTermsLocked reports whether any term appears in the document title,
// file name, or live chunk text.
func (s *Store) matchesTermsLocked(doc *core.Document, terms []string) bool {
	haystack := strings.ToLower(doc.Title + " " + doc.FileName)
	for _, chunk := range s.chunks {
		if chunk.DocumentID == doc.ID && chunk.Revision == doc.Version {
			haystack += " " + strings.ToLower(chunk.Text)
		}
	}
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

func (s *Store) matchesFiltersLocked(doc *core.Document, id string, filters core.SearchFilters) bool {
	if filters.Author != "" && doc.OwnerID != filters.Author {
		return false
	}
	if filters.Language != "" && doc.Language != filters.Language {
		return false
	}
	if len(filters.Types) > 0 {
		found := false
		for _, t := range filters.Types {
			if doc.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !filters.After.IsZero() && doc.CreatedAt.Before(filters.After) {
		return false
	}
	if !filters.Before.IsZero() && doc.CreatedAt.After(filters.Before) {
		return false
	}
	// AND semantics across the tag set
	for _, name := range filters.Tags {
		tagID, ok := s.tagNames[core.NormalizeTagName(name)]
		if !ok {
			return false
		}
		if _, attached := s.docTags[id][tagID]; !attached {
			return false
		}
	}
	return true
}

func (s *Store) tagNamesForLocked(docID string) []string {
	ids := s.docTags[docID]
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, 0, len(ids))
	for tagID := range ids {
		if tag, ok := s.tags[tagID]; ok {
			names = append(names, tag.Name)
		}
	}
	sort.Strings(names)
	return names
}

func copyDocument(doc *core.Document) *core.Document {
	out := *doc
	out.Tags = append([]string(nil), doc.Tags...)
	return &out
}
