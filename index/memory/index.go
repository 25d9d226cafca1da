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


// Package memory is a brute-force cosine-scan index for tests and small
// corpora.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/index"
)

type entry struct {
	chunkID    string
	documentID string
	vector     []float32
}

// Index is an in-memory index.Store.
type Index struct {
	mu      sync.RWMutex
	entries map[string]entry // chunk id -> entry
}

var _ index.Store = (*Index)(nil)

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]entry)}
}

func (x *Index) Upsert(ctx context.Context, chunks []*core.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, chunk := range chunks {
		x.entries[chunk.ID] = entry{
			chunkID:    chunk.ID,
			documentID: chunk.DocumentID,
			vector:     append([]float32(nil), chunk.Embedding...),
		}
	}
	return nil
}

func (x *Index) DeleteChunks(ctx context.Context, chunkIDs []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range chunkIDs {
		delete(x.entries, id)
	}
	return nil
}

func (x *Index) DeleteByDocument(ctx context.Context, docID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, e := range x.entries {
		if e.documentID == docID {
			delete(x.entries, id)
		}
	}
	return nil
}

// Query scans every entry. Entries whose dimension differs from the query
// vector are skipped; they belong to chunks embedded under an older model.
func (x *Index) Query(ctx context.Context, vector []float32, filter index.Filter, topK int) ([]index.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	var allowed map[string]struct{}
	if len(filter.DocumentIDs) > 0 {
		allowed = make(map[string]struct{}, len(filter.DocumentIDs))
		for _, id := range filter.DocumentIDs {
			allowed[id] = struct{}{}
		}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make([]index.Match, 0, len(x.entries))
	for _, e := range x.entries {
		if len(e.vector) != len(vector) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[e.documentID]; !ok {
				continue
			}
		}
		matches = append(matches, index.Match{
			ChunkID:    e.chunkID,
			DocumentID: e.documentID,
			Score:      cosineSimilarity(vector, e.vector),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func (x *Index) Close() error { return nil }

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
