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


package memory

import (
	"context"
	"sort"
	"time"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

func (s *Store) InsertChunks(ctx context.Context, chunks []*core.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if _, ok := s.chunks[chunk.ID]; ok {
			return storage.ErrDuplicateKey
		}
	}
	now := time.Now().UTC()
	for _, chunk := range chunks {
		c := copyChunk(chunk)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		s.chunks[c.ID] = c
	}
	return nil
}

// SwapChunkRevision promotes revision to the document's live version and
// removes every chunk under any other revision. The whole swap happens under
// the write lock, so readers never observe a mixed state.
func (s *Store) SwapChunkRevision(ctx context.Context, docID string, revision int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	doc, ok := s.documents[docID]
	if !ok {
		return storage.ErrNotFound
	}

	count := 0
	for id, chunk := range s.chunks {
		if chunk.DocumentID != docID {
			continue
		}
		if chunk.Revision == revision {
			count++
		} else {
			delete(s.chunks, id)
		}
	}
	doc.Version = revision
	doc.ChunkCount = count
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteRevision(ctx context.Context, docID string, revision int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	for id, chunk := range s.chunks {
		if chunk.DocumentID == docID && chunk.Revision == revision {
			delete(s.chunks, id)
		}
	}
	return nil
}

func (s *Store) GetChunks(ctx context.Context, docID string) ([]*core.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	doc, ok := s.documents[docID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	var out []*core.Chunk
	for _, chunk := range s.chunks {
		if chunk.DocumentID == docID && chunk.Revision == doc.Version {
			out = append(out, copyChunk(chunk))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *Store) GetChunk(ctx context.Context, id string) (*core.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyChunk(chunk), nil
}

func copyChunk(chunk *core.Chunk) *core.Chunk {
	out := *chunk
	out.Embedding = append([]float32(nil), chunk.Embedding...)
	return &out
}
