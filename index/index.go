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


// Package index defines the vector index adapter. The index holds one entry
// per live chunk and answers nearest-neighbor queries; it is always
// rebuildable from the relational store plus the embedder.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/corpora/core"
)

// ErrDimensionMismatch indicates a query vector whose dimension differs
// from the index contents.
var ErrDimensionMismatch = errors.New("query vector dimension mismatch")

// Error wraps an index backend failure. Retryable signals whether the
// caller may try the same operation again.
type Error struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("index %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is an index error marked retryable.
func IsRetryable(err error) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Retryable
}

// Match is one query hit.
type Match struct {
	ChunkID    string
	DocumentID string
	Score      float32 // cosine similarity, higher is closer
}

// Filter restricts a query to a candidate document set.
// A nil or empty DocumentIDs means no restriction.
type Filter struct {
	DocumentIDs []string
}

// Store is the vector index contract.
//
// Upsert is idempotent per chunk id: re-indexing a chunk replaces its entry.
// DeleteChunks removes individual entries; used to roll back a staged
// revision or clear a superseded one. DeleteByDocument removes every entry
// for the document as one logical operation. Query returns the topK nearest
// entries by cosine similarity.
type Store interface {
	Upsert(ctx context.Context, chunks []*core.Chunk) error
	DeleteChunks(ctx context.Context, chunkIDs []string) error
	DeleteByDocument(ctx context.Context, docID string) error
	Query(ctx context.Context, vector []float32, filter Filter, topK int) ([]Match, error)
	Close() error
}
