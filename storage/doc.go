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


// Package storage provides the metadata store abstraction for corpora.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic. Two backends implement them:
//
//   - storage/postgres: the production backend (pgx + pgvector)
//   - storage/memory: an in-memory backend with identical semantics,
//     used by tests
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.Store interface to enforce
// abstraction and enable backend swapping:
//
//	store, err := postgres.Open(ctx, dsn)  // returns storage.Store
//
// # Chunk revisions
//
// Chunk sets are revisioned so a reprocess run never leaves a
// half-replaced set visible to search. A run stages chunks under
// document version+1; SwapChunkRevision commits the new revision and
// removes the old one in a single transaction. Until the swap, search
// continues to see the previous revision.
//
// # Atomic status transitions
//
// UpdateStatus is a compare-and-set over the document lifecycle: the
// transition applies only if the stored status matches the expected one
// and the edge is legal per core.CanTransition. No caller ever observes
// a transient status.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
