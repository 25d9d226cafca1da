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

import "errors"

var (
	// ErrStoreRequired indicates a nil document store was provided
	ErrStoreRequired = errors.New("document store is required")

	// ErrIndexRequired indicates a nil vector index was provided
	ErrIndexRequired = errors.New("vector index is required")

	// ErrEmbedderRequired indicates a nil embedder was provided
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmptyQuery indicates the query text was empty or whitespace
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrInvalidPage indicates a non-positive page or page size
	ErrInvalidPage = errors.New("page and page size must be positive")

	// ErrInvalidWeights indicates the ranking weights do not sum to a
	// positive value
	ErrInvalidWeights = errors.New("ranking weights must sum to a positive value")
)
