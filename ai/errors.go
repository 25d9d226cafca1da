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


package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates the provider returned vectors whose
	// length does not match the declared model dimension. Always fatal.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrBatchLimitExceeded indicates a batch request exceeded the
	// provider's declared batch limit.
	ErrBatchLimitExceeded = errors.New("embedding batch limit exceeded")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)

// EmbeddingError wraps a failure from the embedding provider. Transient
// failures (rate limits, timeouts) may be retried with backoff; anything
// else fails the run immediately.
type EmbeddingError struct {
	Transient bool
	Err       error
}

func (e *EmbeddingError) Error() string {
	if e.Transient {
		return fmt.Sprintf("embedding (transient): %v", e.Err)
	}
	return fmt.Sprintf("embedding: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// NewTransientEmbeddingError wraps a retryable provider failure.
func NewTransientEmbeddingError(err error) *EmbeddingError {
	return &EmbeddingError{Transient: true, Err: err}
}

// NewFatalEmbeddingError wraps a non-retryable provider failure.
func NewFatalEmbeddingError(err error) *EmbeddingError {
	return &EmbeddingError{Transient: false, Err: err}
}

// IsTransient reports whether err is an embedding failure worth retrying.
func IsTransient(err error) bool {
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.Transient
	}
	return false
}
