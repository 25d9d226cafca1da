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


// Package chunk splits extracted text into bounded, overlapping pieces.
// Splitting is deterministic: the same text and options always yield the
// same pieces, which keeps reprocessing idempotent.
package chunk

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/corpora/core"
)

// Piece is one span of the source text, before it becomes a persisted Chunk.
// Seq is zero-indexed and dense.
type Piece struct {
	Seq        int
	Text       string
	TokenCount int
	CharCount  int
}

// Chunker splits text using recursive character splitting, preferring
// paragraph then sentence then word boundaries.
type Chunker struct{}

// NewChunker creates a Chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Split divides text into pieces no larger than opts.ChunkSize characters
// with opts.ChunkOverlap characters carried between neighbors. Empty or
// whitespace-only text yields no pieces and no error.
func (c *Chunker) Split(text string, opts core.ProcessOptions) ([]Piece, error) {
	if err := core.ValidateProcessOptions(opts); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	pieces := make([]Piece, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pieces = append(pieces, Piece{
			Seq:        len(pieces),
			Text:       part,
			TokenCount: estimateTokens(part),
			CharCount:  len(part),
		})
	}
	return pieces, nil
}

// estimateTokens approximates the token count as one token per four bytes,
// rounded up. Good enough for batch sizing; never used for billing.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
