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


package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/corpora/ai"
)

// embedBatches embeds texts in batches no larger than the embedder's limit.
// Transient failures (rate limits, timeouts, overload) are retried with
// exponential backoff; fatal failures abort the whole run. Every vector is
// checked against the embedder's dimension before being accepted.
func embedBatches(ctx context.Context, embedder ai.Embedder, texts []string, maxAttempts int, baseDelay time.Duration) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	limit := embedder.BatchLimit()
	if limit <= 0 {
		limit = len(texts)
	}
	dimension := embedder.Dimension()

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += limit {
		end := start + limit
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var vectors [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var embErr error
			vectors, embErr = embedder.EmbedTexts(ctx, batch)
			return embErr
		}, maxAttempts, baseDelay, ai.IsTransient)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}

		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
		}
		for i, vec := range vectors {
			if len(vec) != dimension {
				return nil, fmt.Errorf("%w: chunk %d has dimension %d, expected %d",
					ai.ErrDimensionMismatch, start+i, len(vec), dimension)
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}
