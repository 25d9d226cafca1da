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


// Package search provides hybrid semantic and keyword search over documents.
//
// The Engine type runs two legs against the same filtered candidate set:
//   - Semantic search using vector embeddings over live chunks
//   - Keyword matching over titles, file names, and chunk text with
//     stop-word filtering
//
// Hits are merged by a weighted sum of normalized cosine similarity and
// keyword coverage, tie-broken by document recency, and paginated by
// offset. An optional Cache stores ranked pages under a TTL and a
// generation counter that callers bump after document mutations.
package search
