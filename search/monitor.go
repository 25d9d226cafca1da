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

import (
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/index"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterEmbedding(vector []float32)
	AfterSemanticSearch(matches []index.Match)
	AfterKeywordSearch(documents []*core.Document)
	SemanticAndKeywordHit(hit *core.SearchHit)
	SemanticHit(hit *core.SearchHit)
	KeywordHit(hit *core.SearchHit)
	CacheHit(query string)
	Finish(results *core.RankedResults)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) AfterEmbedding(_ []float32)              {}
func (n *noopMonitor) AfterSemanticSearch(_ []index.Match)     {}
func (n *noopMonitor) AfterKeywordSearch(_ []*core.Document)   {}
func (n *noopMonitor) SemanticAndKeywordHit(_ *core.SearchHit) {}
func (n *noopMonitor) SemanticHit(_ *core.SearchHit)           {}
func (n *noopMonitor) KeywordHit(_ *core.SearchHit)            {}
func (n *noopMonitor) CacheHit(_ string)                       {}
func (n *noopMonitor) Finish(_ *core.RankedResults)            {}
