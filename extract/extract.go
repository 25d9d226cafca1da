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


// Package extract turns raw document bytes into plain text. One extractor
// exists per document type; the registry dispatches on the type detected at
// upload.
package extract

import (
	"context"
	"fmt"

	"github.com/poiesic/corpora/core"
)

// Reason classifies an extraction failure.
type Reason string

const (
	ReasonCorrupt       Reason = "corrupt"
	ReasonUnsupported   Reason = "unsupported-subformat"
	ReasonTimeout       Reason = "timeout"
	ReasonEngineFailure Reason = "engine-failure"
)

// Error is an extraction failure with a machine-readable reason.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is extracted text plus any format metadata the engine surfaced.
type Result struct {
	Text     string
	Metadata map[string]string
}

// Extractor converts one document format to plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Result, error)
}

// Registry maps document types to extractors.
type Registry struct {
	extractors map[core.DocumentType]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[core.DocumentType]Extractor)}
}

// Register binds an extractor to a document type, replacing any previous one.
func (r *Registry) Register(t core.DocumentType, e Extractor) {
	r.extractors[t] = e
}

// Extract dispatches to the extractor registered for t.
func (r *Registry) Extract(ctx context.Context, t core.DocumentType, data []byte) (*Result, error) {
	e, ok := r.extractors[t]
	if !ok {
		return nil, &Error{
			Reason: ReasonUnsupported,
			Err:    fmt.Errorf("no extractor registered for type %s", t),
		}
	}
	return e.Extract(ctx, data)
}
