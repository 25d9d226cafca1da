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


package extract

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// TextExtractor handles plain text and markdown. Markdown passes through
// unrendered; headings and emphasis markers carry meaning worth embedding.
type TextExtractor struct{}

var _ Extractor = (*TextExtractor)(nil)

// NewTextExtractor creates a pass-through extractor for textual formats.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, &Error{Reason: ReasonCorrupt, Err: errors.New("not valid UTF-8")}
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return &Result{Text: text}, nil
}
