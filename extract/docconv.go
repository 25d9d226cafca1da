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
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"code.sajari.com/docconv"
)

// DefaultConvertTimeout bounds a single document conversion.
const DefaultConvertTimeout = 2 * time.Minute

// DocconvExtractor extracts text from binary document formats (PDF, Word)
// through the docconv engine. Conversion runs in its own goroutine so a
// hung engine respects the context deadline.
type DocconvExtractor struct {
	mimeType string
	timeout  time.Duration
}

var _ Extractor = (*DocconvExtractor)(nil)

// NewPDFExtractor creates an extractor for PDF documents.
func NewPDFExtractor() *DocconvExtractor {
	return &DocconvExtractor{mimeType: "application/pdf", timeout: DefaultConvertTimeout}
}

// NewWordExtractor creates an extractor for Word documents.
func NewWordExtractor() *DocconvExtractor {
	return &DocconvExtractor{
		mimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		timeout:  DefaultConvertTimeout,
	}
}

type convertOutcome struct {
	res *docconv.Response
	err error
}

func (e *DocconvExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan convertOutcome, 1)
	go func() {
		res, err := docconv.Convert(bytes.NewReader(data), e.mimeType, true)
		done <- convertOutcome{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &Error{Reason: ReasonTimeout, Err: ctx.Err()}
	case out := <-done:
		if out.err != nil {
			return nil, &Error{Reason: classifyConvert(out.err), Err: out.err}
		}
		text := strings.TrimSpace(out.res.Body)
		if text == "" {
			return nil, &Error{Reason: ReasonCorrupt, Err: errors.New("conversion produced no text")}
		}
		return &Result{Text: text, Metadata: out.res.Meta}, nil
	}
}

func classifyConvert(err error) Reason {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unsupported") || strings.Contains(msg, "unknown format"):
		return ReasonUnsupported
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "corrupt") || strings.Contains(msg, "eof"):
		return ReasonCorrupt
	default:
		return ReasonEngineFailure
	}
}
