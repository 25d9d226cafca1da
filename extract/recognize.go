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
	"time"

	"github.com/poiesic/corpora/ai"
)

// DefaultRecognizeTimeout bounds a single recognition call.
const DefaultRecognizeTimeout = 5 * time.Minute

// RecognizerExtractor extracts text from images and audio through an
// ai.Recognizer (OCR or speech-to-text). Recognition calls are billable and
// are never retried here; a failed run reports engine-failure and the caller
// decides whether to reprocess. The call runs in its own goroutine so a hung
// engine respects the deadline.
type RecognizerExtractor struct {
	recognizer ai.Recognizer
	timeout    time.Duration
}

var _ Extractor = (*RecognizerExtractor)(nil)

// NewRecognizerExtractor wraps a recognition engine as an Extractor.
func NewRecognizerExtractor(r ai.Recognizer) *RecognizerExtractor {
	return &RecognizerExtractor{recognizer: r, timeout: DefaultRecognizeTimeout}
}

type recognizeOutcome struct {
	text string
	err  error
}

func (e *RecognizerExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	if e.recognizer == nil {
		return nil, &Error{Reason: ReasonUnsupported, Err: errors.New("no recognition engine configured")}
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan recognizeOutcome, 1)
	go func() {
		text, err := e.recognizer.Recognize(ctx, data)
		done <- recognizeOutcome{text: text, err: err}
	}()

	var text string
	select {
	case <-ctx.Done():
		return nil, &Error{Reason: ReasonTimeout, Err: ctx.Err()}
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) || errors.Is(out.err, context.Canceled) {
				return nil, &Error{Reason: ReasonTimeout, Err: out.err}
			}
			return nil, &Error{Reason: ReasonEngineFailure, Err: out.err}
		}
		text = out.text
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &Error{Reason: ReasonCorrupt, Err: errors.New("recognition produced no text")}
	}
	return &Result{Text: text}, nil
}
