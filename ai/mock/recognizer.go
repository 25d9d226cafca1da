package mock

import (
	"context"
	"sync"
)

// Recognizer is a test double for ai.Recognizer (OCR or speech-to-text).
type Recognizer struct {
	// RecognizeFunc is called by Recognize if set.
	// If nil, returns Text with no error.
	RecognizeFunc func(ctx context.Context, data []byte) (string, error)

	// Text is the canned transcript returned by the default behavior.
	Text string

	mu        sync.Mutex
	callCount int
}

// NewRecognizer creates a mock recognizer returning the given canned text.
func NewRecognizer(text string) *Recognizer {
	return &Recognizer{Text: text}
}

// Recognize returns the canned text or delegates to RecognizeFunc.
func (m *Recognizer) Recognize(ctx context.Context, data []byte) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, data)
	}
	return m.Text, nil
}

// CallCount returns the number of times Recognize was called.
func (m *Recognizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
