package mock

import "github.com/poiesic/corpora/ai"

// Provider is a test double for ai.Provider bundling mock services.
type Provider struct {
	MockEmbedder    *Embedder
	MockOCR         *Recognizer
	MockTranscriber *Recognizer
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a provider with default deterministic mocks.
func NewProvider() *Provider {
	return &Provider{
		MockEmbedder:    NewEmbedder(),
		MockOCR:         NewRecognizer("recognized image text"),
		MockTranscriber: NewRecognizer("recognized speech"),
	}
}

func (p *Provider) Embedder() ai.Embedder {
	return p.MockEmbedder
}

func (p *Provider) OCR() ai.Recognizer {
	return p.MockOCR
}

func (p *Provider) Transcriber() ai.Recognizer {
	return p.MockTranscriber
}

func (p *Provider) Close() error {
	return nil
}
