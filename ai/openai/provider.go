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


package openai

import (
	"log/slog"

	"github.com/poiesic/corpora/ai"
)

// Provider implements ai.Provider using OpenAI-compatible services.
// Recognition engines (OCR, speech-to-text) are deployment plugins passed
// in by the caller; the provider only owns the embedder.
type Provider struct {
	config      *ai.Config
	embedder    *Embedder
	ocr         ai.Recognizer
	transcriber ai.Recognizer
	logger      *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithOCR attaches an image recognition engine.
func WithOCR(r ai.Recognizer) ProviderOption {
	return func(p *Provider) {
		p.ocr = r
	}
}

// WithTranscriber attaches a speech recognition engine.
func WithTranscriber(r ai.Recognizer) ProviderOption {
	return func(p *Provider) {
		p.transcriber = r
	}
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction.
func NewProvider(config *ai.Config, opts ...ProviderOption) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		config:   config,
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// OCR returns the configured image recognition engine, or nil.
func (p *Provider) OCR() ai.Recognizer {
	return p.ocr
}

// Transcriber returns the configured speech recognition engine, or nil.
func (p *Provider) Transcriber() ai.Recognizer {
	return p.transcriber
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
