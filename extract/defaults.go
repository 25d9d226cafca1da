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
	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
)

// DefaultRegistry wires every supported document type. Image and audio
// extraction are only registered when the provider carries the matching
// recognition engine.
func DefaultRegistry(provider ai.Provider) *Registry {
	r := NewRegistry()
	text := NewTextExtractor()
	r.Register(core.TypeText, text)
	r.Register(core.TypeMarkdown, text)
	r.Register(core.TypePDF, NewPDFExtractor())
	r.Register(core.TypeWord, NewWordExtractor())
	if provider != nil {
		if ocr := provider.OCR(); ocr != nil {
			r.Register(core.TypeImage, NewRecognizerExtractor(ocr))
		}
		if asr := provider.Transcriber(); asr != nil {
			r.Register(core.TypeAudio, NewRecognizerExtractor(asr))
		}
	}
	return r
}
