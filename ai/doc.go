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


// Package ai defines the interfaces for external AI services consumed by
// the ingestion and search pipeline: text embedding and media recognition
// (OCR, speech-to-text).
//
// The package contains only interfaces, configuration, and the error
// taxonomy; concrete implementations live in subpackages:
//
//   - ai/openai: OpenAI-compatible embedding services (Ollama, LocalAI,
//     vLLM, OpenAI itself)
//   - ai/mock: deterministic test doubles
//
// Constructors in subpackages return the interfaces defined here to keep
// callers decoupled from any one provider.
//
// # Error semantics
//
// Provider failures are classified through EmbeddingError: transient
// failures (rate limits, timeouts) carry Transient=true and are retried by
// the caller with bounded exponential backoff; everything else fails the
// enclosing run immediately. Recognizer failures are never retried here:
// recognition work is billable and retries are the caller's decision.
package ai
