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


// Package ingest coordinates document processing runs.
//
// A run moves a document through extract → chunk → embed → index → commit.
// Chunks are written under a staged revision and promoted atomically at the
// commit stage, so search never observes a half-replaced document. At most
// one run per document is in flight; contention surfaces immediately as
// core.ErrAlreadyProcessing rather than queueing.
//
// Embedding calls are retried with exponential backoff, but only for
// transient failures; recognition (OCR, transcription) is never retried
// because those calls bill per invocation. Failures are stage-tagged in
// Document.LastError so the operator can tell where a run died.
package ingest
