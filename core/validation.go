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


package core

import (
	"fmt"
	"strings"
)

// Chunk option bounds. Values outside these fail validation before any
// chunking starts.
const (
	MinChunkSize    = 64
	MaxChunkSize    = 8192
	MaxChunkOverlap = 2048
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID, OwnerID and FileName must not be empty
//   - Type must be a known document type
//   - Status must be a known status
//   - Size must not be negative
//
// NOT validated (populated during processing):
//   - ContentHash, ChunkCount, LastError
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidDocument)
	}
	if doc.OwnerID == "" {
		return fmt.Errorf("%w: owner id is empty", ErrInvalidDocument)
	}
	if doc.FileName == "" {
		return fmt.Errorf("%w: file name is empty", ErrInvalidDocument)
	}
	if err := ValidateDocumentType(doc.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := ValidateStatus(doc.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if doc.Size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidDocument, doc.Size)
	}
	return nil
}

// ValidateStatus validates that a DocumentStatus has a known value.
func ValidateStatus(status DocumentStatus) error {
	switch status {
	case StatusUploaded, StatusProcessing, StatusProcessed, StatusError, StatusReprocessing:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// ValidateDocumentType validates that a DocumentType has a known value.
func ValidateDocumentType(t DocumentType) error {
	switch t {
	case TypeText, TypeMarkdown, TypePDF, TypeWord, TypeImage, TypeAudio:
		return nil
	}
	return fmt.Errorf("%w: unknown document type %q", ErrInvalidDocument, t)
}

// ValidateProcessOptions validates chunking parameters for a processing run.
//
// Validation rules:
//   - ChunkSize within [MinChunkSize, MaxChunkSize]
//   - ChunkOverlap within [0, MaxChunkOverlap]
//   - ChunkOverlap strictly less than ChunkSize
func ValidateProcessOptions(opts ProcessOptions) error {
	if opts.ChunkSize < MinChunkSize || opts.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d outside [%d, %d]",
			ErrInvalidChunkOptions, opts.ChunkSize, MinChunkSize, MaxChunkSize)
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap > MaxChunkOverlap {
		return fmt.Errorf("%w: overlap %d outside [0, %d]",
			ErrInvalidChunkOptions, opts.ChunkOverlap, MaxChunkOverlap)
	}
	if opts.ChunkOverlap >= opts.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be less than size %d",
			ErrInvalidChunkOptions, opts.ChunkOverlap, opts.ChunkSize)
	}
	return nil
}

// ValidateTag validates a Tag according to domain rules.
//
// Validation rules:
//   - Name must not be empty after trimming
//   - Name must not exceed 64 characters
func ValidateTag(tag *Tag) error {
	if tag == nil {
		return fmt.Errorf("%w: tag is nil", ErrInvalidTag)
	}
	name := strings.TrimSpace(tag.Name)
	if name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTag, ErrEmptyTagName)
	}
	if len(name) > 64 {
		return fmt.Errorf("%w: name exceeds 64 characters", ErrInvalidTag)
	}
	return nil
}

// NormalizeTagName returns the canonical form used for case-insensitive
// tag name comparison.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
