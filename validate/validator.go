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


// Package validate gates uploads before any byte reaches storage. Detection
// works on file content, never on the client-declared type or extension.
package validate

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/poiesic/corpora/core"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindEmpty       Kind = "empty"
	KindTooLarge    Kind = "too-large"
	KindUnsupported Kind = "unsupported"
	KindMismatch    Kind = "mismatch"
)

// Error is a validation rejection. Kind tells callers which rule failed.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Detail)
}

// DefaultMaxFileSize bounds uploads at 100 MiB.
const DefaultMaxFileSize = 100 << 20

// typeByMIME maps detected MIME types to document types. Text subtypes not
// listed here fall through to the text/ prefix check below.
var typeByMIME = map[string]core.DocumentType{
	"text/plain":         core.TypeText,
	"text/markdown":      core.TypeMarkdown,
	"application/pdf":    core.TypePDF,
	"application/msword": core.TypeWord,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": core.TypeWord,
	"image/png":  core.TypeImage,
	"image/jpeg": core.TypeImage,
	"image/webp": core.TypeImage,
	"image/tiff": core.TypeImage,
	"audio/mpeg": core.TypeAudio,
	"audio/wav":  core.TypeAudio,
	"audio/ogg":  core.TypeAudio,
	"audio/flac": core.TypeAudio,
	"audio/aac":  core.TypeAudio,
}

// Result carries the outcome of a successful validation.
type Result struct {
	Type        core.DocumentType
	ContentType string // detected, not declared
	Size        int64
}

// Validator checks upload payloads against size and format rules.
type Validator struct {
	maxSize int64
	allowed map[core.DocumentType]bool
}

// Option customizes a Validator.
type Option func(*Validator)

// WithMaxFileSize overrides the upload size limit.
func WithMaxFileSize(n int64) Option {
	return func(v *Validator) { v.maxSize = n }
}

// WithAllowedTypes restricts accepted document types to the given set.
func WithAllowedTypes(types ...core.DocumentType) Option {
	return func(v *Validator) {
		v.allowed = make(map[core.DocumentType]bool, len(types))
		for _, t := range types {
			v.allowed[t] = true
		}
	}
}

// NewValidator creates a Validator accepting every supported type up to
// DefaultMaxFileSize.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{maxSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate inspects data and returns the detected document type.
// declaredType may be empty; when set, a detection that lands in a different
// type family is rejected as a mismatch.
func (v *Validator) Validate(data []byte, declaredType string) (*Result, error) {
	if len(data) == 0 {
		return nil, &Error{Kind: KindEmpty, Detail: "file has no content"}
	}
	if int64(len(data)) > v.maxSize {
		return nil, &Error{
			Kind:   KindTooLarge,
			Detail: fmt.Sprintf("file size %d exceeds limit %d", len(data), v.maxSize),
		}
	}

	detected := mimetype.Detect(data)
	mime := detected.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	docType, err := v.resolveType(mime)
	if err != nil {
		return nil, err
	}

	if declaredType != "" {
		declared := declaredType
		if i := strings.IndexByte(declared, ';'); i >= 0 {
			declared = strings.TrimSpace(declared[:i])
		}
		if declaredDoc, ok := lookupType(declared); ok && declaredDoc != docType {
			// markdown sniffs as plain text; let the declared type refine it
			if isTextual(declaredDoc) && isTextual(docType) {
				docType = declaredDoc
			} else {
				return nil, &Error{
					Kind:   KindMismatch,
					Detail: fmt.Sprintf("declared %s but content is %s", declared, mime),
				}
			}
		}
	}

	if v.allowed != nil && !v.allowed[docType] {
		return nil, &Error{
			Kind:   KindUnsupported,
			Detail: fmt.Sprintf("document type %s is not accepted here", docType),
		}
	}

	return &Result{Type: docType, ContentType: mime, Size: int64(len(data))}, nil
}

func (v *Validator) resolveType(mime string) (core.DocumentType, error) {
	if t, ok := lookupType(mime); ok {
		return t, nil
	}
	return "", &Error{
		Kind:   KindUnsupported,
		Detail: fmt.Sprintf("unsupported content type %s", mime),
	}
}

func isTextual(t core.DocumentType) bool {
	return t == core.TypeText || t == core.TypeMarkdown
}

func lookupType(mime string) (core.DocumentType, bool) {
	if t, ok := typeByMIME[mime]; ok {
		return t, true
	}
	// generic text subtypes (csv, html, source code) ingest as plain text
	if strings.HasPrefix(mime, "text/") {
		return core.TypeText, true
	}
	return "", false
}
