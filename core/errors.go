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

import "errors"

// Domain errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidStatus indicates an unknown document status value.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrIllegalTransition indicates a document status transition that is
	// not among the permitted lifecycle edges.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrInvalidChunkOptions indicates chunk size/overlap values that are
	// out of bounds or inconsistent (overlap must be less than size).
	ErrInvalidChunkOptions = errors.New("invalid chunk options")

	// ErrInvalidTag indicates a Tag failed validation.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrEmptyTagName indicates the tag Name field is empty.
	ErrEmptyTagName = errors.New("tag name cannot be empty")

	// ErrAlreadyProcessing indicates a processing job is already active for
	// the document. Submissions fail immediately rather than queuing.
	ErrAlreadyProcessing = errors.New("document is already processing")

	// ErrNotReprocessable indicates a reprocess request for a document that
	// is not in the processed or error state.
	ErrNotReprocessable = errors.New("document cannot be reprocessed from its current state")

	// ErrPermissionDenied indicates the acting identity lacks the required
	// permission for the operation.
	ErrPermissionDenied = errors.New("permission denied")
)
