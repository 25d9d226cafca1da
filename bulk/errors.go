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


package bulk

import "errors"

var (
	// ErrBatchSizeExceeded indicates more ids than the batch limit allows.
	// The whole request is rejected; nothing is partially applied.
	ErrBatchSizeExceeded = errors.New("batch size exceeded")

	// ErrNoDocuments indicates an empty id list.
	ErrNoDocuments = errors.New("no documents given")

	// ErrUnknownAction indicates an unrecognized bulk action.
	ErrUnknownAction = errors.New("unknown bulk action")

	// ErrStoreRequired is returned when no metadata store is provided.
	ErrStoreRequired = errors.New("metadata store is required")

	// ErrBlobStoreRequired is returned when no blob store is provided.
	ErrBlobStoreRequired = errors.New("blob store is required")

	// ErrCoordinatorRequired is returned when no ingestion coordinator is
	// provided.
	ErrCoordinatorRequired = errors.New("ingestion coordinator is required")

	// ErrTagManagerRequired is returned when no tag manager is provided.
	ErrTagManagerRequired = errors.New("tag manager is required")

	// ErrIndexRequired is returned when no vector index is provided.
	ErrIndexRequired = errors.New("vector index is required")

	// ErrNothingToEdit indicates an edit request with no fields set.
	ErrNothingToEdit = errors.New("edit request carries no changes")
)
