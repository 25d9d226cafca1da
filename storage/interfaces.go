package storage

import (
	"context"

	"github.com/poiesic/corpora/core"
)

// Repository provides common operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository

	// CreateDocument adds a document to storage.
	// Returns ErrDuplicateKey if the id already exists.
	CreateDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by id, with its tag names populated.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// ListDocuments retrieves documents matching the filters, most recent
	// first, up to limit (0 means no limit).
	ListDocuments(ctx context.Context, filters core.SearchFilters, limit int) ([]*core.Document, error)

	// UpdateDocument persists metadata changes (title, language, file name,
	// content hash). Status and chunk bookkeeping are NOT updated here; use
	// UpdateStatus and SwapChunkRevision. Returns ErrNotFound if absent.
	UpdateDocument(ctx context.Context, doc *core.Document) error

	// UpdateStatus transitions a document's status atomically. The update
	// applies only when the stored status equals from and the edge from→to
	// is legal; otherwise ErrConflict is returned and nothing changes.
	// lastErr replaces the document's last error message (empty clears it).
	UpdateStatus(ctx context.Context, id string, from, to core.DocumentStatus, lastErr string) error

	// DeleteDocument removes a document, its chunks, its tag associations
	// (decrementing usage counts), and its jobs.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id string) error

	// SearchKeyword retrieves documents matching the filters whose title,
	// file name, or live chunk text contains any of the query terms.
	// Results carry no ordering guarantee; callers rank them.
	SearchKeyword(ctx context.Context, terms []string, filters core.SearchFilters, limit int) ([]*core.Document, error)
}

// ChunkRepository provides operations for managing chunk sets.
//
// Chunk sets are revisioned: a processing run stages its chunks under
// document.Version+1 and makes them live with SwapChunkRevision only on
// full success. The previous revision stays visible to search until the
// swap, and a failed run discards its staged revision with DeleteRevision.
type ChunkRepository interface {
	Repository

	// InsertChunks stages chunks. All chunks must belong to one document
	// and one revision.
	InsertChunks(ctx context.Context, chunks []*core.Chunk) error

	// SwapChunkRevision makes revision the live chunk set for the document:
	// in one transaction it deletes every other revision's chunks, sets the
	// document version to revision, and updates the chunk count.
	SwapChunkRevision(ctx context.Context, documentID string, revision int) error

	// DeleteRevision discards a staged revision's chunks. Used to roll back
	// a failed or cancelled run. Deleting an absent revision is a no-op.
	DeleteRevision(ctx context.Context, documentID string, revision int) error

	// GetChunks retrieves the live revision's chunks for a document,
	// ordered by sequence index.
	GetChunks(ctx context.Context, documentID string) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by id.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id string) (*core.Chunk, error)
}

// TagRepository provides operations for managing tags and their document
// associations. Tag names are unique case-insensitively.
type TagRepository interface {
	Repository

	// CreateTag adds a tag. Returns ErrDuplicateKey if a tag with the same
	// name (case-insensitive) already exists.
	CreateTag(ctx context.Context, tag *core.Tag) error

	// GetTag retrieves a tag by id. Returns ErrNotFound if absent.
	GetTag(ctx context.Context, id string) (*core.Tag, error)

	// GetTagByName retrieves a tag by name, case-insensitively.
	// Returns ErrNotFound if absent.
	GetTagByName(ctx context.Context, name string) (*core.Tag, error)

	// ListTags retrieves all tags ordered by name.
	ListTags(ctx context.Context) ([]*core.Tag, error)

	// UpdateTag persists name, color, and description changes.
	// Returns ErrDuplicateKey if the new name collides case-insensitively.
	UpdateTag(ctx context.Context, tag *core.Tag) error

	// DeleteTag removes a tag. The caller is responsible for the usage
	// invariants; the repository only refuses (ErrConflict) when
	// associations still exist.
	DeleteTag(ctx context.Context, id string) error

	// AttachTag associates a tag with a document and increments the tag's
	// usage count in the same transaction. Attaching an existing
	// association returns ErrDuplicateKey without touching the count.
	AttachTag(ctx context.Context, documentID, tagID string) error

	// DetachTag removes the association and decrements the usage count in
	// the same transaction. Returns ErrNotFound if the association is
	// absent.
	DetachTag(ctx context.Context, documentID, tagID string) error
}

// JobRepository provides operations for processing job records.
type JobRepository interface {
	Repository

	// CreateJob adds a job. Returns ErrConflict if a non-terminal job
	// already exists for the document.
	CreateJob(ctx context.Context, job *core.ProcessingJob) error

	// UpdateJob persists status, attempt count, and last error changes.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.ProcessingJob) error

	// GetJob retrieves a job by id. Returns ErrNotFound if absent.
	GetJob(ctx context.Context, id string) (*core.ProcessingJob, error)

	// GetActiveJob retrieves the non-terminal job for a document.
	// Returns ErrNotFound if there is none.
	GetActiveJob(ctx context.Context, documentID string) (*core.ProcessingJob, error)
}

// Store aggregates all repositories over one backend.
type Store interface {
	DocumentRepository
	ChunkRepository
	TagRepository
	JobRepository
}
