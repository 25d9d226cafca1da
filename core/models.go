package core

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// NewID generates a unique identifier for domain entities.
func NewID() string {
	return uuid.NewString()
}

// ContentHash generates a deterministic fingerprint from text content using
// BLAKE2b hashing. Identical content always produces an identical hash, which
// is what makes reprocess idempotence checks possible.
func ContentHash(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey derives a compact 64-bit key from arbitrary input bytes.
// Used by the result cache to key normalized query+filter combinations.
func CacheKey(data []byte) uint64 {
	h, _ := blake2b.New(8, nil)
	h.Write(data)
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// DocumentStatus tracks a document through its processing lifecycle.
type DocumentStatus string

const (
	// StatusUploaded is the initial state after validation and raw storage.
	StatusUploaded DocumentStatus = "uploaded"
	// StatusProcessing indicates an active first processing run.
	StatusProcessing DocumentStatus = "processing"
	// StatusProcessed indicates a completed run with a live chunk set.
	StatusProcessed DocumentStatus = "processed"
	// StatusError indicates the last run failed; LastError carries the reason.
	StatusError DocumentStatus = "error"
	// StatusReprocessing indicates an active run replacing an earlier chunk set.
	StatusReprocessing DocumentStatus = "reprocessing"
)

// legalTransitions enumerates every permitted status edge.
// A document never returns to uploaded.
var legalTransitions = map[DocumentStatus][]DocumentStatus{
	StatusUploaded:     {StatusProcessing},
	StatusProcessing:   {StatusProcessed, StatusError},
	StatusProcessed:    {StatusReprocessing},
	StatusError:        {StatusReprocessing},
	StatusReprocessing: {StatusProcessed, StatusError},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to DocumentStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DocumentType identifies the document class a file was detected as,
// which selects the extractor used during processing.
type DocumentType string

const (
	TypeText     DocumentType = "text"
	TypeMarkdown DocumentType = "markdown"
	TypePDF      DocumentType = "pdf"
	TypeWord     DocumentType = "word"
	TypeImage    DocumentType = "image"
	TypeAudio    DocumentType = "audio"
)

// Document represents a user-uploaded file and its lifecycle state.
// The coordinator mutates Status and LastError; edit and bulk-edit
// operations mutate metadata and tags.
type Document struct {
	ID          string
	Title       string
	OwnerID     string
	FileName    string
	ContentType string
	Type        DocumentType
	Size        int64
	Language    string
	Status      DocumentStatus
	Tags        []string
	ContentHash string
	Version     int
	ChunkCount  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is a bounded span of a document's extracted text plus its embedding.
// Chunks are immutable once created; a reprocess run writes a new revision
// and swaps it in atomically.
type Chunk struct {
	ID         string
	DocumentID string
	Revision   int
	Seq        int
	Text       string
	TokenCount int
	CharCount  int
	Embedding  []float32
	CreatedAt  time.Time
}

// Tag labels documents. UsageCount is derived: adjusted exactly once per
// document-tag association change.
type Tag struct {
	ID          string
	Name        string
	Color       string
	Description string
	IsSystem    bool
	UsageCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JobStatus tracks a ProcessingJob.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// ProcessingJob records one processing run for a document.
// At most one non-terminal job exists per document at a time.
type ProcessingJob struct {
	ID         string
	DocumentID string
	Options    ProcessOptions
	Status     JobStatus
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsTerminal reports whether status is a final job state.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// IsTerminal reports whether the job can no longer change state.
func (j *ProcessingJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// ProcessOptions tunes one processing run.
type ProcessOptions struct {
	ChunkSize      int    // target characters per chunk
	ChunkOverlap   int    // characters carried over between consecutive chunks
	EmbeddingModel string // model identifier; empty means the configured default
	Engine         string // recognition engine hint for OCR/ASR documents
}

// BulkAction identifies a bulk operation applied across many documents.
type BulkAction string

const (
	BulkDelete    BulkAction = "delete"
	BulkTag       BulkAction = "tag"
	BulkReprocess BulkAction = "reprocess"
	BulkDownload  BulkAction = "download"
	BulkEdit      BulkAction = "edit"
)

// BulkItemResult is the outcome for a single document within a bulk
// operation. Error is empty when Success is true.
type BulkItemResult struct {
	DocumentID string
	Success    bool
	Error      string
}

// BulkResult reports a completed bulk operation. Every requested document id
// appears exactly once in Items, in request order.
type BulkResult struct {
	OperationID string
	Action      BulkAction
	Items       []BulkItemResult
	Archive     []byte // zip payload for download operations
}

// Succeeded returns the number of successful items.
func (r *BulkResult) Succeeded() int {
	n := 0
	for _, item := range r.Items {
		if item.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of failed items.
func (r *BulkResult) Failed() int {
	return len(r.Items) - r.Succeeded()
}

// SearchFilters restricts a search to documents matching every populated
// field. Tags use AND semantics across the set.
type SearchFilters struct {
	Tags     []string
	Author   string
	Language string
	Types    []DocumentType
	After    time.Time
	Before   time.Time
}

// IsZero reports whether no filter field is populated.
func (f SearchFilters) IsZero() bool {
	return len(f.Tags) == 0 && f.Author == "" && f.Language == "" &&
		len(f.Types) == 0 && f.After.IsZero() && f.Before.IsZero()
}

// SearchHit is one ranked search result: the matched chunk, its source
// document, and the combined relevance score.
type SearchHit struct {
	Document      *Document
	ChunkID       string
	ChunkSeq      int
	Snippet       string
	Score         float32
	SemanticScore float32
	KeywordScore  float32
}

// RankedResults is one page of the merged, ranked result list.
type RankedResults struct {
	Hits     []*SearchHit
	Total    int
	Page     int
	PageSize int
}
