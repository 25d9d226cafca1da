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


package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

const jobColumns = `id, document_id, chunk_size, chunk_overlap, embedding_model,
	engine, status, attempts, last_error, created_at, updated_at`

func scanJob(row pgx.Row) (*core.ProcessingJob, error) {
	var j core.ProcessingJob
	err := row.Scan(&j.ID, &j.DocumentID, &j.Options.ChunkSize, &j.Options.ChunkOverlap,
		&j.Options.EmbeddingModel, &j.Options.Engine, &j.Status, &j.Attempts,
		&j.LastError, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &j, nil
}

// CreateJob relies on the partial unique index over active jobs; the unique
// violation surfaces as ErrConflict rather than ErrDuplicateKey because the
// collision is on the active-job slot, not the primary key.
func (s *Store) CreateJob(ctx context.Context, job *core.ProcessingJob) error {
	const q = `
		INSERT INTO processing_jobs
			(id, document_id, chunk_size, chunk_overlap, embedding_model, engine,
			 status, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.querier(ctx).Exec(ctx, q,
		job.ID, job.DocumentID, job.Options.ChunkSize, job.Options.ChunkOverlap,
		job.Options.EmbeddingModel, job.Options.Engine, job.Status, job.Attempts,
		job.LastError)
	if err := mapError(err); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return storage.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, job *core.ProcessingJob) error {
	const q = `
		UPDATE processing_jobs
		SET status = $2, attempts = $3, last_error = $4, updated_at = now()
		WHERE id = $1`
	tag, err := s.querier(ctx).Exec(ctx, q, job.ID, job.Status, job.Attempts, job.LastError)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*core.ProcessingJob, error) {
	q := `SELECT ` + jobColumns + ` FROM processing_jobs WHERE id = $1`
	return scanJob(s.querier(ctx).QueryRow(ctx, q, id))
}

func (s *Store) GetActiveJob(ctx context.Context, docID string) (*core.ProcessingJob, error) {
	q := `SELECT ` + jobColumns + ` FROM processing_jobs
		WHERE document_id = $1 AND status IN ('pending', 'running')`
	return scanJob(s.querier(ctx).QueryRow(ctx, q, docID))
}
