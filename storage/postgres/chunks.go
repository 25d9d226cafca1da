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

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

const chunkColumns = `id, document_id, revision, seq, body, token_count, char_count, embedding, created_at`

func scanChunk(row pgx.Row) (*core.Chunk, error) {
	var (
		c   core.Chunk
		vec pgvector.Vector
	)
	err := row.Scan(&c.ID, &c.DocumentID, &c.Revision, &c.Seq, &c.Text,
		&c.TokenCount, &c.CharCount, &vec, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	c.Embedding = vec.Slice()
	return &c, nil
}

func (s *Store) InsertChunks(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		const q = `
			INSERT INTO chunks
				(id, document_id, revision, seq, body, token_count, char_count, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		for _, chunk := range chunks {
			_, err := s.querier(ctx).Exec(ctx, q,
				chunk.ID, chunk.DocumentID, chunk.Revision, chunk.Seq, chunk.Text,
				chunk.TokenCount, chunk.CharCount, pgvector.NewVector(chunk.Embedding))
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// SwapChunkRevision promotes revision to the live version and discards every
// other revision, all in one transaction.
func (s *Store) SwapChunkRevision(ctx context.Context, docID string, revision int) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		const del = `DELETE FROM chunks WHERE document_id = $1 AND revision <> $2`
		if _, err := s.querier(ctx).Exec(ctx, del, docID, revision); err != nil {
			return mapError(err)
		}
		const promote = `
			UPDATE documents
			SET version = $2,
			    chunk_count = (SELECT count(*) FROM chunks WHERE document_id = $1 AND revision = $2),
			    updated_at = now()
			WHERE id = $1`
		tag, err := s.querier(ctx).Exec(ctx, promote, docID, revision)
		if err != nil {
			return mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (s *Store) DeleteRevision(ctx context.Context, docID string, revision int) error {
	const q = `DELETE FROM chunks WHERE document_id = $1 AND revision = $2`
	_, err := s.querier(ctx).Exec(ctx, q, docID, revision)
	return mapError(err)
}

func (s *Store) GetChunks(ctx context.Context, docID string) ([]*core.Chunk, error) {
	var version int
	err := s.querier(ctx).QueryRow(ctx,
		`SELECT version FROM documents WHERE id = $1`, docID).Scan(&version)
	if err != nil {
		return nil, mapError(err)
	}

	q := `SELECT ` + chunkColumns + ` FROM chunks
		WHERE document_id = $1 AND revision = $2 ORDER BY seq`
	rows, err := s.querier(ctx).Query(ctx, q, docID, version)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*core.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk)
	}
	return out, rows.Err()
}

func (s *Store) GetChunk(ctx context.Context, id string) (*core.Chunk, error) {
	q := `SELECT ` + chunkColumns + ` FROM chunks WHERE id = $1`
	return scanChunk(s.querier(ctx).QueryRow(ctx, q, id))
}
