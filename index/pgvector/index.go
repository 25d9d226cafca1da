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


// Package pgvector implements index.Store on PostgreSQL with the pgvector
// extension. It keeps its own table, so it can share a database with the
// relational store or live in a separate one.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/index"
)

const schemaDDL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS vector_index (
	chunk_id    UUID PRIMARY KEY,
	document_id UUID NOT NULL,
	embedding   vector NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vector_index_document ON vector_index (document_id);
`

// Index is a pgvector-backed index.Store.
type Index struct {
	pool *pgxpool.Pool
}

var _ index.Store = (*Index)(nil)

// NewIndex connects to the database at dsn and bootstraps the index table.
func NewIndex(ctx context.Context, dsn string) (*Index, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	bootCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if _, err := pool.Exec(bootCtx, schemaDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap index table: %w", err)
	}
	return &Index{pool: pool}, nil
}

func (x *Index) Upsert(ctx context.Context, chunks []*core.Chunk) error {
	const q = `
		INSERT INTO vector_index (chunk_id, document_id, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding`
	for _, chunk := range chunks {
		_, err := x.pool.Exec(ctx, q, chunk.ID, chunk.DocumentID, pgv.NewVector(chunk.Embedding))
		if err != nil {
			return wrap("upsert", err)
		}
	}
	return nil
}

func (x *Index) DeleteChunks(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	_, err := x.pool.Exec(ctx, `DELETE FROM vector_index WHERE chunk_id = ANY($1)`, chunkIDs)
	if err != nil {
		return wrap("delete", err)
	}
	return nil
}

func (x *Index) DeleteByDocument(ctx context.Context, docID string) error {
	_, err := x.pool.Exec(ctx, `DELETE FROM vector_index WHERE document_id = $1`, docID)
	if err != nil {
		return wrap("delete", err)
	}
	return nil
}

// Query orders by cosine distance. Entries with a different vector dimension
// are excluded in SQL, so a model change never poisons results.
func (x *Index) Query(ctx context.Context, vector []float32, filter index.Filter, topK int) ([]index.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	q := `
		SELECT chunk_id, document_id, 1 - (embedding <=> $1) AS score
		FROM vector_index
		WHERE vector_dims(embedding) = $2`
	args := []any{pgv.NewVector(vector), len(vector)}
	if len(filter.DocumentIDs) > 0 {
		args = append(args, filter.DocumentIDs)
		q += fmt.Sprintf(" AND document_id = ANY($%d)", len(args))
	}
	args = append(args, topK)
	q += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := x.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("query", err)
	}
	defer rows.Close()

	var matches []index.Match
	for rows.Next() {
		var m index.Match
		if err := rows.Scan(&m.ChunkID, &m.DocumentID, &m.Score); err != nil {
			return nil, wrap("query", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("query", err)
	}
	return matches, nil
}

// Close releases the connection pool.
func (x *Index) Close() error {
	x.pool.Close()
	return nil
}

func wrap(op string, err error) error {
	return &index.Error{Op: op, Retryable: isRetryable(err), Err: err}
}

// isRetryable treats connection-level and resource-exhaustion failures as
// retryable; anything else (bad data, bad SQL) is permanent.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception
			return true
		case strings.HasPrefix(pgErr.Code, "53"): // insufficient resources
			return true
		case strings.HasPrefix(pgErr.Code, "57"): // operator intervention
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}
