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
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

const documentColumns = `d.id, d.title, d.owner_id, d.file_name, d.content_type,
	d.doc_type, d.size_bytes, d.language, d.status, d.content_hash, d.version,
	d.chunk_count, d.last_error, d.created_at, d.updated_at`

func scanDocument(row pgx.Row) (*core.Document, error) {
	var d core.Document
	err := row.Scan(&d.ID, &d.Title, &d.OwnerID, &d.FileName, &d.ContentType,
		&d.Type, &d.Size, &d.Language, &d.Status, &d.ContentHash, &d.Version,
		&d.ChunkCount, &d.LastError, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *core.Document) error {
	const q = `
		INSERT INTO documents
			(id, title, owner_id, file_name, content_type, doc_type, size_bytes,
			 language, status, content_hash, version, chunk_count, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := s.querier(ctx).Exec(ctx, q,
		doc.ID, doc.Title, doc.OwnerID, doc.FileName, doc.ContentType, doc.Type,
		doc.Size, doc.Language, doc.Status, doc.ContentHash, doc.Version,
		doc.ChunkCount, doc.LastError)
	return mapError(err)
}

func (s *Store) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents d WHERE d.id = $1`
	doc, err := scanDocument(s.querier(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	tags, err := s.documentTagNames(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Tags = tags
	return doc, nil
}

func (s *Store) documentTagNames(ctx context.Context, docID string) ([]string, error) {
	const q = `
		SELECT t.name FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		WHERE dt.document_id = $1
		ORDER BY t.name`
	rows, err := s.querier(ctx).Query(ctx, q, docID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// filterClause builds the WHERE fragment for filters, appending bind values
// to args. The returned clause is empty when no filter field is set.
func filterClause(filters core.SearchFilters, args *[]any) string {
	var conds []string
	bind := func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", len(*args))
	}

	if filters.Author != "" {
		conds = append(conds, "d.owner_id = "+bind(filters.Author))
	}
	if filters.Language != "" {
		conds = append(conds, "d.language = "+bind(filters.Language))
	}
	if len(filters.Types) > 0 {
		types := make([]string, len(filters.Types))
		for i, t := range filters.Types {
			types[i] = string(t)
		}
		conds = append(conds, "d.doc_type = ANY("+bind(types)+")")
	}
	if !filters.After.IsZero() {
		conds = append(conds, "d.created_at >= "+bind(filters.After))
	}
	if !filters.Before.IsZero() {
		conds = append(conds, "d.created_at <= "+bind(filters.Before))
	}
	for _, name := range filters.Tags {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM document_tags dt
			JOIN tags t ON t.id = dt.tag_id
			WHERE dt.document_id = d.id AND lower(t.name) = `+bind(core.NormalizeTagName(name))+`)`)
	}
	if len(conds) == 0 {
		return ""
	}
	return strings.Join(conds, " AND ")
}

func (s *Store) ListDocuments(ctx context.Context, filters core.SearchFilters, limit int) ([]*core.Document, error) {
	var args []any
	q := `SELECT ` + documentColumns + ` FROM documents d`
	if clause := filterClause(filters, &args); clause != "" {
		q += " WHERE " + clause
	}
	q += " ORDER BY d.created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryDocuments(ctx, q, args...)
}

func (s *Store) queryDocuments(ctx context.Context, q string, args ...any) ([]*core.Document, error) {
	rows, err := s.querier(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*core.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	for _, doc := range out {
		tags, err := s.documentTagNames(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		doc.Tags = tags
	}
	return out, nil
}

func (s *Store) UpdateDocument(ctx context.Context, doc *core.Document) error {
	const q = `
		UPDATE documents
		SET title = $2, file_name = $3, language = $4, content_hash = $5, updated_at = now()
		WHERE id = $1`
	tag, err := s.querier(ctx).Exec(ctx, q, doc.ID, doc.Title, doc.FileName, doc.Language, doc.ContentHash)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateStatus performs the transition as a single compare-and-set UPDATE.
// Zero rows affected means either the document is gone or another writer
// moved it first; a follow-up existence check distinguishes the two.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to core.DocumentStatus, lastErr string) error {
	if !core.CanTransition(from, to) {
		return storage.ErrConflict
	}
	const q = `
		UPDATE documents
		SET status = $3, last_error = $4, updated_at = now()
		WHERE id = $1 AND status = $2`
	tag, err := s.querier(ctx).Exec(ctx, q, id, from, to, lastErr)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		checkErr := s.querier(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists)
		if checkErr != nil {
			return mapError(checkErr)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		const decrement = `
			UPDATE tags SET usage_count = GREATEST(usage_count - 1, 0), updated_at = now()
			WHERE id IN (SELECT tag_id FROM document_tags WHERE document_id = $1)`
		if _, err := s.querier(ctx).Exec(ctx, decrement, id); err != nil {
			return mapError(err)
		}
		tag, err := s.querier(ctx).Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
		if err != nil {
			return mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (s *Store) SearchKeyword(ctx context.Context, terms []string, filters core.SearchFilters, limit int) ([]*core.Document, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	patterns := make([]string, len(terms))
	for i, term := range terms {
		patterns[i] = "%" + term + "%"
	}

	args := []any{patterns}
	q := `
		SELECT DISTINCT ` + documentColumns + ` FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id AND c.revision = d.version
		WHERE (d.title ILIKE ANY($1) OR d.file_name ILIKE ANY($1) OR c.body ILIKE ANY($1))`
	if clause := filterClause(filters, &args); clause != "" {
		q += " AND " + clause
	}
	q += " ORDER BY d.created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryDocuments(ctx, q, args...)
}
