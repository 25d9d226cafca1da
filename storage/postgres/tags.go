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

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

const tagColumns = `id, name, color, description, is_system, usage_count, created_at, updated_at`

func scanTag(row pgx.Row) (*core.Tag, error) {
	var t core.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Color, &t.Description, &t.IsSystem,
		&t.UsageCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (s *Store) CreateTag(ctx context.Context, tag *core.Tag) error {
	const q = `
		INSERT INTO tags (id, name, color, description, is_system, usage_count)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.querier(ctx).Exec(ctx, q,
		tag.ID, tag.Name, tag.Color, tag.Description, tag.IsSystem, tag.UsageCount)
	return mapError(err)
}

func (s *Store) GetTag(ctx context.Context, id string) (*core.Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags WHERE id = $1`
	return scanTag(s.querier(ctx).QueryRow(ctx, q, id))
}

func (s *Store) GetTagByName(ctx context.Context, name string) (*core.Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags WHERE lower(name) = $1`
	return scanTag(s.querier(ctx).QueryRow(ctx, q, core.NormalizeTagName(name)))
}

func (s *Store) ListTags(ctx context.Context) ([]*core.Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags ORDER BY name`
	rows, err := s.querier(ctx).Query(ctx, q)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*core.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTag(ctx context.Context, tag *core.Tag) error {
	const q = `
		UPDATE tags
		SET name = $2, color = $3, description = $4, updated_at = now()
		WHERE id = $1`
	cmdTag, err := s.querier(ctx).Exec(ctx, q, tag.ID, tag.Name, tag.Color, tag.Description)
	if err != nil {
		return mapError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTag(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		var attached bool
		err := s.querier(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM document_tags WHERE tag_id = $1)`, id).Scan(&attached)
		if err != nil {
			return mapError(err)
		}
		if attached {
			return storage.ErrConflict
		}
		tag, err := s.querier(ctx).Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
		if err != nil {
			return mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// AttachTag inserts the association and bumps usage_count in one transaction
// so the count always equals the number of associations.
func (s *Store) AttachTag(ctx context.Context, docID, tagID string) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		const ins = `INSERT INTO document_tags (document_id, tag_id) VALUES ($1, $2)`
		if _, err := s.querier(ctx).Exec(ctx, ins, docID, tagID); err != nil {
			return mapError(err)
		}
		const bump = `UPDATE tags SET usage_count = usage_count + 1, updated_at = now() WHERE id = $1`
		if _, err := s.querier(ctx).Exec(ctx, bump, tagID); err != nil {
			return mapError(err)
		}
		return nil
	})
}

func (s *Store) DetachTag(ctx context.Context, docID, tagID string) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		const del = `DELETE FROM document_tags WHERE document_id = $1 AND tag_id = $2`
		tag, err := s.querier(ctx).Exec(ctx, del, docID, tagID)
		if err != nil {
			return mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		const drop = `
			UPDATE tags SET usage_count = GREATEST(usage_count - 1, 0), updated_at = now()
			WHERE id = $1`
		if _, err := s.querier(ctx).Exec(ctx, drop, tagID); err != nil {
			return mapError(err)
		}
		return nil
	})
}
