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

// schemaDDL is idempotent; every statement tolerates an existing object.
// The partial unique index on processing_jobs enforces the one-active-job
// rule at the database level.
const schemaDDL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
	id           UUID PRIMARY KEY,
	title        TEXT NOT NULL,
	owner_id     TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	doc_type     TEXT NOT NULL,
	size_bytes   BIGINT NOT NULL DEFAULT 0,
	language     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	version      INT NOT NULL DEFAULT 0,
	chunk_count  INT NOT NULL DEFAULT 0,
	last_error   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents (owner_id, created_at DESC);

CREATE TABLE IF NOT EXISTS chunks (
	id          UUID PRIMARY KEY,
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	revision    INT NOT NULL,
	seq         INT NOT NULL,
	body        TEXT NOT NULL,
	token_count INT NOT NULL DEFAULT 0,
	char_count  INT NOT NULL DEFAULT 0,
	embedding   vector,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (document_id, revision, seq)
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc_rev ON chunks (document_id, revision);

CREATE TABLE IF NOT EXISTS tags (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	color       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	is_system   BOOLEAN NOT NULL DEFAULT FALSE,
	usage_count INT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_name_lower ON tags (lower(name));

CREATE TABLE IF NOT EXISTS document_tags (
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	tag_id      UUID NOT NULL REFERENCES tags(id),
	PRIMARY KEY (document_id, tag_id)
);

CREATE TABLE IF NOT EXISTS processing_jobs (
	id              UUID PRIMARY KEY,
	document_id     UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_size      INT NOT NULL DEFAULT 0,
	chunk_overlap   INT NOT NULL DEFAULT 0,
	embedding_model TEXT NOT NULL DEFAULT '',
	engine          TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	attempts        INT NOT NULL DEFAULT 0,
	last_error      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_one_active
	ON processing_jobs (document_id)
	WHERE status IN ('pending', 'running');
`
