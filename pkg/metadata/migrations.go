// Copyright 2025 Kadir Pekel
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

package metadata

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one numbered, append-only schema step. Declarative migrations
// set SQL per dialect; procedural ones set fn for backfills that can't be
// expressed as plain DDL (e.g. a column rename on sqlite, which has no
// native RENAME/ADD-with-backfill in one statement on old sqlite3 builds).
type migration struct {
	version int
	name    string
	sql     map[string]string // dialect -> statement; "" (default) applies when dialect has no override
	fn      func(ctx context.Context, tx *sql.Tx, dialect string) error
}

// migrations is the append-only ordered list. Never edit an applied entry;
// add a new one instead.
var migrations = []migration{
	{
		version: 1,
		name:    "create_runs",
		sql: map[string]string{
			"": `CREATE TABLE IF NOT EXISTS runs (
				id VARCHAR(255) PRIMARY KEY,
				kind VARCHAR(64) NOT NULL,
				scope_json TEXT NOT NULL,
				status VARCHAR(32) NOT NULL,
				started_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				last_document_id VARCHAR(255) NOT NULL DEFAULT '',
				discovered_count INTEGER NOT NULL DEFAULT 0,
				indexed_count INTEGER NOT NULL DEFAULT 0,
				stop_requested BOOLEAN NOT NULL DEFAULT FALSE,
				is_discovering BOOLEAN NOT NULL DEFAULT FALSE,
				is_indexing BOOLEAN NOT NULL DEFAULT FALSE
			)`,
		},
	},
	{
		version: 2,
		name:    "create_document_parts",
		sql: map[string]string{
			"": `CREATE TABLE IF NOT EXISTS document_parts (
				document_part_id VARCHAR(255) PRIMARY KEY,
				checksum VARCHAR(255) NOT NULL,
				kind VARCHAR(64) NOT NULL,
				source_instance_id VARCHAR(255) NOT NULL,
				device_id VARCHAR(255) NOT NULL,
				source_path TEXT NOT NULL,
				unit_locator TEXT NOT NULL,
				content_type VARCHAR(255) NOT NULL DEFAULT '',
				extractor_name VARCHAR(255) NOT NULL DEFAULT '',
				extractor_version VARCHAR(64) NOT NULL DEFAULT '',
				metadata_json TEXT NOT NULL DEFAULT '{}',
				last_indexed_run_id VARCHAR(255) NOT NULL DEFAULT '',
				chunk_ids_json TEXT NOT NULL DEFAULT '[]',
				scope_json TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				last_indexed_at TIMESTAMP NULL
			)`,
		},
	},
	{
		version: 3,
		name:    "create_document_parts_queue",
		sql: map[string]string{
			"postgres": `CREATE TABLE IF NOT EXISTS document_parts_queue (
				seq SERIAL PRIMARY KEY,
				run_id VARCHAR(255) NOT NULL,
				document_part_id VARCHAR(255) NOT NULL,
				checksum VARCHAR(255) NOT NULL,
				kind VARCHAR(64) NOT NULL,
				source_instance_id VARCHAR(255) NOT NULL,
				device_id VARCHAR(255) NOT NULL,
				source_path TEXT NOT NULL,
				unit_locator TEXT NOT NULL,
				content_type VARCHAR(255) NOT NULL DEFAULT '',
				extractor_name VARCHAR(255) NOT NULL DEFAULT '',
				extractor_version VARCHAR(64) NOT NULL DEFAULT '',
				metadata_json TEXT NOT NULL DEFAULT '{}',
				text TEXT NOT NULL DEFAULT '',
				scope_json TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL
			)`,
			"mysql": `CREATE TABLE IF NOT EXISTS document_parts_queue (
				seq BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_id VARCHAR(255) NOT NULL,
				document_part_id VARCHAR(255) NOT NULL,
				checksum VARCHAR(255) NOT NULL,
				kind VARCHAR(64) NOT NULL,
				source_instance_id VARCHAR(255) NOT NULL,
				device_id VARCHAR(255) NOT NULL,
				source_path TEXT NOT NULL,
				unit_locator TEXT NOT NULL,
				content_type VARCHAR(255) NOT NULL DEFAULT '',
				extractor_name VARCHAR(255) NOT NULL DEFAULT '',
				extractor_version VARCHAR(64) NOT NULL DEFAULT '',
				metadata_json TEXT NOT NULL DEFAULT '{}',
				text TEXT,
				scope_json TEXT NOT NULL DEFAULT '{}',
				created_at TIMESTAMP NOT NULL
			)`,
			"": `CREATE TABLE IF NOT EXISTS document_parts_queue (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id VARCHAR(255) NOT NULL,
				document_part_id VARCHAR(255) NOT NULL,
				checksum VARCHAR(255) NOT NULL,
				kind VARCHAR(64) NOT NULL,
				source_instance_id VARCHAR(255) NOT NULL,
				device_id VARCHAR(255) NOT NULL,
				source_path TEXT NOT NULL,
				unit_locator TEXT NOT NULL,
				content_type VARCHAR(255) NOT NULL DEFAULT '',
				extractor_name VARCHAR(255) NOT NULL DEFAULT '',
				extractor_version VARCHAR(64) NOT NULL DEFAULT '',
				metadata_json TEXT NOT NULL DEFAULT '{}',
				text TEXT NOT NULL DEFAULT '',
				scope_json TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL
			)`,
		},
	},
	{
		version: 4,
		name:    "create_monitored_sources",
		sql: map[string]string{
			"": `CREATE TABLE IF NOT EXISTS monitored_sources (
				id VARCHAR(64) PRIMARY KEY,
				kind VARCHAR(64) NOT NULL,
				locator TEXT NOT NULL,
				scope_json TEXT NOT NULL,
				last_seen_fingerprint VARCHAR(255) NOT NULL DEFAULT '',
				last_checked_at TIMESTAMP NULL,
				last_ingested_at TIMESTAMP NULL,
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP NOT NULL
			)`,
		},
	},
	{
		version: 5,
		name:    "unique_monitored_source_scope",
		sql: map[string]string{
			// Scope uniqueness (§3 Monitored Source) enforced via a unique index
			// over a fixed-length hash column rather than the raw TEXT column,
			// since MySQL requires a key length on TEXT columns.
			"mysql": `ALTER TABLE monitored_sources ADD COLUMN scope_hash CHAR(64) NOT NULL DEFAULT ''`,
			"":      `ALTER TABLE monitored_sources ADD COLUMN scope_hash CHAR(64) NOT NULL DEFAULT ''`,
		},
		fn: backfillScopeHash,
	},
	{
		version: 6,
		name:    "unique_monitored_source_scope_index",
		sql: map[string]string{
			"": `CREATE UNIQUE INDEX IF NOT EXISTS idx_monitored_sources_scope_hash ON monitored_sources(scope_hash)`,
		},
	},
	{
		version: 7,
		name:    "index_document_parts_lookup",
		sql: map[string]string{
			"": `CREATE INDEX IF NOT EXISTS idx_document_parts_source_instance ON document_parts(source_instance_id)`,
		},
	},
	{
		version: 8,
		name:    "index_queue_run",
		sql: map[string]string{
			"": `CREATE INDEX IF NOT EXISTS idx_document_parts_queue_run ON document_parts_queue(run_id, seq)`,
		},
	},
}

// backfillScopeHash is a procedural migration: it populates the new
// scope_hash column by hashing each existing row's scope_json, the way a
// column backfill is done when the constraint can't be expressed purely in
// DDL across all three dialects.
func backfillScopeHash(ctx context.Context, tx *sql.Tx, dialect string) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, scope_json FROM monitored_sources`)
	if err != nil {
		return err
	}
	type pair struct{ id, scope string }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.id, &p.scope); err != nil {
			rows.Close()
			return err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	ph := "?"
	for _, p := range pairs {
		q := fmt.Sprintf(`UPDATE monitored_sources SET scope_hash = %s WHERE id = %s`, ph, ph2(dialect))
		if dialect == "postgres" {
			q = `UPDATE monitored_sources SET scope_hash = $1 WHERE id = $2`
		}
		if _, err := tx.ExecContext(ctx, q, scopeHash(p.scope), p.id); err != nil {
			return err
		}
	}
	return nil
}

func ph2(dialect string) string {
	if dialect == "postgres" {
		return "$2"
	}
	return "?"
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return err
	}
	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`)
	return err
}

func (s *Store) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if stmt, ok := m.sql[s.dialect]; ok {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		} else if stmt, ok := m.sql[""]; ok {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		if m.fn != nil {
			if err := m.fn(ctx, tx, s.dialect); err != nil {
				return err
			}
		}
		insert := `INSERT INTO schema_migrations (version) VALUES (?)`
		if s.dialect == "postgres" {
			insert = `INSERT INTO schema_migrations (version) VALUES ($1)`
		}
		_, err := tx.ExecContext(ctx, insert, m.version)
		return err
	})
}
