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
	"encoding/json"
	"time"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
)

const partColumns = `document_part_id, checksum, kind, source_instance_id, device_id, source_path,
	unit_locator, content_type, extractor_name, extractor_version, metadata_json,
	last_indexed_run_id, chunk_ids_json, scope_json, created_at, updated_at, last_indexed_at`

func scanPart(row interface{ Scan(...any) error }) (*domain.DocumentPart, error) {
	var p domain.DocumentPart
	var kind, metaJSON, chunkIDsJSON string
	var lastIndexedAt sql.NullTime
	if err := row.Scan(&p.DocumentPartID, &p.Checksum, &kind, &p.SourceInstanceID, &p.DeviceID,
		&p.SourcePath, &p.UnitLocator, &p.ContentType, &p.ExtractorName, &p.ExtractorVersion,
		&metaJSON, &p.LastIndexedRunID, &chunkIDsJSON, &p.ScopeJSON, &p.CreatedAt, &p.UpdatedAt,
		&lastIndexedAt); err != nil {
		return nil, err
	}
	p.Kind = domain.SourceKind(kind)
	if lastIndexedAt.Valid {
		p.LastIndexedAt = lastIndexedAt.Time
	}
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &p.Metadata)
	}
	if chunkIDsJSON != "" {
		_ = json.Unmarshal([]byte(chunkIDsJSON), &p.ChunkIDs)
	}
	return &p, nil
}

// GetDocumentPart looks up a part by its deterministic id.
func (s *Store) GetDocumentPart(ctx context.Context, id string) (*domain.DocumentPart, error) {
	q := `SELECT ` + partColumns + ` FROM document_parts WHERE document_part_id = ` + s.placeholder(1)
	row := s.db.QueryRowContext(ctx, q, id)
	p, err := scanPart(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.NotFound, "GetDocumentPart", "part not found: "+id)
		}
		return nil, wrapStorageErr("GetDocumentPart", err)
	}
	return p, nil
}

// UpsertDocumentPart inserts a new part row, or on conflict updates only the
// metadata/extractor fields and (when chunkIDs is non-empty) the
// last-indexed fields — never clobbering an existing chunk set with an
// empty one from a fresh-ingest pre-chunk upsert (§4.2).
func (s *Store) UpsertDocumentPart(ctx context.Context, p domain.DocumentPart) error {
	metaJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return apperr.Wrap(apperr.Fatal, "UpsertDocumentPart", "marshal metadata", err)
	}
	chunkIDsJSON, err := json.Marshal(p.ChunkIDs)
	if err != nil {
		return apperr.Wrap(apperr.Fatal, "UpsertDocumentPart", "marshal chunk_ids", err)
	}
	ts := now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ts
	}
	p.UpdatedAt = ts

	var lastIndexedAt any
	if !p.LastIndexedAt.IsZero() {
		lastIndexedAt = p.LastIndexedAt
	}

	switch s.dialect {
	case "postgres":
		return s.upsertPartPostgres(ctx, p, string(metaJSON), string(chunkIDsJSON), lastIndexedAt)
	case "mysql":
		return s.upsertPartMySQL(ctx, p, string(metaJSON), string(chunkIDsJSON), lastIndexedAt)
	default:
		return s.upsertPartSQLite(ctx, p, string(metaJSON), string(chunkIDsJSON), lastIndexedAt)
	}
}

func (s *Store) upsertPartSQLite(ctx context.Context, p domain.DocumentPart, metaJSON, chunkIDsJSON string, lastIndexedAt any) error {
	q := `INSERT INTO document_parts (` + partColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(document_part_id) DO UPDATE SET
			checksum = excluded.checksum,
			kind = excluded.kind,
			source_instance_id = excluded.source_instance_id,
			device_id = excluded.device_id,
			source_path = excluded.source_path,
			unit_locator = excluded.unit_locator,
			content_type = excluded.content_type,
			extractor_name = excluded.extractor_name,
			extractor_version = excluded.extractor_version,
			metadata_json = excluded.metadata_json,
			scope_json = excluded.scope_json,
			updated_at = excluded.updated_at`
	if chunkIDsJSON != "" && chunkIDsJSON != "null" && chunkIDsJSON != "[]" {
		q += `,
			last_indexed_run_id = excluded.last_indexed_run_id,
			chunk_ids_json = excluded.chunk_ids_json,
			last_indexed_at = excluded.last_indexed_at`
	}
	_, err := s.db.ExecContext(ctx, q,
		p.DocumentPartID, p.Checksum, string(p.Kind), p.SourceInstanceID, p.DeviceID, p.SourcePath,
		p.UnitLocator, p.ContentType, p.ExtractorName, p.ExtractorVersion, metaJSON,
		p.LastIndexedRunID, chunkIDsJSON, p.ScopeJSON, p.CreatedAt, p.UpdatedAt, lastIndexedAt)
	return wrapStorageErr("UpsertDocumentPart", err)
}

func (s *Store) upsertPartMySQL(ctx context.Context, p domain.DocumentPart, metaJSON, chunkIDsJSON string, lastIndexedAt any) error {
	q := `INSERT INTO document_parts (` + partColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			checksum = VALUES(checksum),
			kind = VALUES(kind),
			source_instance_id = VALUES(source_instance_id),
			device_id = VALUES(device_id),
			source_path = VALUES(source_path),
			unit_locator = VALUES(unit_locator),
			content_type = VALUES(content_type),
			extractor_name = VALUES(extractor_name),
			extractor_version = VALUES(extractor_version),
			metadata_json = VALUES(metadata_json),
			scope_json = VALUES(scope_json),
			updated_at = VALUES(updated_at)`
	if chunkIDsJSON != "" && chunkIDsJSON != "null" && chunkIDsJSON != "[]" {
		q += `,
			last_indexed_run_id = VALUES(last_indexed_run_id),
			chunk_ids_json = VALUES(chunk_ids_json),
			last_indexed_at = VALUES(last_indexed_at)`
	}
	_, err := s.db.ExecContext(ctx, q,
		p.DocumentPartID, p.Checksum, string(p.Kind), p.SourceInstanceID, p.DeviceID, p.SourcePath,
		p.UnitLocator, p.ContentType, p.ExtractorName, p.ExtractorVersion, metaJSON,
		p.LastIndexedRunID, chunkIDsJSON, p.ScopeJSON, p.CreatedAt, p.UpdatedAt, lastIndexedAt)
	return wrapStorageErr("UpsertDocumentPart", err)
}

func (s *Store) upsertPartPostgres(ctx context.Context, p domain.DocumentPart, metaJSON, chunkIDsJSON string, lastIndexedAt any) error {
	q := `INSERT INTO document_parts (` + partColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (document_part_id) DO UPDATE SET
			checksum = EXCLUDED.checksum,
			kind = EXCLUDED.kind,
			source_instance_id = EXCLUDED.source_instance_id,
			device_id = EXCLUDED.device_id,
			source_path = EXCLUDED.source_path,
			unit_locator = EXCLUDED.unit_locator,
			content_type = EXCLUDED.content_type,
			extractor_name = EXCLUDED.extractor_name,
			extractor_version = EXCLUDED.extractor_version,
			metadata_json = EXCLUDED.metadata_json,
			scope_json = EXCLUDED.scope_json,
			updated_at = EXCLUDED.updated_at`
	if chunkIDsJSON != "" && chunkIDsJSON != "null" && chunkIDsJSON != "[]" {
		q += `,
			last_indexed_run_id = EXCLUDED.last_indexed_run_id,
			chunk_ids_json = EXCLUDED.chunk_ids_json,
			last_indexed_at = EXCLUDED.last_indexed_at`
	}
	_, err := s.db.ExecContext(ctx, q,
		p.DocumentPartID, p.Checksum, string(p.Kind), p.SourceInstanceID, p.DeviceID, p.SourcePath,
		p.UnitLocator, p.ContentType, p.ExtractorName, p.ExtractorVersion, metaJSON,
		p.LastIndexedRunID, chunkIDsJSON, p.ScopeJSON, p.CreatedAt, p.UpdatedAt, lastIndexedAt)
	return wrapStorageErr("UpsertDocumentPart", err)
}

// MarkDocumentPartProcessed advances a part's last-indexed fields (I4:
// processed <=> indexed). Called both on fresh/reprocess ingest and on skip
// (so counters and timestamps still advance for an unchanged part, per the
// Open Question (a) decision recorded in DESIGN.md: skip DOES advance
// last_indexed_run_id).
func (s *Store) MarkDocumentPartProcessed(ctx context.Context, runID, documentPartID string, chunkIDs []string, at time.Time) error {
	chunkIDsJSON, err := json.Marshal(chunkIDs)
	if err != nil {
		return apperr.Wrap(apperr.Fatal, "MarkDocumentPartProcessed", "marshal chunk_ids", err)
	}
	q := `UPDATE document_parts SET last_indexed_run_id = ` + s.placeholder(1) +
		`, chunk_ids_json = ` + s.placeholder(2) +
		`, last_indexed_at = ` + s.placeholder(3) +
		`, updated_at = ` + s.placeholder(4) +
		` WHERE document_part_id = ` + s.placeholder(5)
	res, err := s.db.ExecContext(ctx, q, runID, string(chunkIDsJSON), at, at, documentPartID)
	if err != nil {
		return wrapStorageErr("MarkDocumentPartProcessed", err)
	}
	return s.requireAffected(res, "MarkDocumentPartProcessed", documentPartID)
}

// DeleteDocumentParts removes a batch of part rows by id (used by cleanup
// after their chunks have been removed from the vector store).
func (s *Store) DeleteDocumentParts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		q := `DELETE FROM document_parts WHERE document_part_id = ` + s.placeholder(1)
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// StaleResult is one part eligible for removal by cleanup (I5).
type StaleResult struct {
	DocumentPartID string
	ChunkIDs       []string
}

// GetStaleParts computes S = parts whose scope_json equals r.ScopeJSON but
// whose last_indexed_run_id != r.ID (§4.2, §4.8 cleanup). It reads
// document_parts alone and does not consult other runs: a part last indexed
// by another run that is still running is returned as stale too, and
// worker.Cleanup deletes every part this returns.
func (s *Store) GetStaleParts(ctx context.Context, runID, scopeJSON string) ([]StaleResult, error) {
	q := `SELECT document_part_id, chunk_ids_json FROM document_parts
		WHERE scope_json = ` + s.placeholder(1) + ` AND last_indexed_run_id <> ` + s.placeholder(2)
	rows, err := s.db.QueryContext(ctx, q, scopeJSON, runID)
	if err != nil {
		return nil, wrapStorageErr("GetStaleParts", err)
	}
	defer rows.Close()
	var out []StaleResult
	for rows.Next() {
		var r StaleResult
		var chunkIDsJSON string
		if err := rows.Scan(&r.DocumentPartID, &chunkIDsJSON); err != nil {
			return nil, wrapStorageErr("GetStaleParts", err)
		}
		if chunkIDsJSON != "" {
			_ = json.Unmarshal([]byte(chunkIDsJSON), &r.ChunkIDs)
		}
		out = append(out, r)
	}
	return out, wrapStorageErr("GetStaleParts", rows.Err())
}
