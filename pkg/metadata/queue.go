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

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
)

const queueColumns = `seq, run_id, document_part_id, checksum, kind, source_instance_id, device_id,
	source_path, unit_locator, content_type, extractor_name, extractor_version, metadata_json,
	text, scope_json, created_at`

func scanQueueEntry(row interface{ Scan(...any) error }) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	var kind, metaJSON string
	if err := row.Scan(&e.Seq, &e.RunID, &e.Part.DocumentPartID, &e.Part.Checksum, &kind,
		&e.Part.SourceInstanceID, &e.Part.DeviceID, &e.Part.SourcePath, &e.Part.UnitLocator,
		&e.Part.ContentType, &e.Part.ExtractorName, &e.Part.ExtractorVersion, &metaJSON,
		&e.Text, &e.ScopeJSON, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Part.Kind = domain.SourceKind(kind)
	e.Part.ScopeJSON = e.ScopeJSON
	e.Part.Text = e.Text
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &e.Part.Metadata)
	}
	return &e, nil
}

// QueueAdd enqueues one Work Queue Entry, FIFO by auto-increment seq (§4.2).
func (s *Store) QueueAdd(ctx context.Context, e domain.QueueEntry) error {
	metaJSON, err := json.Marshal(e.Part.Metadata)
	if err != nil {
		return apperr.Wrap(apperr.Fatal, "QueueAdd", "marshal metadata", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	cols := `run_id, document_part_id, checksum, kind, source_instance_id, device_id, source_path,
		unit_locator, content_type, extractor_name, extractor_version, metadata_json, text, scope_json, created_at`
	q := `INSERT INTO document_parts_queue (` + cols + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	if s.dialect == "postgres" {
		q = `INSERT INTO document_parts_queue (` + cols + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	}
	_, err = s.db.ExecContext(ctx, q,
		e.RunID, e.Part.DocumentPartID, e.Part.Checksum, string(e.Part.Kind), e.Part.SourceInstanceID,
		e.Part.DeviceID, e.Part.SourcePath, e.Part.UnitLocator, e.Part.ContentType, e.Part.ExtractorName,
		e.Part.ExtractorVersion, string(metaJSON), e.Text, e.ScopeJSON, e.CreatedAt)
	return wrapStorageErr("QueueAdd", err)
}

// QueueNext returns the oldest entry for runID (FIFO), or nil if empty.
func (s *Store) QueueNext(ctx context.Context, runID string) (*domain.QueueEntry, error) {
	q := `SELECT ` + queueColumns + ` FROM document_parts_queue WHERE run_id = ` + s.placeholder(1) +
		` ORDER BY seq ASC LIMIT 1`
	row := s.db.QueryRowContext(ctx, q, runID)
	e, err := scanQueueEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr("QueueNext", err)
	}
	return e, nil
}

// QueueRemove deletes the entry for (runID, documentPartID) — there is at
// most one live queue row per part per run under normal operation, but this
// removes all matches defensively.
func (s *Store) QueueRemove(ctx context.Context, runID, documentPartID string) error {
	q := `DELETE FROM document_parts_queue WHERE run_id = ` + s.placeholder(1) +
		` AND document_part_id = ` + s.placeholder(2)
	_, err := s.db.ExecContext(ctx, q, runID, documentPartID)
	return wrapStorageErr("QueueRemove", err)
}

// QueueList returns every queued entry for runID in FIFO order.
func (s *Store) QueueList(ctx context.Context, runID string) ([]domain.QueueEntry, error) {
	q := `SELECT ` + queueColumns + ` FROM document_parts_queue WHERE run_id = ` + s.placeholder(1) + ` ORDER BY seq ASC`
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, wrapStorageErr("QueueList", err)
	}
	defer rows.Close()
	var out []domain.QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, wrapStorageErr("QueueList", err)
		}
		out = append(out, *e)
	}
	return out, wrapStorageErr("QueueList", rows.Err())
}

// QueueDepth counts runID's outstanding queue entries, for the Prometheus
// queue-depth gauge.
func (s *Store) QueueDepth(ctx context.Context, runID string) (int, error) {
	q := `SELECT COUNT(*) FROM document_parts_queue WHERE run_id = ` + s.placeholder(1)
	var n int
	if err := s.db.QueryRowContext(ctx, q, runID).Scan(&n); err != nil {
		return 0, wrapStorageErr("QueueDepth", err)
	}
	return n, nil
}

// QueueClear drops every queued entry for runID. Called when a run fails,
// since a failed run has no resume path and would otherwise leave its
// remaining entries queued forever.
func (s *Store) QueueClear(ctx context.Context, runID string) error {
	q := `DELETE FROM document_parts_queue WHERE run_id = ` + s.placeholder(1)
	_, err := s.db.ExecContext(ctx, q, runID)
	return wrapStorageErr("QueueClear", err)
}

// QueueClearAll drops the entire queue across every run. Used by
// maintenance/reset tooling, never by the normal pipeline.
func (s *Store) QueueClearAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_parts_queue`)
	return wrapStorageErr("QueueClearAll", err)
}
