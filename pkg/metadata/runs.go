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

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
)

const runColumns = `id, kind, scope_json, status, started_at, updated_at, last_document_id,
	discovered_count, indexed_count, stop_requested, is_discovering, is_indexing`

func scanRun(row interface{ Scan(...any) error }) (*domain.Run, error) {
	var r domain.Run
	var kind, status string
	if err := row.Scan(&r.ID, &kind, &r.ScopeJSON, &status, &r.StartedAt, &r.UpdatedAt,
		&r.LastDocumentID, &r.DiscoveredCount, &r.IndexedCount,
		&r.StopRequested, &r.IsDiscovering, &r.IsIndexing); err != nil {
		return nil, err
	}
	r.Kind = domain.SourceKind(kind)
	r.Status = domain.RunStatus(status)
	return &r, nil
}

// CreateRun inserts a new `running` row with zero counters (Run Controller
// §4.8 create()).
func (s *Store) CreateRun(ctx context.Context, r domain.Run) error {
	q := `INSERT INTO runs (` + runColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	if s.dialect == "postgres" {
		q = `INSERT INTO runs (` + runColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	}
	_, err := s.db.ExecContext(ctx, q,
		r.ID, string(r.Kind), r.ScopeJSON, string(r.Status), r.StartedAt, r.UpdatedAt,
		r.LastDocumentID, r.DiscoveredCount, r.IndexedCount,
		r.StopRequested, r.IsDiscovering, r.IsIndexing)
	if err != nil {
		return wrapStorageErr("CreateRun", err)
	}
	return nil
}

// LoadRunByID fetches a Run by id.
func (s *Store) LoadRunByID(ctx context.Context, id string) (*domain.Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs WHERE id = ` + s.placeholder(1)
	row := s.db.QueryRowContext(ctx, q, id)
	r, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.NotFound, "LoadRunByID", "run not found: "+id)
		}
		return nil, wrapStorageErr("LoadRunByID", err)
	}
	return r, nil
}

// LoadLatestByKind returns the most recently started run of kind, regardless
// of status.
func (s *Store) LoadLatestByKind(ctx context.Context, kind domain.SourceKind) (*domain.Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs WHERE kind = ` + s.placeholder(1) + ` ORDER BY started_at DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, q, string(kind))
	r, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.NotFound, "LoadLatestByKind", "no runs of kind "+string(kind))
		}
		return nil, wrapStorageErr("LoadLatestByKind", err)
	}
	return r, nil
}

// LoadLatestInterruptedByKind returns the most recent interrupted run of
// kind, used by resume_latest.
func (s *Store) LoadLatestInterruptedByKind(ctx context.Context, kind domain.SourceKind) (*domain.Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs WHERE kind = ` + s.placeholder(1) +
		` AND status = ` + s.placeholder(2) + ` ORDER BY started_at DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, q, string(kind), string(domain.RunInterrupted))
	r, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.NotFound, "LoadLatestInterruptedByKind", "no interrupted runs of kind "+string(kind))
		}
		return nil, wrapStorageErr("LoadLatestInterruptedByKind", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first, for the HTTP surface's
// GET /runs/list.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT ` + s.placeholder(1)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, wrapStorageErr("ListRuns", err)
	}
	defer rows.Close()
	var out []domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, wrapStorageErr("ListRuns", err)
		}
		out = append(out, *r)
	}
	return out, wrapStorageErr("ListRuns", rows.Err())
}

// UpdateStatus transitions status, refreshing updated_at. Terminal runs (I7)
// reject further mutation except through the caller's own terminal check;
// the store itself applies the write unconditionally, since Run Controller
// call sites are the ones responsible for checking Terminal() first.
func (s *Store) UpdateStatus(ctx context.Context, runID string, status domain.RunStatus) error {
	q := `UPDATE runs SET status = ` + s.placeholder(1) + `, updated_at = ` + s.placeholder(2) +
		` WHERE id = ` + s.placeholder(3)
	res, err := s.db.ExecContext(ctx, q, string(status), now(), runID)
	if err != nil {
		return wrapStorageErr("UpdateStatus", err)
	}
	return s.requireAffected(res, "UpdateStatus", runID)
}

// RequestStop sets stop_requested. Idempotent; a no-op call against a
// terminal run still succeeds (§4.8 request_stop is specified as a safe
// no-op on completed runs).
func (s *Store) RequestStop(ctx context.Context, runID string) error {
	q := `UPDATE runs SET stop_requested = TRUE, updated_at = ` + s.placeholder(1) +
		` WHERE id = ` + s.placeholder(2)
	res, err := s.db.ExecContext(ctx, q, now(), runID)
	if err != nil {
		return wrapStorageErr("RequestStop", err)
	}
	return s.requireAffected(res, "RequestStop", runID)
}

// ClearStopRequested resets the flag so a resumed run's workers don't
// observe a stale stop request left over from the interruption that
// preceded it (resume_latest, §4.8).
func (s *Store) ClearStopRequested(ctx context.Context, runID string) error {
	q := `UPDATE runs SET stop_requested = FALSE, updated_at = ` + s.placeholder(1) +
		` WHERE id = ` + s.placeholder(2)
	res, err := s.db.ExecContext(ctx, q, now(), runID)
	if err != nil {
		return wrapStorageErr("ClearStopRequested", err)
	}
	return s.requireAffected(res, "ClearStopRequested", runID)
}

// IsStopRequested polls the flag.
func (s *Store) IsStopRequested(ctx context.Context, runID string) (bool, error) {
	q := `SELECT stop_requested FROM runs WHERE id = ` + s.placeholder(1)
	var v bool
	err := s.db.QueryRowContext(ctx, q, runID).Scan(&v)
	if err == sql.ErrNoRows {
		return false, apperr.New(apperr.NotFound, "IsStopRequested", "run not found: "+runID)
	}
	if err != nil {
		return false, wrapStorageErr("IsStopRequested", err)
	}
	return v, nil
}

// IncrementDiscovered advances discovered_count (I6: monotone, discovered >=
// indexed).
func (s *Store) IncrementDiscovered(ctx context.Context, runID string, by int) error {
	q := `UPDATE runs SET discovered_count = discovered_count + ` + s.placeholder(1) +
		`, updated_at = ` + s.placeholder(2) + ` WHERE id = ` + s.placeholder(3)
	res, err := s.db.ExecContext(ctx, q, by, now(), runID)
	if err != nil {
		return wrapStorageErr("IncrementDiscovered", err)
	}
	return s.requireAffected(res, "IncrementDiscovered", runID)
}

// IncrementIndexed advances indexed_count.
func (s *Store) IncrementIndexed(ctx context.Context, runID string, by int) error {
	q := `UPDATE runs SET indexed_count = indexed_count + ` + s.placeholder(1) +
		`, updated_at = ` + s.placeholder(2) + ` WHERE id = ` + s.placeholder(3)
	res, err := s.db.ExecContext(ctx, q, by, now(), runID)
	if err != nil {
		return wrapStorageErr("IncrementIndexed", err)
	}
	return s.requireAffected(res, "IncrementIndexed", runID)
}

// SetIsDiscovering flips the discovery-liveness flag (Discovery Worker sets
// false on exhaustion/stop per §4.6).
func (s *Store) SetIsDiscovering(ctx context.Context, runID string, v bool) error {
	q := `UPDATE runs SET is_discovering = ` + s.placeholder(1) + `, updated_at = ` + s.placeholder(2) +
		` WHERE id = ` + s.placeholder(3)
	res, err := s.db.ExecContext(ctx, q, v, now(), runID)
	if err != nil {
		return wrapStorageErr("SetIsDiscovering", err)
	}
	return s.requireAffected(res, "SetIsDiscovering", runID)
}

// SetIsIndexing flips the indexing-liveness flag.
func (s *Store) SetIsIndexing(ctx context.Context, runID string, v bool) error {
	q := `UPDATE runs SET is_indexing = ` + s.placeholder(1) + `, updated_at = ` + s.placeholder(2) +
		` WHERE id = ` + s.placeholder(3)
	res, err := s.db.ExecContext(ctx, q, v, now(), runID)
	if err != nil {
		return wrapStorageErr("SetIsIndexing", err)
	}
	return s.requireAffected(res, "SetIsIndexing", runID)
}

func (s *Store) requireAffected(res sql.Result, op, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr(op, err)
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, op, "run not found: "+runID)
	}
	return nil
}
