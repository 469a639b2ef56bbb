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
	"strings"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
)

const sourceColumns = `id, kind, locator, scope_json, last_seen_fingerprint, last_checked_at,
	last_ingested_at, enabled, created_at`

func scanSource(row interface{ Scan(...any) error }) (*domain.MonitoredSource, error) {
	var m domain.MonitoredSource
	var kind string
	var lastChecked, lastIngested sql.NullTime
	if err := row.Scan(&m.ID, &kind, &m.Locator, &m.ScopeJSON, &m.LastSeenFingerprint,
		&lastChecked, &lastIngested, &m.Enabled, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Kind = domain.SourceKind(kind)
	if lastChecked.Valid {
		m.LastCheckedAt = lastChecked.Time
	}
	if lastIngested.Valid {
		m.LastIngestedAt = lastIngested.Time
	}
	return &m, nil
}

// CreateMonitoredSource inserts a new catalogued scope. Uniqueness on the
// canonical scope_json (§3) is enforced via the scope_hash unique index;
// a duplicate insert surfaces as apperr.Conflict.
func (s *Store) CreateMonitoredSource(ctx context.Context, m domain.MonitoredSource) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	cols := `id, kind, locator, scope_json, scope_hash, last_seen_fingerprint, last_checked_at,
		last_ingested_at, enabled, created_at`
	q := `INSERT INTO monitored_sources (` + cols + `) VALUES (?,?,?,?,?,?,?,?,?,?)`
	if s.dialect == "postgres" {
		q = `INSERT INTO monitored_sources (` + cols + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	}
	var lastChecked, lastIngested any
	if !m.LastCheckedAt.IsZero() {
		lastChecked = m.LastCheckedAt
	}
	if !m.LastIngestedAt.IsZero() {
		lastIngested = m.LastIngestedAt
	}
	_, err := s.db.ExecContext(ctx, q, m.ID, string(m.Kind), m.Locator, m.ScopeJSON,
		scopeHash(m.ScopeJSON), m.LastSeenFingerprint, lastChecked, lastIngested, m.Enabled, m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.Conflict, "CreateMonitoredSource", "scope already registered", err)
		}
		return wrapStorageErr("CreateMonitoredSource", err)
	}
	return nil
}

// GetMonitoredSource fetches one catalogued scope by id.
func (s *Store) GetMonitoredSource(ctx context.Context, id string) (*domain.MonitoredSource, error) {
	q := `SELECT ` + sourceColumns + ` FROM monitored_sources WHERE id = ` + s.placeholder(1)
	row := s.db.QueryRowContext(ctx, q, id)
	m, err := scanSource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.NotFound, "GetMonitoredSource", "monitored source not found: "+id)
		}
		return nil, wrapStorageErr("GetMonitoredSource", err)
	}
	return m, nil
}

// ListMonitoredSources returns the full catalogue.
func (s *Store) ListMonitoredSources(ctx context.Context) ([]domain.MonitoredSource, error) {
	q := `SELECT ` + sourceColumns + ` FROM monitored_sources ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapStorageErr("ListMonitoredSources", err)
	}
	defer rows.Close()
	var out []domain.MonitoredSource
	for rows.Next() {
		m, err := scanSource(rows)
		if err != nil {
			return nil, wrapStorageErr("ListMonitoredSources", err)
		}
		out = append(out, *m)
	}
	return out, wrapStorageErr("ListMonitoredSources", rows.Err())
}

// TouchMonitoredSourceFingerprint refreshes last_checked_at and
// last_seen_fingerprint only, for the fsnotify change-hint path (§6): unlike
// UpdateMonitoredSourceScan, it never touches last_ingested_at, since
// observing a filesystem event is not a completed scan.
func (s *Store) TouchMonitoredSourceFingerprint(ctx context.Context, id, fingerprint string) error {
	ts := now()
	q := `UPDATE monitored_sources SET last_checked_at = ` + s.placeholder(1) +
		`, last_seen_fingerprint = ` + s.placeholder(2) +
		` WHERE id = ` + s.placeholder(3)
	res, err := s.db.ExecContext(ctx, q, ts, fingerprint, id)
	if err != nil {
		return wrapStorageErr("TouchMonitoredSourceFingerprint", err)
	}
	return s.requireSourceAffected(res, "TouchMonitoredSourceFingerprint", id)
}

// UpdateMonitoredSourceScan refreshes last_checked_at/last_ingested_at and
// the fingerprint after a scan() completes.
func (s *Store) UpdateMonitoredSourceScan(ctx context.Context, id, fingerprint string) error {
	ts := now()
	q := `UPDATE monitored_sources SET last_checked_at = ` + s.placeholder(1) +
		`, last_ingested_at = ` + s.placeholder(2) +
		`, last_seen_fingerprint = ` + s.placeholder(3) +
		` WHERE id = ` + s.placeholder(4)
	res, err := s.db.ExecContext(ctx, q, ts, ts, fingerprint, id)
	if err != nil {
		return wrapStorageErr("UpdateMonitoredSourceScan", err)
	}
	return s.requireSourceAffected(res, "UpdateMonitoredSourceScan", id)
}

// SetMonitoredSourceEnabled toggles the enable flag.
func (s *Store) SetMonitoredSourceEnabled(ctx context.Context, id string, enabled bool) error {
	q := `UPDATE monitored_sources SET enabled = ` + s.placeholder(1) + ` WHERE id = ` + s.placeholder(2)
	res, err := s.db.ExecContext(ctx, q, enabled, id)
	if err != nil {
		return wrapStorageErr("SetMonitoredSourceEnabled", err)
	}
	return s.requireSourceAffected(res, "SetMonitoredSourceEnabled", id)
}

// DeleteMonitoredSource removes a catalogued scope.
func (s *Store) DeleteMonitoredSource(ctx context.Context, id string) error {
	q := `DELETE FROM monitored_sources WHERE id = ` + s.placeholder(1)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return wrapStorageErr("DeleteMonitoredSource", err)
	}
	return s.requireSourceAffected(res, "DeleteMonitoredSource", id)
}

func (s *Store) requireSourceAffected(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr(op, err)
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, op, "monitored source not found: "+id)
	}
	return nil
}

// isUniqueViolation recognizes a unique-constraint error across the three
// dialects by substring, the way lib/pq/go-sql-driver/mattn-sqlite3 each
// surface the violation with a different message shape and no shared
// sentinel error type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{"UNIQUE constraint failed", "duplicate key value violates unique constraint", "Duplicate entry", "Error 1062"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
