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

// Package metadata is the durable, single-writer-per-row relational store
// backing runs, document parts, the work queue, and monitored sources (spec
// §4.2). It dialect-switches across sqlite/postgres/mysql the way the
// teacher's v2/task/store.go does for its a2a_tasks table, and applies a
// numbered, append-only migration set inside a transaction at startup.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/semind/semind/pkg/apperr"
)

// Store is the Metadata Store: durable records for runs, monitored sources,
// document parts, and the work queue, all behind one *sql.DB.
type Store struct {
	db      *sql.DB
	dialect string
}

// driverName maps a dialect tag to its database/sql driver name.
func driverName(dialect string) (string, error) {
	switch dialect {
	case "sqlite":
		return "sqlite3", nil
	case "postgres":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported metadata dialect: %q (supported: sqlite, postgres, mysql)", dialect)
	}
}

// Open connects to dsn under the given dialect and applies pending migrations.
func Open(dialect, dsn string) (*Store, error) {
	driver, err := driverName(dialect)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata store (%s): %w", dialect, err)
	}
	if dialect == "sqlite" {
		// A single shared connection avoids "database is locked" across the
		// Discovery and Indexing Workers writing concurrently, the same
		// constraint the teacher's SQL task store documents.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping metadata store (%s): %w", dialect, err)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect reports which SQL dialect this store was opened against.
func (s *Store) Dialect() string {
	return s.dialect
}

// placeholder returns the positional-parameter marker for argument index i
// (1-based) in the store's dialect: "?" for sqlite/mysql, "$N" for postgres.
func (s *Store) placeholder(i int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func wrapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return apperr.Wrap(apperr.NotFound, op, "not found", err)
	}
	return apperr.Wrap(apperr.Fatal, op, "storage error", err)
}

// now is the single clock read the store uses for timestamp columns, so
// callers that need a consistent "now" across a compound update (e.g. upsert
// part + increment counter) can pass it through explicitly.
func now() time.Time {
	return time.Now().UTC()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back otherwise. DeleteDocumentParts and the migration runner use it; the
// part upsert, mark-processed and counter increments each run as their own
// statement, not inside one shared transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorageErr("withTx.begin", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapStorageErr("withTx.commit", err)
	}
	return nil
}
