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

// Package sources is the Monitored Sources catalogue (§4.9): scopes eligible
// for scheduled scans. scan(id)/scan_all() translate into a create +
// start_indexing against the Run Controller, which stays the single code
// path that ever touches a run, regardless of what triggered it.
package sources

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/metadata"
	"github.com/semind/semind/pkg/run"
)

// Catalogue manages the monitored_sources table and drives scans through a
// Run Controller.
type Catalogue struct {
	store *metadata.Store
	runs  *run.Controller
}

func NewCatalogue(store *metadata.Store, runs *run.Controller) *Catalogue {
	return &Catalogue{store: store, runs: runs}
}

// Add registers scope for scheduled scanning. Uniqueness on the canonical
// scope is enforced by the metadata store (Conflict on duplicate).
func (c *Catalogue) Add(ctx context.Context, scope domain.Scope) (*domain.MonitoredSource, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Catalogue.Add", "invalid scope", err)
	}
	scopeJSON, err := scope.Canonical()
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Catalogue.Add", "canonicalize scope", err)
	}
	fp, err := Fingerprint(scope)
	if err != nil {
		slog.Warn("sources: initial fingerprint failed", "error", err)
	}
	m := domain.MonitoredSource{
		ID:                  uuid.NewString(),
		Kind:                scope.Kind,
		Locator:             scope.Locator(),
		ScopeJSON:           scopeJSON,
		LastSeenFingerprint: fp,
		Enabled:             true,
		CreatedAt:           time.Now().UTC(),
	}
	if err := c.store.CreateMonitoredSource(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Catalogue) Get(ctx context.Context, id string) (*domain.MonitoredSource, error) {
	return c.store.GetMonitoredSource(ctx, id)
}

func (c *Catalogue) List(ctx context.Context) ([]domain.MonitoredSource, error) {
	return c.store.ListMonitoredSources(ctx)
}

func (c *Catalogue) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return c.store.SetMonitoredSourceEnabled(ctx, id, enabled)
}

func (c *Catalogue) Delete(ctx context.Context, id string) error {
	return c.store.DeleteMonitoredSource(ctx, id)
}

// RefreshFingerprint records a recomputed fingerprint outside of scan() —
// the Watcher's fsnotify change-hint path (§6). It never touches
// last_ingested_at: observing an event is not a completed scan.
func (c *Catalogue) RefreshFingerprint(ctx context.Context, id, fingerprint string) error {
	return c.store.TouchMonitoredSourceFingerprint(ctx, id, fingerprint)
}

// Scan triggers a create + start_indexing for the monitored source's scope
// (§4.9). The fingerprint is recomputed and recorded for observability, but
// never gates the scan itself: scans stay explicit per spec.md's non-goal on
// real-time watching, so "nothing changed" is informational, not a skip
// condition.
func (c *Catalogue) Scan(ctx context.Context, id string) (*domain.Run, error) {
	m, err := c.store.GetMonitoredSource(ctx, id)
	if err != nil {
		return nil, err
	}
	scope, err := domain.ParseScope(m.ScopeJSON)
	if err != nil {
		return nil, apperr.Wrap(apperr.Fatal, "Catalogue.Scan", "parse stored scope", err)
	}

	fp, err := Fingerprint(scope)
	if err != nil {
		slog.Warn("sources: fingerprint recompute failed", "source_id", id, "error", err)
	}
	if err := c.store.UpdateMonitoredSourceScan(ctx, id, fp); err != nil {
		return nil, err
	}

	r, err := c.runs.Create(ctx, scope.Kind, scope)
	if err != nil {
		return nil, err
	}
	if err := c.runs.StartIndexing(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// ScanAll scans every enabled monitored source, continuing past individual
// failures and returning the runs that did start.
func (c *Catalogue) ScanAll(ctx context.Context) ([]*domain.Run, error) {
	all, err := c.store.ListMonitoredSources(ctx)
	if err != nil {
		return nil, err
	}
	var runs []*domain.Run
	for _, m := range all {
		if !m.Enabled {
			continue
		}
		r, err := c.Scan(ctx, m.ID)
		if err != nil {
			slog.Error("sources: scan_all failed for source", "source_id", m.ID, "error", err)
			continue
		}
		runs = append(runs, r)
	}
	return runs, nil
}
