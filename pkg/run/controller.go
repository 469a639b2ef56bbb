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

// Package run is the Run Controller (§4.8): the single orchestrator that
// creates runs, transitions their state, and spawns the Discovery and
// Indexing Worker tasks. Background tasks replace the teacher's
// "schedule a coroutine" pattern (pkg/context/document_store.go
// StartIndexing's goroutine) with spawned tasks whose handle is tracked
// here and whose cancellation is driven by the run's stop_requested flag
// (§9 Design Notes).
package run

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/chunking"
	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/embedding"
	"github.com/semind/semind/pkg/extraction"
	"github.com/semind/semind/pkg/metadata"
	"github.com/semind/semind/pkg/observability"
	"github.com/semind/semind/pkg/vector"
	"github.com/semind/semind/pkg/worker"
)

// Controller orchestrates Run lifecycle and owns the worker tasks spawned
// for each active run.
type Controller struct {
	store    *metadata.Store
	vectors  vector.Provider
	embedder embedding.Embedder
	registry *extraction.Registry
	chunkCfg chunking.Config
	deviceID string
	metrics  *observability.Metrics

	queuePoll time.Duration
	stopPoll  time.Duration

	mu    sync.Mutex
	tasks map[string]*sync.WaitGroup // run_id -> spawned-task handle
}

// New builds a Controller. deviceID, chunkCfg and the poll intervals come
// from the loaded Config (§6). metrics may be nil (metrics disabled),
// matching the nil-safe pattern pkg/api/server.go uses.
func New(store *metadata.Store, vectors vector.Provider, embedder embedding.Embedder, registry *extraction.Registry, chunkCfg chunking.Config, deviceID string, queuePoll, stopPoll time.Duration, metrics *observability.Metrics) *Controller {
	return &Controller{
		store:     store,
		vectors:   vectors,
		embedder:  embedder,
		registry:  registry,
		chunkCfg:  chunkCfg,
		deviceID:  deviceID,
		metrics:   metrics,
		queuePoll: queuePoll,
		stopPoll:  stopPoll,
		tasks:     make(map[string]*sync.WaitGroup),
	}
}

// Create inserts a running row with zero counters and is_discovering=true
// (§4.8) and immediately spawns its Discovery Worker task.
func (c *Controller) Create(ctx context.Context, kind domain.SourceKind, scope domain.Scope) (*domain.Run, error) {
	if scope.Kind != kind {
		return nil, apperr.New(apperr.Validation, "Controller.Create", "scope kind does not match requested kind")
	}
	if err := scope.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Controller.Create", "invalid scope", err)
	}
	scopeJSON, err := scope.Canonical()
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Controller.Create", "canonicalize scope", err)
	}

	now := time.Now().UTC()
	r := domain.Run{
		ID:            uuid.NewString(),
		Kind:          kind,
		ScopeJSON:     scopeJSON,
		Status:        domain.RunRunning,
		StartedAt:     now,
		UpdatedAt:     now,
		IsDiscovering: true,
	}
	if err := c.store.CreateRun(ctx, r); err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RunStarted(string(kind))
	}
	c.spawnDiscovery(r)
	return &r, nil
}

// StartIndexing sets is_indexing=true and spawns an Indexing Worker task
// that owns the run until terminal (§4.8).
func (c *Controller) StartIndexing(ctx context.Context, runID string) error {
	r, err := c.store.LoadRunByID(ctx, runID)
	if err != nil {
		return err
	}
	if r.Status.Terminal() {
		return apperr.New(apperr.Conflict, "Controller.StartIndexing", "run is terminal")
	}
	if err := c.store.SetIsIndexing(ctx, runID, true); err != nil {
		return err
	}
	c.spawnIndexing(runID)
	return nil
}

// RequestStop sets stop_requested=true. Idempotent; a no-op on completed
// runs (§4.8).
func (c *Controller) RequestStop(ctx context.Context, runID string) error {
	r, err := c.store.LoadRunByID(ctx, runID)
	if err != nil {
		return err
	}
	if r.Status.Terminal() {
		return nil
	}
	return c.store.RequestStop(ctx, runID)
}

// StopLatest requests a stop on the most recent active run of kind.
func (c *Controller) StopLatest(ctx context.Context, kind domain.SourceKind) (*domain.Run, error) {
	r, err := c.store.LoadLatestByKind(ctx, kind)
	if err != nil {
		return nil, err
	}
	if err := c.RequestStop(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// ResumeLatest resumes the most recent interrupted run of kind: a fresh
// Discovery + Indexing Worker pair against the same run-id. Already-processed
// parts skip themselves via the §4.7 extractor/checksum check.
func (c *Controller) ResumeLatest(ctx context.Context, kind domain.SourceKind) (*domain.Run, error) {
	r, err := c.store.LoadLatestInterruptedByKind(ctx, kind)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.New(apperr.NotFound, "Controller.ResumeLatest", "no interrupted run for kind")
	}
	if err := c.store.ClearStopRequested(ctx, r.ID); err != nil {
		return nil, err
	}
	if err := c.store.UpdateStatus(ctx, r.ID, domain.RunRunning); err != nil {
		return nil, err
	}
	if err := c.store.SetIsDiscovering(ctx, r.ID, true); err != nil {
		return nil, err
	}
	r.Status = domain.RunRunning
	r.StopRequested = false
	r.IsDiscovering = true
	if c.metrics != nil {
		c.metrics.RunStarted(string(kind))
	}
	c.spawnDiscovery(*r)
	if err := c.StartIndexing(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// MarkCompleted / MarkFailed / MarkInterrupted are exposed directly because
// the Discovery Worker can live outside the Indexing Worker's process in
// some deployments (§4.8).
func (c *Controller) MarkCompleted(ctx context.Context, runID string) error {
	return c.markTerminal(ctx, runID, domain.RunCompleted)
}

func (c *Controller) MarkFailed(ctx context.Context, runID string) error {
	return c.markTerminal(ctx, runID, domain.RunFailed)
}

func (c *Controller) MarkInterrupted(ctx context.Context, runID string) error {
	return c.markTerminal(ctx, runID, domain.RunInterrupted)
}

func (c *Controller) markTerminal(ctx context.Context, runID string, status domain.RunStatus) error {
	r, err := c.store.LoadRunByID(ctx, runID)
	if err != nil {
		return err
	}
	if err := c.store.UpdateStatus(ctx, runID, status); err != nil {
		return err
	}
	if status == domain.RunFailed {
		// Mirrors IndexingWorker.markTerminal: a failed run has no resume
		// path, so its queue would otherwise never drain.
		if err := c.store.QueueClear(ctx, runID); err != nil {
			return err
		}
	}
	if c.metrics != nil {
		c.metrics.RunFinished(string(r.Kind), string(status))
	}
	return nil
}

// DiscoveringStopped lets an out-of-process Discovery Worker signal
// completion without itself knowing about is_indexing.
func (c *Controller) DiscoveringStopped(ctx context.Context, runID string) error {
	return c.store.SetIsDiscovering(ctx, runID, false)
}

// Cleanup runs the Run Controller's stale-part sweep for runID directly
// (§4.8); the Indexing Worker also calls this internally once its own queue
// drains, so exposing it here is for operator-triggered or out-of-process
// cleanup paths.
func (c *Controller) Cleanup(ctx context.Context, runID string) error {
	r, err := c.store.LoadRunByID(ctx, runID)
	if err != nil {
		return err
	}
	return worker.Cleanup(ctx, c.store, c.vectors, r, c.metrics)
}

func (c *Controller) spawnDiscovery(r domain.Run) {
	var wg sync.WaitGroup
	wg.Add(1)
	c.mu.Lock()
	c.tasks[r.ID+":discovery"] = &wg
	c.mu.Unlock()
	go func() {
		defer wg.Done()
		dw := worker.NewDiscoveryWorker(c.store, c.registry, c.metrics)
		if err := dw.Run(context.Background(), r, c.deviceID); err != nil {
			slog.Error("run: discovery worker failed", "run_id", r.ID, "error", err)
		}
	}()
}

func (c *Controller) spawnIndexing(runID string) {
	var wg sync.WaitGroup
	wg.Add(1)
	c.mu.Lock()
	c.tasks[runID+":indexing"] = &wg
	c.mu.Unlock()
	go func() {
		defer wg.Done()
		iw := worker.NewIndexingWorker(c.store, c.vectors, c.embedder, c.chunkCfg, c.queuePoll, c.stopPoll, c.metrics)
		if err := iw.Run(context.Background(), runID); err != nil {
			slog.Error("run: indexing worker failed", "run_id", runID, "error", err)
		}
	}()
}

// Wait blocks until every spawned task for runID has returned. Used by tests
// and by the CLI's synchronous "scan and wait" mode.
func (c *Controller) Wait(runID string) {
	c.mu.Lock()
	wgs := []*sync.WaitGroup{c.tasks[runID+":discovery"], c.tasks[runID+":indexing"]}
	c.mu.Unlock()
	for _, wg := range wgs {
		if wg != nil {
			wg.Wait()
		}
	}
}
