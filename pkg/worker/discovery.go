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

// Package worker holds the Discovery and Indexing Workers (§4.6, §4.7):
// per-run tasks driven off the persistent queue, generalized from the
// teacher's single in-process DocumentStore.StartIndexing/indexDocument
// pipeline (pkg/context/document_store.go) into the discovery/indexing
// split this system's durable, resumable queue requires.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/extraction"
	"github.com/semind/semind/pkg/ingestsource"
	"github.com/semind/semind/pkg/metadata"
	"github.com/semind/semind/pkg/observability"
)

// DiscoveryWorker drives one Ingestion Source for one run, enqueueing every
// emitted part as a Work Queue Entry (§4.6).
type DiscoveryWorker struct {
	store    *metadata.Store
	registry *extraction.Registry
	metrics  *observability.Metrics
}

// NewDiscoveryWorker builds a DiscoveryWorker. metrics may be nil (metrics
// disabled), matching the nil-safe pattern pkg/api/server.go uses.
func NewDiscoveryWorker(store *metadata.Store, registry *extraction.Registry, metrics *observability.Metrics) *DiscoveryWorker {
	return &DiscoveryWorker{store: store, registry: registry, metrics: metrics}
}

// Run discovers run's scope and enqueues every part it yields, checking the
// run's stop_requested flag through the source's should-stop poll, which
// runs before each file or message (§5 Cancellation). It always clears
// is_discovering on exit, success or not, since the Indexing Worker's "queue
// empty and discovery stopped" check (§4.7) depends on that flag settling.
func (w *DiscoveryWorker) Run(ctx context.Context, run domain.Run, deviceID string) error {
	ctx, span := observability.Tracer("semind/worker").Start(ctx, "discovery.Run")
	defer span.End()

	log := slog.With("component", "discovery", "run_id", run.ID)
	defer func() {
		if err := w.store.SetIsDiscovering(ctx, run.ID, false); err != nil {
			log.Warn("discovery: failed to clear is_discovering", "error", err)
		}
	}()

	scope, err := domain.ParseScope(run.ScopeJSON)
	if err != nil {
		return err
	}
	src, err := ingestsource.New(scope, deviceID, w.registry)
	if err != nil {
		return err
	}

	shouldStop := func() bool {
		stopped, err := w.store.IsStopRequested(ctx, run.ID)
		if err != nil {
			log.Warn("discovery: failed to poll stop_requested", "error", err)
			return false
		}
		return stopped
	}

	partsCh, errCh := src.Parts(ctx, shouldStop)
	for partsCh != nil || errCh != nil {
		select {
		case part, ok := <-partsCh:
			if !ok {
				partsCh = nil
				continue
			}
			if err := w.enqueue(ctx, run, part); err != nil {
				log.Warn("discovery: failed to enqueue part", "path", part.SourcePath, "error", err)
			}
		case perr, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			// Per-part failures (extractor error, malformed message) are
			// logged and skipped; they never fail the run (§4.6).
			log.Warn("discovery: skipped unit", "error", perr)
		}
	}
	log.Info("discovery: exhausted")
	return nil
}

func (w *DiscoveryWorker) enqueue(ctx context.Context, run domain.Run, part domain.DocumentPart) error {
	part.ScopeJSON = run.ScopeJSON
	entry := domain.QueueEntry{
		RunID:     run.ID,
		Part:      part,
		Text:      part.Text,
		ScopeJSON: run.ScopeJSON,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.store.QueueAdd(ctx, entry); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.PartsDiscovered(string(run.Kind), 1)
		if depth, err := w.store.QueueDepth(ctx, run.ID); err == nil {
			w.metrics.SetQueueDepth(run.ID, depth)
		}
	}
	return w.store.IncrementDiscovered(ctx, run.ID, 1)
}
