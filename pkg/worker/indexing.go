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

package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/chunking"
	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/embedding"
	"github.com/semind/semind/pkg/identity"
	"github.com/semind/semind/pkg/metadata"
	"github.com/semind/semind/pkg/observability"
	"github.com/semind/semind/pkg/vector"
)

// vectorAddRetries bounds the retry policy for transient Vector Store
// Gateway failures (§4.7): "with bounded retry (e.g., 3)".
const vectorAddRetries = 3

// releaseEvery is how many processed parts elapse between embedder memory
// releases (§5: "GPU memory held by the embedder must be released
// periodically"). A round number, not tuned against any measured workload.
const releaseEvery = 200

// memoryReleaser is implemented by embedders that hold onto GPU/accelerator
// memory between calls (a local llama.cpp-style embedder, for instance).
// OllamaEmbedder talks to an external process over HTTP and holds none, so
// it does not implement this; the hook exists for embedders that do.
type memoryReleaser interface {
	ReleaseMemory() error
}

// IndexingWorker drains the queue for one run: chunk, embed, store, mark
// processed (§4.7). Ported from the teacher's indexDocument pipeline shape
// (pkg/context/document_store.go), split out of discovery and generalized
// to the skip/reprocess/fresh decision this system's dedup model requires.
type IndexingWorker struct {
	store       *metadata.Store
	vectorStore vector.Provider
	embedder    embedding.Embedder
	chunkCfg    chunking.Config
	queuePoll   time.Duration
	stopPoll    time.Duration
	metrics     *observability.Metrics
	processed   int
}

// NewIndexingWorker builds an IndexingWorker. metrics may be nil (metrics
// disabled), matching the nil-safe pattern pkg/api/server.go uses.
func NewIndexingWorker(store *metadata.Store, vectorStore vector.Provider, embedder embedding.Embedder, chunkCfg chunking.Config, queuePoll, stopPoll time.Duration, metrics *observability.Metrics) *IndexingWorker {
	return &IndexingWorker{
		store:       store,
		vectorStore: vectorStore,
		embedder:    embedder,
		chunkCfg:    chunkCfg,
		queuePoll:   queuePoll,
		stopPoll:    stopPoll,
		metrics:     metrics,
	}
}

// Run drains runID's queue until discovery is done and the queue is empty,
// following the loop in §4.7 literally: stop check, dequeue, process,
// remove, repeat.
func (w *IndexingWorker) Run(ctx context.Context, runID string) error {
	ctx, span := observability.Tracer("semind/worker").Start(ctx, "indexing.Run")
	defer span.End()

	log := slog.With("component", "indexing", "run_id", runID)

	run, err := w.store.LoadRunByID(ctx, runID)
	if err != nil {
		return err
	}
	kind := run.Kind

	for {
		stopped, err := w.store.IsStopRequested(ctx, runID)
		if err != nil {
			return err
		}
		if stopped {
			log.Info("indexing: stop requested, interrupting")
			return w.markTerminal(ctx, runID, kind, domain.RunInterrupted)
		}

		entry, err := w.store.QueueNext(ctx, runID)
		if err != nil {
			return err
		}
		if entry == nil {
			run, err := w.store.LoadRunByID(ctx, runID)
			if err != nil {
				return err
			}
			if !run.IsDiscovering {
				log.Info("indexing: queue drained, discovery finished")
				return w.finish(ctx, run)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.queuePoll):
			}
			continue
		}

		if _, err := w.process(ctx, runID, *entry); err != nil {
			log.Error("indexing: fatal processing error, failing run", "document_part_id", entry.Part.DocumentPartID, "error", err)
			_ = w.markTerminal(ctx, runID, kind, domain.RunFailed)
			return err
		}
		if err := w.store.QueueRemove(ctx, runID, entry.Part.DocumentPartID); err != nil {
			return err
		}
		if w.metrics != nil {
			if depth, derr := w.store.QueueDepth(ctx, runID); derr == nil {
				w.metrics.SetQueueDepth(runID, depth)
			}
		}

		w.processed++
		if w.processed%releaseEvery == 0 {
			if r, ok := w.embedder.(memoryReleaser); ok {
				if err := r.ReleaseMemory(); err != nil {
					log.Warn("indexing: embedder memory release failed", "error", err)
				}
			}
		}
	}
}

// markTerminal transitions runID to status and reports it through the
// run-finished counter/gauge pair, covering every non-completed terminal
// exit the §4.7 loop can take (finish covers the completed exit).
//
// A failed run clears its own queue: RunFailed is terminal (§4.8) and there
// is no resume path for it (ResumeLatest only looks at interrupted runs), so
// its remaining entries would otherwise sit in document_parts_queue forever.
// An interrupted run keeps its queue exactly as-is — resume_latest depends
// on those entries still being there.
func (w *IndexingWorker) markTerminal(ctx context.Context, runID string, kind domain.SourceKind, status domain.RunStatus) error {
	if err := w.store.UpdateStatus(ctx, runID, status); err != nil {
		return err
	}
	if status == domain.RunFailed {
		if err := w.store.QueueClear(ctx, runID); err != nil {
			return err
		}
	}
	if w.metrics != nil {
		w.metrics.RunFinished(string(kind), string(status))
	}
	return nil
}

// finish runs cleanup and marks the run completed. §4.7's pseudocode calls
// cleanup(run_id) inline once discovery has finished and the queue is
// drained; Cleanup itself (below) is the Run Controller operation (§4.8),
// exported so both this worker and pkg/run can invoke the same logic.
func (w *IndexingWorker) finish(ctx context.Context, run *domain.Run) error {
	if err := Cleanup(ctx, w.store, w.vectorStore, run, w.metrics); err != nil {
		return err
	}
	if err := w.store.UpdateStatus(ctx, run.ID, domain.RunCompleted); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.RunFinished(string(run.Kind), string(domain.RunCompleted))
	}
	return nil
}

// Cleanup implements the Run Controller's cleanup(run_id) (§4.8): S = parts
// matching run's scope_json; among those, the ones not owned by run (i.e.
// last_indexed_run_id != run.ID) are stale and are removed — their chunks
// from the Vector Store as one batch, then their part rows. Per the recorded
// Open Question (b) decision, this stays scope-scoped only: it never
// consults the monitored-sources table.
func Cleanup(ctx context.Context, store *metadata.Store, vectorStore vector.Provider, run *domain.Run, metrics *observability.Metrics) error {
	stale, err := store.GetStaleParts(ctx, run.ID, run.ScopeJSON)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	var allChunkIDs []string
	var staleIDs []string
	for _, s := range stale {
		allChunkIDs = append(allChunkIDs, s.ChunkIDs...)
		staleIDs = append(staleIDs, s.DocumentPartID)
	}
	if len(allChunkIDs) > 0 {
		if err := vectorStore.Remove(ctx, allChunkIDs); err != nil {
			return apperr.Wrap(apperr.Fatal, "Cleanup", "remove stale chunks", err)
		}
		if metrics != nil {
			metrics.CleanupChunksRemoved(len(allChunkIDs))
		}
	}
	return store.DeleteDocumentParts(ctx, staleIDs)
}

// process implements §4.7's skip/reprocess/fresh decision. The returned bool
// reports whether the entry was skipped (already processed with identical
// provenance); IngestDocumentPart passes it on so POST /ingest/document_part
// can report {accepted, skipped}, while the queue loop above ignores it.
func (w *IndexingWorker) process(ctx context.Context, runID string, entry domain.QueueEntry) (bool, error) {
	ctx, span := observability.Tracer("semind/worker").Start(ctx, "indexing.process")
	defer span.End()

	incoming := entry.Part
	existing, err := w.store.GetDocumentPart(ctx, incoming.DocumentPartID)
	if err != nil && apperr.KindOf(err) != apperr.NotFound {
		return false, err
	}

	switch {
	case existing != nil &&
		existing.ExtractorName == incoming.ExtractorName &&
		existing.ExtractorVersion == incoming.ExtractorVersion &&
		existing.Checksum == incoming.Checksum:
		// Skip: already processed with identical provenance. Still marks
		// processed against this run per the recorded Open Question (a)
		// decision, so counters and last-indexed timestamps advance.
		if err := w.store.MarkDocumentPartProcessed(ctx, runID, existing.DocumentPartID, existing.ChunkIDs, w.now()); err != nil {
			return false, err
		}
		if err := w.store.IncrementIndexed(ctx, runID, 1); err != nil {
			return true, err
		}
		w.reportIndexed(existing.Kind)
		return true, nil

	case existing != nil:
		// Reprocess: provenance changed. Remove the previous chunk set
		// before installing the new one (I3: chunk-exclusive).
		if len(existing.ChunkIDs) > 0 {
			if err := withRetry(ctx, vectorAddRetries, "vector.Remove", func() error {
				return w.vectorStore.Remove(ctx, existing.ChunkIDs)
			}); err != nil {
				return false, apperr.Wrap(apperr.Fatal, "IndexingWorker.process", "remove stale chunk set", err)
			}
		}
		incoming.ScopeJSON = entry.ScopeJSON
		if err := w.store.UpsertDocumentPart(ctx, incoming); err != nil {
			return false, err
		}
		return false, w.freshIngest(ctx, runID, incoming, entry.Text)

	default:
		// Fresh: no prior row.
		incoming.ScopeJSON = entry.ScopeJSON
		if err := w.store.UpsertDocumentPart(ctx, incoming); err != nil {
			return false, err
		}
		return false, w.freshIngest(ctx, runID, incoming, entry.Text)
	}
}

// IngestDocumentPart runs the §4.7 skip/reprocess/fresh decision directly
// against a single part, outside the durable queue. It backs
// POST /ingest/document_part (§6), which ingests one part synchronously
// and reports whether it was accepted and whether it was skipped.
func IngestDocumentPart(ctx context.Context, store *metadata.Store, vectorStore vector.Provider, embedder embedding.Embedder, chunkCfg chunking.Config, runID string, part domain.DocumentPart, text string) (accepted, skipped bool, err error) {
	w := NewIndexingWorker(store, vectorStore, embedder, chunkCfg, 0, 0, nil)
	entry := domain.QueueEntry{RunID: runID, Part: part, Text: text, ScopeJSON: part.ScopeJSON}
	skipped, err = w.process(ctx, runID, entry)
	if err != nil {
		return false, false, err
	}
	return true, skipped, nil
}

// freshIngest chunks part.Text, embeds and stores every chunk, then marks
// the part processed (§4.7 fresh-ingest pseudocode).
func (w *IndexingWorker) freshIngest(ctx context.Context, runID string, part domain.DocumentPart, text string) error {
	texts, err := chunking.Chunk(text, w.chunkCfg)
	if err != nil {
		return apperr.Wrap(apperr.Fatal, "IndexingWorker.freshIngest", "chunk", err)
	}

	chunkIDs := make([]string, 0, len(texts))
	for i, t := range texts {
		chunkID := identity.ChunkID(part.DocumentPartID, part.Checksum, i)
		vec, err := w.embedder.EmbedDocument(ctx, t)
		if err != nil {
			return apperr.Wrap(apperr.Fatal, "IndexingWorker.freshIngest", "embed chunk", err)
		}
		chunk := domain.Chunk{
			ChunkID:        chunkID,
			DocumentPartID: part.DocumentPartID,
			SourcePath:     part.SourcePath,
			DeviceID:       part.DeviceID,
			Kind:           part.Kind,
			UnitLocator:    part.UnitLocator,
			Index:          i,
			Metadata:       part.Metadata,
			Text:           t,
		}
		if err := withRetry(ctx, vectorAddRetries, "vector.Add", func() error {
			return w.vectorStore.Add(ctx, chunk, vec)
		}); err != nil {
			// Retry exhaustion raises and marks the run failed (§4.7).
			return apperr.Wrap(apperr.Fatal, "IndexingWorker.freshIngest", "add chunk after retries", err)
		}
		chunkIDs = append(chunkIDs, chunkID)
	}

	if err := w.store.MarkDocumentPartProcessed(ctx, runID, part.DocumentPartID, chunkIDs, w.now()); err != nil {
		return err
	}
	if err := w.store.IncrementIndexed(ctx, runID, 1); err != nil {
		return err
	}
	w.reportIndexed(part.Kind)
	return nil
}

func (w *IndexingWorker) reportIndexed(kind domain.SourceKind) {
	if w.metrics != nil {
		w.metrics.PartsIndexed(string(kind), 1)
	}
}

func (w *IndexingWorker) now() time.Time { return time.Now().UTC() }
