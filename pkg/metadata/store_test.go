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

package metadata_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/metadata"
)

func openTestStore(t *testing.T) *metadata.Store {
	t.Helper()
	store, err := metadata.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestRun(scopeJSON string) domain.Run {
	now := time.Now().UTC()
	return domain.Run{
		ID:            "run-1",
		Kind:          domain.SourceFilesystem,
		ScopeJSON:     scopeJSON,
		Status:        domain.RunRunning,
		StartedAt:     now,
		UpdatedAt:     now,
		IsDiscovering: true,
	}
}

// TestRequestStopAndClear exercises the §4.8 resume bug fix directly: a run
// that had a stop requested must present stop_requested=false once cleared,
// so a resumed run's workers don't immediately re-interrupt.
func TestRequestStopAndClear(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	scope := domain.NewFilesystemScope([]domain.DirEntry{{Path: "/tmp/a"}})
	r := newTestRun(scope.MustCanonical())
	require.NoError(t, store.CreateRun(ctx, r))

	require.NoError(t, store.RequestStop(ctx, r.ID))
	stopped, err := store.IsStopRequested(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, stopped)

	require.NoError(t, store.ClearStopRequested(ctx, r.ID))
	stopped, err = store.IsStopRequested(ctx, r.ID)
	require.NoError(t, err)
	require.False(t, stopped)
}

// TestMonitoredSourceUniqueness covers §3's Monitored Source uniqueness
// constraint and the §8 boundary case: registering an already-registered
// scope is a Conflict.
func TestMonitoredSourceUniqueness(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	scope := domain.NewFilesystemScope([]domain.DirEntry{{Path: "/tmp/a"}})
	scopeJSON := scope.MustCanonical()

	m := domain.MonitoredSource{
		ID:        "source-1",
		Kind:      scope.Kind,
		Locator:   scope.Locator(),
		ScopeJSON: scopeJSON,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateMonitoredSource(ctx, m))

	dup := m
	dup.ID = "source-2"
	err := store.CreateMonitoredSource(ctx, dup)
	require.Error(t, err)
	require.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

// TestUpsertDocumentPartPreservesChunkIDs asserts §4.2's upsert contract: a
// conflicting upsert with no chunk ids must not clobber a previously stored
// chunk id set (the fresh-ingest pre-chunk upsert happens before chunks
// exist, and must not erase chunks recorded by an earlier pass).
func TestUpsertDocumentPartPreservesChunkIDs(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	part := domain.DocumentPart{
		DocumentPartID: "part-1",
		Checksum:       "checksum-1",
		Kind:           domain.SourceFilesystem,
		SourcePath:     "/tmp/a/f.txt",
		UnitLocator:    "filesystem:/tmp/a/f.txt",
		ScopeJSON:      "{}",
	}
	require.NoError(t, store.UpsertDocumentPart(ctx, part))
	require.NoError(t, store.MarkDocumentPartProcessed(ctx, "run-1", part.DocumentPartID, []string{"chunk-a", "chunk-b"}, time.Now().UTC()))

	got, err := store.GetDocumentPart(ctx, part.DocumentPartID)
	require.NoError(t, err)
	require.Equal(t, []string{"chunk-a", "chunk-b"}, got.ChunkIDs)

	// Re-upsert with the same payload and no chunk ids, as a reprocess pass
	// does before chunking: chunk ids and last-indexed fields must survive.
	require.NoError(t, store.UpsertDocumentPart(ctx, part))
	got2, err := store.GetDocumentPart(ctx, part.DocumentPartID)
	require.NoError(t, err)
	require.Equal(t, []string{"chunk-a", "chunk-b"}, got2.ChunkIDs)
	require.Equal(t, "run-1", got2.LastIndexedRunID)
}

// TestGetStaleParts covers I5: a part is stale for run R if its scope_json
// equals R's scope_json but its last_indexed_run_id != R.id.
func TestGetStaleParts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	scope := domain.NewFilesystemScope([]domain.DirEntry{{Path: "/tmp/a"}}).MustCanonical()
	otherScope := domain.NewFilesystemScope([]domain.DirEntry{{Path: "/tmp/b"}}).MustCanonical()

	owned := domain.DocumentPart{DocumentPartID: "owned", SourcePath: "/tmp/a/x", UnitLocator: "u1", ScopeJSON: scope}
	stale := domain.DocumentPart{DocumentPartID: "stale", SourcePath: "/tmp/a/y", UnitLocator: "u2", ScopeJSON: scope}
	unrelated := domain.DocumentPart{DocumentPartID: "unrelated", SourcePath: "/tmp/b/z", UnitLocator: "u3", ScopeJSON: otherScope}

	for _, p := range []domain.DocumentPart{owned, stale, unrelated} {
		require.NoError(t, store.UpsertDocumentPart(ctx, p))
	}
	require.NoError(t, store.MarkDocumentPartProcessed(ctx, "run-current", "owned", []string{"c1"}, time.Now().UTC()))
	require.NoError(t, store.MarkDocumentPartProcessed(ctx, "run-old", "stale", []string{"c2"}, time.Now().UTC()))
	require.NoError(t, store.MarkDocumentPartProcessed(ctx, "run-old", "unrelated", []string{"c3"}, time.Now().UTC()))

	got, err := store.GetStaleParts(ctx, "run-current", scope)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "stale", got[0].DocumentPartID)
	require.Equal(t, []string{"c2"}, got[0].ChunkIDs)
}
