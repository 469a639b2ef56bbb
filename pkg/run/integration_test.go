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

// End-to-end scenarios from spec.md §8: idempotent scans, extractor-version
// upgrades, deletion cleanup, cooperative stop, email ignore patterns, and
// resume after interruption. Each test wires the real Metadata Store
// (sqlite in-memory), the real chromem Vector Store Gateway, the real
// Extractor Registry and Chunker, and only fakes the embedder (so tests
// never reach out to a real model host), the same seam server_test.go uses.
package run_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/semind/semind/pkg/chunking"
	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/extraction"
	"github.com/semind/semind/pkg/identity"
	"github.com/semind/semind/pkg/ingestsource"
	"github.com/semind/semind/pkg/metadata"
	"github.com/semind/semind/pkg/run"
	"github.com/semind/semind/pkg/vector"
	"github.com/semind/semind/pkg/worker"
)

// fakeEmbedder returns a deterministic non-zero vector for non-empty text so
// tests never reach out to a real embedding host.
type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	if text != "" {
		v[0] = 1
	}
	return v, nil
}
func (f *fakeEmbedder) Dimension() int { return f.dim }
func (f *fakeEmbedder) Model() string  { return "fake" }
func (f *fakeEmbedder) Close() error   { return nil }

// testHarness wires one Controller against a fresh in-memory store and
// vector collection, the way cmd/semind/wiring.go wires the real one.
type testHarness struct {
	t          *testing.T
	store      *metadata.Store
	vectors    *vector.ChromemProvider
	registry   *extraction.Registry
	chunkCfg   chunking.Config
	controller *run.Controller
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	store, err := metadata.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vectors, err := vector.NewChromemProvider(vector.ChromemConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { vectors.Close() })

	registry := extraction.NewDefaultRegistry()
	chunkCfg := chunking.DefaultConfig()
	embedder := &fakeEmbedder{dim: 3}

	c := run.New(store, vectors, embedder, registry, chunkCfg, "device-1", 2*time.Millisecond, 2*time.Millisecond, nil)
	return &testHarness{t: t, store: store, vectors: vectors, registry: registry, chunkCfg: chunkCfg, controller: c}
}

// scanDir runs a full create+start_indexing+wait cycle over dir and returns
// the terminal run.
func (h *testHarness) scanDir(ctx context.Context, dir string) *domain.Run {
	h.t.Helper()
	scope := domain.NewFilesystemScope([]domain.DirEntry{{Path: dir, Recursive: true}})
	r, err := h.controller.Create(ctx, domain.SourceFilesystem, scope)
	require.NoError(h.t, err)
	require.NoError(h.t, h.controller.StartIndexing(ctx, r.ID))
	h.controller.Wait(r.ID)
	got, err := h.store.LoadRunByID(ctx, r.ID)
	require.NoError(h.t, err)
	return got
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// S1 — idempotent filesystem scan: re-scanning an unchanged source changes
// no chunk ids and leaves vector_store.count() unchanged (§8 property 3).
func TestS1_IdempotentFilesystemScan(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello")
	writeFile(t, dir, "b.txt", "world")

	run1 := h.scanDir(ctx, dir)
	require.Equal(t, domain.RunCompleted, run1.Status)
	require.Equal(t, 2, run1.DiscoveredCount)
	require.Equal(t, 2, run1.IndexedCount)

	count, err := h.vectors.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	partA, err := h.store.GetDocumentPart(ctx, documentPartIDFor(t, dir, "a.txt"))
	require.NoError(t, err)
	chunksBefore := append([]string(nil), partA.ChunkIDs...)

	run2 := h.scanDir(ctx, dir)
	require.Equal(t, domain.RunCompleted, run2.Status)

	count2, err := h.vectors.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count2, "re-scan of unchanged source must not change chunk count")

	partA2, err := h.store.GetDocumentPart(ctx, documentPartIDFor(t, dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, chunksBefore, partA2.ChunkIDs, "re-scan of unchanged content must not change chunk ids")
	require.Equal(t, run2.ID, partA2.LastIndexedRunID, "skip still advances last_indexed_run_id to the scanning run")
}

func documentPartIDFor(t *testing.T, dir, name string) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join(dir, name))
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(abs)
	require.NoError(t, err)
	sourceInstanceID := identity.SourceInstanceID(string(domain.SourceFilesystem), "device-1", resolved)
	return identity.DocumentPartID(sourceInstanceID, "filesystem:"+resolved)
}

// versionedExtractor is a test-only extractor whose Version() is mutable,
// used to simulate an extractor upgrade (§8 property 4 / scenario S2)
// without needing a real multi-version extractor in the default registry.
type versionedExtractor struct {
	version string
}

func (e *versionedExtractor) Name() string    { return "python" }
func (e *versionedExtractor) Version() string { return e.version }
func (e *versionedExtractor) Priority() int   { return 100 }
func (e *versionedExtractor) CanExtract(path string) bool {
	return strings.HasSuffix(path, ".py")
}
func (e *versionedExtractor) CanExtractBytes(data []byte, contentTypeHint string) bool { return false }
func (e *versionedExtractor) Extract(ctx context.Context, path string) (extraction.ExtractionResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return extraction.ExtractionResult{}, err
	}
	var r extraction.ExtractionResult
	r.Append(identity.Canonicalize(string(raw)), "text/x-python", nil, "", e.Name(), e.Version())
	return r, nil
}
func (e *versionedExtractor) ExtractBytes(ctx context.Context, data []byte, name, contentTypeHint string) (extraction.ExtractionResult, error) {
	var r extraction.ExtractionResult
	r.Append(identity.Canonicalize(string(data)), "text/x-python", nil, "", e.Name(), e.Version())
	return r, nil
}

// S2 — extractor-version upgrade: re-scanning after bumping an extractor's
// version replaces that part's chunk ids and leaves others untouched (§8
// property 4).
func TestS2_ExtractorVersionUpgrade(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	extr := &versionedExtractor{version: "0.1"}
	require.NoError(t, h.registry.Register(extr))

	dir := t.TempDir()
	writeFile(t, dir, "script.py", "print('hello world')\n")

	run1 := h.scanDir(ctx, dir)
	require.Equal(t, domain.RunCompleted, run1.Status)

	partID := documentPartIDFor(t, dir, "script.py")
	part1, err := h.store.GetDocumentPart(ctx, partID)
	require.NoError(t, err)
	oldChunkIDs := append([]string(nil), part1.ChunkIDs...)
	require.NotEmpty(t, oldChunkIDs)
	for _, id := range oldChunkIDs {
		ok, err := h.vectors.Exists(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
	}

	extr.version = "999.0"
	run2 := h.scanDir(ctx, dir)
	require.Equal(t, domain.RunCompleted, run2.Status)

	part2, err := h.store.GetDocumentPart(ctx, partID)
	require.NoError(t, err)
	require.NotEqual(t, oldChunkIDs, part2.ChunkIDs, "extractor version bump must replace the chunk id set")
	require.Equal(t, "999.0", part2.ExtractorVersion)

	for _, id := range oldChunkIDs {
		ok, err := h.vectors.Exists(ctx, id)
		require.NoError(t, err)
		require.False(t, ok, "old chunk ids must no longer be present in the vector store")
	}
	for _, id := range part2.ChunkIDs {
		ok, err := h.vectors.Exists(ctx, id)
		require.NoError(t, err)
		require.True(t, ok, "new chunk ids must exist")
	}
}

// S3 — deletion cleanup: deleting a source file and re-scanning, then
// invoking cleanup, removes exactly that file's chunks and its part row
// (§8 property 5).
func TestS3_DeletionCleanup(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello")
	writeFile(t, dir, "b.txt", "world")
	writeFile(t, dir, "c.txt", "gone soon")

	run1 := h.scanDir(ctx, dir)
	require.Equal(t, 3, run1.IndexedCount)
	countBefore, err := h.vectors.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, countBefore)

	cPartID := documentPartIDFor(t, dir, "c.txt")
	cPart, err := h.store.GetDocumentPart(ctx, cPartID)
	require.NoError(t, err)
	require.Len(t, cPart.ChunkIDs, 1)

	require.NoError(t, os.Remove(filepath.Join(dir, "c.txt")))

	run2 := h.scanDir(ctx, dir)
	require.Equal(t, domain.RunCompleted, run2.Status)

	countAfter, err := h.vectors.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, countBefore-len(cPart.ChunkIDs), countAfter, "cleanup must remove exactly the deleted file's chunks")

	_, err = h.store.GetDocumentPart(ctx, cPartID)
	require.Error(t, err, "the deleted file's part row must be gone")

	for _, id := range cPart.ChunkIDs {
		ok, err := h.vectors.Exists(ctx, id)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

// S4 — cooperative stop: a stop request against a run with queued work is
// honored before the queue drains, leaving indexed_count < discovered and
// the run interrupted (§8 property 7, scenario S4).
func TestS4_CooperativeStop(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	const n = 5
	runID := "run-s4"
	r := domain.Run{
		ID:            runID,
		Kind:          domain.SourceFilesystem,
		ScopeJSON:     domain.NewFilesystemScope([]domain.DirEntry{{Path: "/tmp/unused"}}).MustCanonical(),
		Status:        domain.RunRunning,
		StartedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
		IsDiscovering: true,
	}
	require.NoError(t, h.store.CreateRun(ctx, r))

	for i := 0; i < n; i++ {
		part := domain.DocumentPart{
			DocumentPartID: fmt.Sprintf("part-%d", i),
			Checksum:       identity.Checksum(fmt.Sprintf("text %d", i)),
			Kind:           domain.SourceFilesystem,
			SourcePath:     fmt.Sprintf("/tmp/unused/f%d.txt", i),
			UnitLocator:    fmt.Sprintf("filesystem:/tmp/unused/f%d.txt", i),
		}
		entry := domain.QueueEntry{RunID: runID, Part: part, Text: fmt.Sprintf("text %d", i), ScopeJSON: r.ScopeJSON}
		require.NoError(t, h.store.QueueAdd(ctx, entry))
	}
	require.NoError(t, h.store.IncrementDiscovered(ctx, runID, n))
	require.NoError(t, h.store.SetIsDiscovering(ctx, runID, false))

	require.NoError(t, h.store.RequestStop(ctx, runID))

	iw := worker.NewIndexingWorker(h.store, h.vectors, &fakeEmbedder{dim: 3}, h.chunkCfg, time.Millisecond, time.Millisecond, nil)
	require.NoError(t, iw.Run(ctx, runID))

	got, err := h.store.LoadRunByID(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, domain.RunInterrupted, got.Status)
	require.Less(t, got.IndexedCount, n)

	remaining, err := h.store.QueueList(ctx, runID)
	require.NoError(t, err)
	require.Len(t, remaining, n, "an interrupted run must not drain its own queue")
}

// buildMbox writes an mbox file with n synthetic messages, numFromGoogle of
// which declare a From header at *@google.com (§8 scenario S5).
func buildMbox(t *testing.T, n, numFromGoogle int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.mbox")
	var b strings.Builder
	for i := 0; i < n; i++ {
		from := fmt.Sprintf("sender%d@example.com", i)
		if i < numFromGoogle {
			from = fmt.Sprintf("sender%d@google.com", i)
		}
		fmt.Fprintf(&b, "From %s Mon Jan  1 00:00:00 2024\n", from)
		fmt.Fprintf(&b, "From: %s\n", from)
		fmt.Fprintf(&b, "To: me@example.com\n")
		fmt.Fprintf(&b, "Subject: message %d\n", i)
		fmt.Fprintf(&b, "Date: Mon, 1 Jan 2024 00:00:0%d +0000\n", i%10)
		fmt.Fprintf(&b, "Message-Id: <msg-%d@example.com>\n", i)
		fmt.Fprintf(&b, "Content-Type: text/plain\n\n")
		fmt.Fprintf(&b, "body of message %d\n\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// S5 — email ignore pattern: messages matching an ignore pattern on a
// declared header field are excluded from the produced documents.
func TestS5_EmailIgnorePattern(t *testing.T) {
	ctx := context.Background()
	mboxPath := buildMbox(t, 20, 7)
	registry := extraction.NewDefaultRegistry()

	withPattern := domain.NewEmailScope(mboxPath, []domain.IgnorePattern{{Field: "from", Value: "*@google.com*"}})
	src, err := ingestsource.New(withPattern, "device-1", registry)
	require.NoError(t, err)
	partsCh, errCh := src.Parts(ctx, func() bool { return false })
	got := drainParts(t, partsCh, errCh)
	require.Len(t, got, 13, "7 of 20 messages match the ignore pattern")

	withoutPattern := domain.NewEmailScope(mboxPath, nil)
	src2, err := ingestsource.New(withoutPattern, "device-1", registry)
	require.NoError(t, err)
	partsCh2, errCh2 := src2.Parts(ctx, func() bool { return false })
	got2 := drainParts(t, partsCh2, errCh2)
	require.Len(t, got2, 20, "control scan without the pattern yields every message")
}

func drainParts(t *testing.T, partsCh <-chan domain.DocumentPart, errCh <-chan error) []domain.DocumentPart {
	t.Helper()
	var out []domain.DocumentPart
	for partsCh != nil || errCh != nil {
		select {
		case p, ok := <-partsCh:
			if !ok {
				partsCh = nil
				continue
			}
			out = append(out, p)
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			t.Logf("ingest error (non-fatal): %v", e)
		}
	}
	return out
}

// S6 — resume after interruption: resuming an interrupted run indexes the
// remaining discovered parts with no duplicate chunk ids, and the final
// indexed_count matches what a single uninterrupted scan would have
// produced (§8 scenario S6).
func TestS6_ResumeAfterInterruption(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		writeFile(t, dir, fmt.Sprintf("f%d.txt", i), fmt.Sprintf("content number %d", i))
	}
	scope := domain.NewFilesystemScope([]domain.DirEntry{{Path: dir, Recursive: true}})

	r, err := h.controller.Create(ctx, domain.SourceFilesystem, scope)
	require.NoError(t, err)
	// Interrupt before indexing starts: the Indexing Worker's very first
	// loop iteration observes stop_requested and interrupts immediately.
	require.NoError(t, h.controller.RequestStop(ctx, r.ID))
	require.NoError(t, h.controller.StartIndexing(ctx, r.ID))
	h.controller.Wait(r.ID)

	interrupted, err := h.store.LoadRunByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RunInterrupted, interrupted.Status)
	require.Less(t, interrupted.IndexedCount, 4)

	resumed, err := h.controller.ResumeLatest(ctx, domain.SourceFilesystem)
	require.NoError(t, err)
	require.Equal(t, r.ID, resumed.ID, "resume must reuse the same run id")
	h.controller.Wait(resumed.ID)

	final, err := h.store.LoadRunByID(ctx, resumed.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RunCompleted, final.Status)
	require.Equal(t, 4, final.IndexedCount, "resume must finish indexing every discovered part")

	count, err := h.vectors.Count(ctx)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		part, err := h.store.GetDocumentPart(ctx, documentPartIDFor(t, dir, fmt.Sprintf("f%d.txt", i)))
		require.NoError(t, err)
		for _, id := range part.ChunkIDs {
			require.False(t, seen[id], "chunk id must not be duplicated across parts")
			seen[id] = true
		}
	}
	require.Equal(t, len(seen), count, "vector store must hold exactly the union of every part's chunk ids")
}
