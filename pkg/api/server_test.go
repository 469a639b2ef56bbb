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

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/semind/semind/pkg/api"
	"github.com/semind/semind/pkg/chunking"
	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/extraction"
	"github.com/semind/semind/pkg/metadata"
	"github.com/semind/semind/pkg/run"
	"github.com/semind/semind/pkg/sources"
	"github.com/semind/semind/pkg/vector"
)

// fakeEmbedder returns a deterministic zero-ish vector so tests never reach
// out to a real Ollama host.
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

func newTestServer(t *testing.T) *api.Server {
	t.Helper()
	store, err := metadata.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vectors, err := vector.NewChromemProvider(vector.ChromemConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { vectors.Close() })

	embedder := &fakeEmbedder{dim: 3}
	registry := extraction.NewDefaultRegistry()
	chunkCfg := chunking.DefaultConfig()

	controller := run.New(store, vectors, embedder, registry, chunkCfg, "dev-1", 10*time.Millisecond, 10*time.Millisecond, nil)
	catalog := sources.NewCatalogue(store, controller)

	return api.New(controller, store, catalog, vectors, embedder, chunkCfg, nil)
}

func doJSON(t *testing.T, srv *api.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRunsCreateAndList(t *testing.T) {
	srv := newTestServer(t)

	scope := domain.NewFilesystemScope([]domain.DirEntry{{Path: "/tmp/notes", Recursive: true}})
	w := doJSON(t, srv, http.MethodPost, "/runs/create", map[string]any{
		"kind":  domain.SourceFilesystem,
		"scope": scope,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created["run_id"])

	w = doJSON(t, srv, http.MethodGet, "/runs/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs []domain.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	require.Equal(t, created["run_id"], runs[0].ID)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/search", map[string]any{"query": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "validation", resp["error"])
}

func TestQueueNextOnEmptyQueueIs404(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/queue/next/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSourcesAddAndGetAll(t *testing.T) {
	srv := newTestServer(t)
	scope := domain.NewFilesystemScope([]domain.DirEntry{{Path: "/tmp/notes", Recursive: true}})

	w := doJSON(t, srv, http.MethodPost, "/sources/add", map[string]any{"scope": scope})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/sources/get_all_sources", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []domain.MonitoredSource
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all, 1)
	require.Equal(t, domain.SourceFilesystem, all[0].Kind)
}
