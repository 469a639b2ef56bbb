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

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
)

type addSourceRequest struct {
	Scope domain.Scope `json:"scope"`
}

func (s *Server) handleSourcesAdd(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "sources.add", apperr.Wrap(apperr.Validation, "sources.add", "invalid request body", err))
		return
	}
	m, err := s.catalog.Add(r.Context(), req.Scope)
	if err != nil {
		writeError(w, "sources.add", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleSourcesGetAll(w http.ResponseWriter, r *http.Request) {
	all, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, "sources.get_all_sources", err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleSourcesScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.catalog.Scan(r.Context(), id)
	if err != nil {
		writeError(w, "sources.scan", err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{RunID: run.ID, Status: string(run.Status), StartedAt: run.StartedAt.Format(http.TimeFormat)})
}

func (s *Server) handleSourcesScanAll(w http.ResponseWriter, r *http.Request) {
	runs, err := s.catalog.ScanAll(r.Context())
	if err != nil {
		writeError(w, "sources.scan_all", err)
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = runResponse{RunID: run.ID, Status: string(run.Status), StartedAt: run.StartedAt.Format(http.TimeFormat)}
	}
	writeJSON(w, http.StatusOK, out)
}
