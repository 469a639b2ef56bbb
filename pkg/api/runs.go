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
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
)

type createRunRequest struct {
	Kind  domain.SourceKind `json:"kind"`
	Scope domain.Scope      `json:"scope"`
}

type runResponse struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	StartedAt string    `json:"started_at"`
}

func (s *Server) handleRunsCreate(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "runs.create", apperr.Wrap(apperr.Validation, "runs.create", "invalid request body", err))
		return
	}
	run, err := s.runs.Create(r.Context(), req.Kind, req.Scope)
	if err != nil {
		writeError(w, "runs.create", err)
		return
	}
	if err := s.runs.StartIndexing(r.Context(), run.ID); err != nil {
		writeError(w, "runs.create", err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		RunID:     run.ID,
		Status:    string(run.Status),
		StartedAt: run.StartedAt.Format(http.TimeFormat),
	})
}

func (s *Server) handleRunsStartIndexing(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if err := s.runs.StartIndexing(r.Context(), runID); err != nil {
		writeError(w, "runs.start_indexing", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"run_id": runID, "status": "starting"})
}

func (s *Server) handleRunsRequestStop(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if err := s.runs.RequestStop(r.Context(), runID); err != nil {
		writeError(w, "runs.request_stop", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stop_requested"})
}

func (s *Server) handleRunsIsStopRequested(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	v, err := s.store.IsStopRequested(r.Context(), runID)
	if err != nil {
		writeError(w, "runs.is_stop_requested", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"stop_requested": v})
}

func (s *Server) handleRunsList(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 100)
	if err != nil {
		writeError(w, "runs.list", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRunsMarkCompleted(w http.ResponseWriter, r *http.Request) {
	s.markTerminal(w, r, s.runs.MarkCompleted, "completed")
}

func (s *Server) handleRunsMarkFailed(w http.ResponseWriter, r *http.Request) {
	s.markTerminal(w, r, s.runs.MarkFailed, "failed")
}

func (s *Server) handleRunsMarkInterrupted(w http.ResponseWriter, r *http.Request) {
	s.markTerminal(w, r, s.runs.MarkInterrupted, "interrupted")
}

// markTerminal calls one of the Controller's Mark* transitions against the
// run_id path param and reports the resulting status.
func (s *Server) markTerminal(w http.ResponseWriter, r *http.Request, mark func(ctx context.Context, runID string) error, label string) {
	runID := chi.URLParam(r, "run_id")
	if err := mark(r.Context(), runID); err != nil {
		writeError(w, "runs.mark_"+label, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": label})
}

func (s *Server) handleRunsDiscoveringStopped(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if err := s.runs.DiscoveringStopped(r.Context(), runID); err != nil {
		writeError(w, "runs.discovering_stopped", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleRunsStopLatest(w http.ResponseWriter, r *http.Request) {
	kind := domain.SourceKind(chi.URLParam(r, "kind"))
	run, err := s.runs.StopLatest(r.Context(), kind)
	if err != nil {
		writeError(w, "runs.stop_latest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"run_id": run.ID, "status": "stop_requested"})
}

func (s *Server) handleRunsResumeLatest(w http.ResponseWriter, r *http.Request) {
	kind := domain.SourceKind(chi.URLParam(r, "kind"))
	run, err := s.runs.ResumeLatest(r.Context(), kind)
	if err != nil {
		writeError(w, "runs.resume_latest", err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{RunID: run.ID, Status: string(run.Status), StartedAt: run.StartedAt.Format(http.TimeFormat)})
}
