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
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
)

type queueAddRequest struct {
	RunID     string              `json:"run_id"`
	Part      domain.DocumentPart `json:"part"`
	Text      string              `json:"text"`
	ScopeJSON string              `json:"scope_json"`
}

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req queueAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "queue.add", apperr.Wrap(apperr.Validation, "queue.add", "invalid request body", err))
		return
	}
	entry := domain.QueueEntry{
		RunID:     req.RunID,
		Part:      req.Part,
		Text:      req.Text,
		ScopeJSON: req.ScopeJSON,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.QueueAdd(r.Context(), entry); err != nil {
		writeError(w, "queue.add", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

func (s *Server) handleQueueNext(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	entry, err := s.store.QueueNext(r.Context(), runID)
	if err != nil {
		writeError(w, "queue.next", err)
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "detail": "queue is empty"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
