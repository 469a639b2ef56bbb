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

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/worker"
)

type ingestDocumentPartRequest struct {
	RunID string              `json:"run_id"`
	Part  domain.DocumentPart `json:"part"`
	Text  string              `json:"text"`
}

type ingestDocumentPartResponse struct {
	Accepted bool `json:"accepted"`
	Skipped  bool `json:"skipped"`
}

// handleIngestDocumentPart backs POST /ingest/document_part (§6): it runs
// the §4.7 skip/reprocess/fresh decision against one part synchronously,
// bypassing the durable queue entirely — for one-off ingestion triggered
// by an external HTTP caller rather than a full scan.
func (s *Server) handleIngestDocumentPart(w http.ResponseWriter, r *http.Request) {
	var req ingestDocumentPartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "ingest.document_part", apperr.Wrap(apperr.Validation, "ingest.document_part", "invalid request body", err))
		return
	}
	if req.RunID == "" {
		writeError(w, "ingest.document_part", apperr.New(apperr.Validation, "ingest.document_part", "run_id is required"))
		return
	}

	accepted, skipped, err := worker.IngestDocumentPart(r.Context(), s.store, s.vectors, s.embedder, s.chunkCfg, req.RunID, req.Part, req.Text)
	if err != nil {
		writeError(w, "ingest.document_part", err)
		return
	}
	writeJSON(w, http.StatusOK, ingestDocumentPartResponse{Accepted: accepted, Skipped: skipped})
}
