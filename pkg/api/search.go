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
)

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchHit struct {
	ChunkID  string         `json:"chunk_id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// handleSearch backs POST /search (§6). Retrieval ranking itself is
// explicitly out of the core's scope (spec.md §1 Non-goals: "the core does
// not rank or retrieve"); this handler is the thin pass-through the spec
// describes the HTTP surface as being — it embeds the query text and asks
// the Vector Store Gateway for the nearest chunks, nothing more.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "search", apperr.Wrap(apperr.Validation, "search", "invalid request body", err))
		return
	}
	if req.Query == "" {
		writeError(w, "search", apperr.New(apperr.Validation, "search", "query is required"))
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	vec, err := s.embedder.EmbedDocument(r.Context(), req.Query)
	if err != nil {
		writeError(w, "search", apperr.Wrap(apperr.Transient, "search", "embed query", err))
		return
	}
	results, err := s.vectors.Query(r.Context(), vec, topK)
	if err != nil {
		writeError(w, "search", err)
		return
	}

	hits := make([]searchHit, len(results))
	for i, res := range results {
		hits[i] = searchHit{ChunkID: res.ChunkID, Score: res.Score, Metadata: res.Metadata}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}
