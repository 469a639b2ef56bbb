// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// OllamaConfig configures a sentence-transformer-style embedder served by Ollama.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// ollamaEmbedMu serializes embedding requests: Ollama's llama runner crashes
// when receiving concurrent embedding requests on the same model.
var ollamaEmbedMu sync.Mutex

// OllamaEmbedder calls Ollama's /api/embeddings endpoint.
type OllamaEmbedder struct {
	cfg    OllamaConfig
	client *http.Client
}

func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &OllamaEmbedder{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *OllamaEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return ZeroVector(e.cfg.Dimension), nil
	}

	ollamaEmbedMu.Lock()
	defer ollamaEmbedMu.Unlock()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.cfg.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	var resp *http.Response
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Host+"/api/embeddings", bytes.NewReader(body))
		if rerr != nil {
			return nil, rerr
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err = e.client.Do(req)
		if err == nil {
			break
		}
		slog.Debug("ollama embedding retry", "attempt", attempt+1, "error", err)
		if attempt < e.cfg.MaxRetries-1 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ollama request failed after %d attempts: %w", e.cfg.MaxRetries, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}
	return decoded.Embedding, nil
}

func (e *OllamaEmbedder) Dimension() int { return e.cfg.Dimension }
func (e *OllamaEmbedder) Model() string  { return e.cfg.Model }
func (e *OllamaEmbedder) Close() error    { return nil }
