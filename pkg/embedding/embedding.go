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

// Package embedding adapts the teacher's embedder interface and Ollama/OpenAI
// provider shapes to the selector-string model selection this system uses
// (embedding_model values like "sentence-transformer:<name>", "nomic-ai/...",
// "bge-m3").
package embedding

import "context"

// Embedder produces vector embeddings from document text.
type Embedder interface {
	// EmbedDocument embeds one chunk of text. Empty text returns a zero vector
	// of Dimension() length, never an error.
	EmbedDocument(ctx context.Context, text string) ([]float32, error)

	Dimension() int
	Model() string
	Close() error
}

// ZeroVector is what EmbedDocument returns for empty text.
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}
