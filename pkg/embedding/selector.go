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

package embedding

import (
	"fmt"
	"strings"
)

// defaultDimensions covers the handful of embedding_model selector strings the
// configuration names; everything else falls back to DefaultDimension.
var defaultDimensions = map[string]int{
	"bge-m3":                    1024,
	"nomic-ai/nomic-embed-text": 768,
}

const DefaultDimension = 768

// FromSelector builds an Embedder from the embedding_model selector string
// (e.g. "sentence-transformer:<name>", "nomic-ai/...", "bge-m3", or
// "ollama:<model>" for local development against an Ollama host).
func FromSelector(selector, ollamaHost string) (Embedder, error) {
	if selector == "" {
		return nil, fmt.Errorf("embedding_model selector cannot be empty")
	}

	dim := DefaultDimension
	if d, ok := defaultDimensions[selector]; ok {
		dim = d
	}

	switch {
	case strings.HasPrefix(selector, "ollama:"):
		model := strings.TrimPrefix(selector, "ollama:")
		return NewOllamaEmbedder(OllamaConfig{Host: ollamaHost, Model: model, Dimension: dim}), nil

	case strings.HasPrefix(selector, "sentence-transformer:"):
		model := strings.TrimPrefix(selector, "sentence-transformer:")
		// Sentence-transformer models are served locally through Ollama in this
		// deployment shape; the selector only changes which model name is sent.
		return NewOllamaEmbedder(OllamaConfig{Host: ollamaHost, Model: model, Dimension: dim}), nil

	case strings.HasPrefix(selector, "nomic-ai/"), selector == "bge-m3":
		return NewOllamaEmbedder(OllamaConfig{Host: ollamaHost, Model: selector, Dimension: dim}), nil

	default:
		return NewOllamaEmbedder(OllamaConfig{Host: ollamaHost, Model: selector, Dimension: dim}), nil
	}
}
