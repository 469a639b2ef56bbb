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
	"context"
	"hash/fnv"
)

// StaticEmbedder derives a deterministic pseudo-embedding from the hash of the
// input text. No network calls, no model weights. FromSelector never returns
// one; it is built only through NewStaticEmbedder.
type StaticEmbedder struct {
	dim int
}

func NewStaticEmbedder(dim int) *StaticEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &StaticEmbedder{dim: dim}
}

func (e *StaticEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return ZeroVector(e.dim), nil
	}
	vec := make([]float32, e.dim)
	h := fnv.New64a()
	for i := range vec {
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		sum := h.Sum64()
		vec[i] = float32(sum%2000)/1000.0 - 1.0
	}
	return vec, nil
}

func (e *StaticEmbedder) Dimension() int { return e.dim }
func (e *StaticEmbedder) Model() string  { return "static" }
func (e *StaticEmbedder) Close() error   { return nil }
