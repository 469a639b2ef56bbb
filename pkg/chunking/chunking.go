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

// Package chunking is a pure function of (text, config) -> []string: the
// Indexing Worker's chunker collaborator. It holds no state and touches
// neither the metadata store nor the vector store.
package chunking

import "fmt"

// Strategy selects a chunking algorithm.
type Strategy string

const (
	Simple   Strategy = "simple"
	Semantic Strategy = "semantic"
)

// Config configures chunking, generalized from the teacher's ChunkerConfig
// (Strategy/Size/Overlap) to this system's chunker contract.
type Config struct {
	Strategy Strategy
	Size     int // target size in characters
	Overlap  int // overlap in characters between consecutive chunks
}

// DefaultConfig matches the teacher's DefaultChunkerConfig defaults.
func DefaultConfig() Config {
	return Config{Strategy: Simple, Size: 800, Overlap: 0}
}

func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("chunk overlap cannot be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)", c.Overlap, c.Size)
	}
	switch c.Strategy {
	case Simple, Semantic:
		return nil
	default:
		return fmt.Errorf("invalid chunking strategy: %q", c.Strategy)
	}
}

// Chunk splits text into pieces per cfg. Empty text yields zero chunks, never
// an error — the Indexing Worker treats an empty-text part as zero chunks
// with no embedding calls (a stricter reading of "empty text -> zero/empty
// embedding" than emitting one empty chunk, since no text exists to embed).
func Chunk(text string, cfg Config) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	switch cfg.Strategy {
	case Semantic:
		return semanticChunk(text, cfg)
	default:
		return simpleChunk(text, cfg)
	}
}
