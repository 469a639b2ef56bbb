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

package vector

import (
	"fmt"
)

// StorageKind is the vector_storage configuration enum.
type StorageKind string

const (
	StorageInMemory     StorageKind = "in-memory"
	StorageQdrant       StorageKind = "qdrant"
	StorageQdrantHybrid StorageKind = "qdrant-hybrid"
)

// Config selects and configures one Provider.
type Config struct {
	Storage StorageKind

	Chromem ChromemConfig
	Qdrant  QdrantConfig
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Storage == "" {
		c.Storage = StorageInMemory
	}
}

// Validate checks the configuration, the way ProviderConfig.Validate did in
// the teacher's vector factory.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageInMemory:
		return nil
	case StorageQdrant, StorageQdrantHybrid:
		if c.Qdrant.Host == "" {
			return fmt.Errorf("qdrant host is required for vector_storage=%s", c.Storage)
		}
		return nil
	case "":
		return fmt.Errorf("vector_storage is required")
	default:
		return fmt.Errorf("unknown vector_storage: %q", c.Storage)
	}
}

// NewProvider builds a Provider from Config.
func NewProvider(cfg Config) (Provider, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Storage {
	case StorageInMemory:
		return NewChromemProvider(cfg.Chromem)
	case StorageQdrant, StorageQdrantHybrid:
		// qdrant-hybrid is a documented alias of qdrant, not a distinct
		// collection/query mode: Qdrant's sparse+dense hybrid search needs a
		// sparse vector per chunk (e.g. BM25 term weights) alongside the
		// dense embedding, and nothing upstream of this gateway — the
		// Extractor Registry, chunker or Embedder interface — produces one.
		// Collapsed here rather than faked with an all-dense "hybrid" that
		// would behave identically to qdrant while claiming otherwise.
		return NewQdrantProvider(cfg.Qdrant)
	default:
		return nil, fmt.Errorf("unknown vector_storage: %q", cfg.Storage)
	}
}
