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

// Package vector is the Vector Store Gateway: the only code in the system
// aware of the backing vector engine. It manages lazy collection creation,
// enforces embedding-dimension agreement, and re-hashes application-level
// chunk ids into whatever id namespace the engine requires, so the
// application-level id remains the source of truth.
package vector

import (
	"context"

	"github.com/google/uuid"

	"github.com/semind/semind/pkg/domain"
)

// Result is one scored hit from Query, or the single row from RetrieveByID.
type Result struct {
	ChunkID  string
	Score    float32
	Metadata map[string]any
	Vector   []float32
}

// Provider is the Vector Store Gateway's interface over a backing engine,
// matching the system's contract: add, query, retrieve_chunk_by_id, exists,
// remove_chunks, count, dimension.
type Provider interface {
	// Add stores (or overwrites) a chunk's embedding. The qdrant provider
	// creates the collection on its first Add; the chromem provider creates
	// it when constructed.
	Add(ctx context.Context, chunk domain.Chunk, embedding []float32) error

	// Query returns the topK nearest chunks to embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]Result, error)

	// RetrieveByID fetches a single chunk's stored vector/metadata by its
	// application-level chunk id.
	RetrieveByID(ctx context.Context, chunkID string) (*Result, error)

	// Exists reports whether chunkID is currently stored.
	Exists(ctx context.Context, chunkID string) (bool, error)

	// Remove deletes a batch of chunks by application-level chunk id.
	Remove(ctx context.Context, chunkIDs []string) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Dimension returns the vector width this provider expects to store.
	// 0 means no fixed dimension has been established yet.
	Dimension() int

	Close() error
}

// collectionName is the single collection every chunk lives in. The gateway
// does not shard by source kind or device: identity already disambiguates.
const collectionName = "chunks"

// engineID re-hashes an application-level chunk id into a stable engine-native
// id (a UUID derived via uuid.NewMD5, as the teacher's document store derives
// chunk ids from an md5 digest of a logical key). The chunk id itself remains
// the application's truth; this is purely an engine-namespace concern.
func engineID(chunkID string) string {
	return uuid.NewMD5(uuid.Nil, []byte(chunkID)).String()
}

func chunkMetadata(c domain.Chunk) map[string]any {
	m := map[string]any{
		"chunk_id":         c.ChunkID,
		"document_part_id": c.DocumentPartID,
		"source_path":      c.SourcePath,
		"device_id":        c.DeviceID,
		"kind":             string(c.Kind),
		"unit_locator":     c.UnitLocator,
		"index":            c.Index,
		"content":          c.Text,
	}
	for k, v := range c.Metadata {
		if _, reserved := m[k]; !reserved {
			m[k] = v
		}
	}
	return m
}
