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

package vector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/semind/semind/pkg/domain"
)

// ChromemProvider implements Provider using chromem-go for embedded, in-process
// vector storage: the default `vector_storage=in-memory` provider, requiring no
// external services. Pure Go, optional gzip-compressed gob persistence.
type ChromemProvider struct {
	db          *chromem.DB
	persistPath string
	compress    bool
	mu          sync.RWMutex
	dimension   int

	col *chromem.Collection
}

// ChromemConfig configures the chromem provider.
type ChromemConfig struct {
	// PersistPath for file persistence. Empty means memory-only.
	PersistPath string
	Compress    bool
}

func NewChromemProvider(cfg ChromemConfig) (*ChromemProvider, error) {
	var db *chromem.DB

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0755); err != nil {
			return nil, fmt.Errorf("create persist directory: %w", err)
		}

		dbPath := cfg.PersistPath + "/vectors.gob"
		if cfg.Compress {
			dbPath += ".gz"
		}

		if _, statErr := os.Stat(dbPath); statErr == nil {
			loaded, err := chromem.NewPersistentDB(dbPath, cfg.Compress)
			if err != nil {
				slog.Warn("failed to load existing vector database, creating new", "path", dbPath, "error", err)
				db = chromem.NewDB()
			} else {
				db = loaded
				slog.Info("loaded vector database from file", "path", dbPath)
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	p := &ChromemProvider{db: db, persistPath: cfg.PersistPath, compress: cfg.Compress}

	// Identity embedding function: embeddings are always supplied precomputed.
	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("chromem embedding function invoked; vectors must be precomputed")
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("get/create collection: %w", err)
	}
	p.col = col

	return p, nil
}

func (p *ChromemProvider) Add(ctx context.Context, c domain.Chunk, embedding []float32) error {
	p.mu.Lock()
	if p.dimension == 0 && len(embedding) > 0 {
		p.dimension = len(embedding)
	}
	dim := p.dimension
	p.mu.Unlock()
	if dim != 0 && len(embedding) != dim {
		return fmt.Errorf("chromem add: embedding dimension %d does not match %d", len(embedding), dim)
	}

	strMeta := make(map[string]string)
	for k, v := range chunkMetadata(c) {
		strMeta[k] = fmt.Sprint(v)
	}

	doc := chromem.Document{
		ID:        engineID(c.ChunkID),
		Content:   c.Text,
		Metadata:  strMeta,
		Embedding: embedding,
	}

	if err := p.col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem add: %w", err)
	}
	if err := p.persist(); err != nil {
		slog.Warn("chromem persist after add failed", "error", err)
	}
	return nil
}

func (p *ChromemProvider) Query(ctx context.Context, embedding []float32, topK int) ([]Result, error) {
	count := p.col.Count()
	if topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}
	results, err := p.col.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	return toResults(results), nil
}

func (p *ChromemProvider) RetrieveByID(ctx context.Context, chunkID string) (*Result, error) {
	doc, err := p.col.GetByID(ctx, engineID(chunkID))
	if err != nil {
		return nil, nil
	}
	meta := make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	return &Result{ChunkID: chunkID, Metadata: meta, Vector: doc.Embedding}, nil
}

func (p *ChromemProvider) Exists(ctx context.Context, chunkID string) (bool, error) {
	r, err := p.RetrieveByID(ctx, chunkID)
	if err != nil {
		return false, err
	}
	return r != nil, nil
}

func (p *ChromemProvider) Remove(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	ids := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = engineID(id)
	}
	if err := p.col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("chromem remove: %w", err)
	}
	if err := p.persist(); err != nil {
		slog.Warn("chromem persist after remove failed", "error", err)
	}
	return nil
}

func (p *ChromemProvider) Count(ctx context.Context) (int, error) {
	return p.col.Count(), nil
}

func (p *ChromemProvider) Dimension() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dimension
}

func (p *ChromemProvider) Close() error {
	return p.persist()
}

func (p *ChromemProvider) persist() error {
	if p.persistPath == "" {
		return nil
	}
	dbPath := p.persistPath + "/vectors.gob"
	if p.compress {
		dbPath += ".gz"
	}
	//nolint:staticcheck // Export is the stable persistence entry point chromem-go offers.
	if err := p.db.Export(dbPath, p.compress, ""); err != nil {
		return fmt.Errorf("persist vector database: %w", err)
	}
	return nil
}

func toResults(rs []chromem.Result) []Result {
	out := make([]Result, 0, len(rs))
	for _, r := range rs {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		out = append(out, Result{
			ChunkID:  r.Metadata["chunk_id"],
			Score:    r.Similarity,
			Metadata: meta,
			Vector:   r.Embedding,
		})
	}
	return out
}

var _ Provider = (*ChromemProvider)(nil)
