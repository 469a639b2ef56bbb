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
	"context"
	"fmt"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/semind/semind/pkg/domain"
)

// QdrantConfig configures the Qdrant vector provider.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantProvider implements Provider using Qdrant, the production vector store.
type QdrantProvider struct {
	client *qdrant.Client
	cfg    QdrantConfig

	mu        sync.Mutex
	dimension int
	ensured   bool
}

func NewQdrantProvider(cfg QdrantConfig) (*QdrantProvider, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &QdrantProvider{client: client, cfg: cfg}, nil
}

func (p *QdrantProvider) ensureCollection(ctx context.Context, dim int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ensured {
		return nil
	}

	exists, err := p.client.CollectionExists(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("check collection existence: %w", err)
	}
	if !exists {
		err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}

	p.dimension = dim
	p.ensured = true
	return nil
}

func (p *QdrantProvider) Add(ctx context.Context, c domain.Chunk, embedding []float32) error {
	if err := p.ensureCollection(ctx, len(embedding)); err != nil {
		return err
	}

	payload := make(map[string]*qdrant.Value)
	for k, v := range chunkMetadata(c) {
		val, err := qdrant.NewValue(v)
		if err != nil {
			return fmt.Errorf("convert metadata value %q: %w", k, err)
		}
		payload[k] = val
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(engineID(c.ChunkID)),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: payload,
	}

	_, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upsert point: %w", err)
	}
	return nil
}

func (p *QdrantProvider) Query(ctx context.Context, embedding []float32, topK int) ([]Result, error) {
	req := &qdrant.SearchPoints{
		CollectionName: collectionName,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	}

	searchResult, err := p.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}
	return convertQdrantResults(searchResult.Result), nil
}

func (p *QdrantProvider) RetrieveByID(ctx context.Context, chunkID string) (*Result, error) {
	points, err := p.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collectionName,
		Ids:            []*qdrant.PointId{qdrant.NewID(engineID(chunkID))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve point: %w", err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	results := convertQdrantResults([]*qdrant.ScoredPoint{{
		Id:      points[0].Id,
		Payload: points[0].Payload,
		Vectors: points[0].Vectors,
	}})
	if len(results) == 0 {
		return nil, nil
	}
	results[0].ChunkID = chunkID
	return &results[0], nil
}

func (p *QdrantProvider) Exists(ctx context.Context, chunkID string) (bool, error) {
	r, err := p.RetrieveByID(ctx, chunkID)
	if err != nil {
		return false, err
	}
	return r != nil, nil
}

func (p *QdrantProvider) Remove(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = qdrant.NewID(engineID(id))
	}
	_, err := p.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

func (p *QdrantProvider) Count(ctx context.Context) (int, error) {
	count, err := p.client.Count(ctx, &qdrant.CountPoints{CollectionName: collectionName})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return int(count), nil
}

func (p *QdrantProvider) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dimension
}

func (p *QdrantProvider) Close() error {
	return p.client.Close()
}

func convertQdrantResults(points []*qdrant.ScoredPoint) []Result {
	results := make([]Result, 0, len(points))

	for _, point := range points {
		var id string
		if point.Id != nil && point.Id.PointIdOptions != nil {
			if uuidID, ok := point.Id.PointIdOptions.(*qdrant.PointId_Uuid); ok {
				id = uuidID.Uuid
			}
		}

		var vec []float32
		if point.Vectors != nil {
			if vectorData := point.Vectors.GetVector(); vectorData != nil {
				if dense, ok := vectorData.Vector.(*qdrant.VectorOutput_Dense); ok && dense.Dense != nil {
					vec = dense.Dense.Data
				}
			}
		}

		meta := make(map[string]any, len(point.Payload))
		var chunkID string
		for key, value := range point.Payload {
			v := decodeQdrantValue(value)
			meta[key] = v
			if key == "chunk_id" {
				if s, ok := v.(string); ok {
					chunkID = s
				}
			}
		}
		if chunkID == "" {
			chunkID = id
		}

		results = append(results, Result{
			ChunkID:  chunkID,
			Score:    point.Score,
			Metadata: meta,
			Vector:   vec,
		})
	}

	return results
}

func decodeQdrantValue(value *qdrant.Value) any {
	switch v := value.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	default:
		return value
	}
}

var _ Provider = (*QdrantProvider)(nil)
