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

package main

import (
	"fmt"
	"time"

	"github.com/semind/semind/pkg/chunking"
	"github.com/semind/semind/pkg/config"
	"github.com/semind/semind/pkg/embedding"
	"github.com/semind/semind/pkg/extraction"
	"github.com/semind/semind/pkg/metadata"
	"github.com/semind/semind/pkg/observability"
	"github.com/semind/semind/pkg/run"
	"github.com/semind/semind/pkg/sources"
	"github.com/semind/semind/pkg/vector"
)

// app is the fully wired set of collaborators every subcommand needs: the
// Metadata Store, Vector Store Gateway, Embedder, Extractor Registry, Run
// Controller and Monitored Sources catalogue. Built once per CLI invocation,
// the way the teacher's cmd/hector builds a runtime.Runtime once per ServeCmd.
type app struct {
	cfg      *config.Config
	store    *metadata.Store
	vectors  vector.Provider
	embedder embedding.Embedder
	registry *extraction.Registry
	chunkCfg chunking.Config
	runs     *run.Controller
	catalog  *sources.Catalogue
	metrics  *observability.Metrics
}

// buildApp wires every collaborator from cfg, registering the same
// Prometheus collectors the Run Controller and workers report through
// regardless of whether ServeCmd mounts /metrics. Callers must call Close
// when done.
func buildApp(cfg *config.Config) (*app, error) {
	if _, err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	store, err := metadata.Open(cfg.MetadataDialect, cfg.MetadataDSN)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	vectors, err := vector.NewProvider(cfg.VectorConfig())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build vector provider: %w", err)
	}

	embedder, err := embedding.FromSelector(cfg.EmbeddingModel, cfg.OllamaHost)
	if err != nil {
		store.Close()
		vectors.Close()
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	registry := extraction.NewDefaultRegistry()
	chunkCfg := chunking.Config{Strategy: cfg.Chunker, Size: 800, Overlap: 100}
	if chunkCfg.Strategy == "" {
		chunkCfg = chunking.DefaultConfig()
	}

	queuePoll := time.Duration(cfg.QueuePollInterval) * time.Millisecond
	stopPoll := time.Duration(cfg.StopPollInterval) * time.Millisecond
	metrics := observability.NewMetrics()
	runs := run.New(store, vectors, embedder, registry, chunkCfg, cfg.DeviceID, queuePoll, stopPoll, metrics)
	catalog := sources.NewCatalogue(store, runs)

	return &app{
		cfg:      cfg,
		store:    store,
		vectors:  vectors,
		embedder: embedder,
		registry: registry,
		chunkCfg: chunkCfg,
		runs:     runs,
		catalog:  catalog,
		metrics:  metrics,
	}, nil
}

func (a *app) Close() {
	_ = a.embedder.Close()
	_ = a.vectors.Close()
	_ = a.store.Close()
}
