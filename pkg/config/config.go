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

// Package config loads environment-driven configuration at startup, the way
// the teacher's pkg/config defaulting/validation pairs work throughout
// pkg/vector/factory.go: SetDefaults followed by Validate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/semind/semind/pkg/chunking"
	"github.com/semind/semind/pkg/vector"
)

// Config is the process-wide configuration, covering every variable spec.md
// names plus the ambient additions needed to run a real server.
type Config struct {
	// Core (spec.md §6).
	DeviceID         string
	DataDir          string
	SourceRootHost   string
	APIURL           string
	EmbeddingModel   string
	Chunker          chunking.Strategy
	VectorStorage    vector.StorageKind
	UseCUDA          bool
	AllowVectorClear bool

	// Ambient additions.
	LogLevel           string
	LogFormat          string
	HTTPAddr           string
	MetadataDialect    string // sqlite | postgres | mysql
	MetadataDSN        string
	QueuePollInterval  int // milliseconds
	IndexingConcurrency int
	StopPollInterval   int // milliseconds

	OllamaHost string

	Qdrant vector.QdrantConfig
}

// Load reads configuration from the environment, loading a .env file first
// if one is present in the working directory (local-dev convenience, mirrors
// the teacher's use of joho/godotenv).
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is not an error

	c := &Config{
		DeviceID:            getenv("SEMIND_DEVICE_ID", ""),
		DataDir:             getenv("SEMIND_DATA_DIR", "./data"),
		SourceRootHost:      getenv("SEMIND_SOURCE_ROOT_HOST", ""),
		APIURL:              getenv("SEMIND_API_URL", "http://localhost:8080"),
		EmbeddingModel:      getenv("SEMIND_EMBEDDING_MODEL", "nomic-ai/nomic-embed-text"),
		Chunker:             chunking.Strategy(getenv("SEMIND_CHUNKER", string(chunking.Simple))),
		VectorStorage:       vector.StorageKind(getenv("SEMIND_VECTOR_STORAGE", string(vector.StorageInMemory))),
		UseCUDA:             getenvBool("SEMIND_USE_CUDA", false),
		AllowVectorClear:    getenvBool("SEMIND_ALLOW_VECTOR_CLEAR", false),
		LogLevel:            getenv("SEMIND_LOG_LEVEL", "info"),
		LogFormat:           getenv("SEMIND_LOG_FORMAT", "simple"),
		HTTPAddr:            getenv("SEMIND_HTTP_ADDR", ":8080"),
		MetadataDialect:     getenv("SEMIND_METADATA_DIALECT", "sqlite"),
		MetadataDSN:         getenv("SEMIND_METADATA_DSN", ""),
		QueuePollInterval:   getenvInt("SEMIND_QUEUE_POLL_INTERVAL_MS", 200),
		IndexingConcurrency: getenvInt("SEMIND_INDEXING_CONCURRENCY", 4),
		StopPollInterval:    getenvInt("SEMIND_STOP_POLL_INTERVAL_MS", 200),
		OllamaHost:          getenv("SEMIND_OLLAMA_HOST", "http://localhost:11434"),
		Qdrant: vector.QdrantConfig{
			Host:   getenv("SEMIND_QDRANT_HOST", "localhost"),
			Port:   getenvInt("SEMIND_QDRANT_PORT", 6334),
			APIKey: getenv("SEMIND_QDRANT_API_KEY", ""),
			UseTLS: getenvBool("SEMIND_QDRANT_USE_TLS", false),
		},
	}

	if c.MetadataDSN == "" {
		c.MetadataDSN = filepath.Join(c.DataDir, "semind.db")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects unknown enums, the way ProviderConfig.Validate does in the
// teacher's vector factory.
func (c *Config) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	switch c.Chunker {
	case chunking.Simple, chunking.Semantic:
	default:
		return fmt.Errorf("unknown chunker: %q", c.Chunker)
	}
	switch c.VectorStorage {
	case vector.StorageInMemory, vector.StorageQdrant, vector.StorageQdrantHybrid:
	default:
		return fmt.Errorf("unknown vector_storage: %q", c.VectorStorage)
	}
	switch c.MetadataDialect {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unknown metadata_dialect: %q", c.MetadataDialect)
	}
	return nil
}

// EnsureDataDir creates data_dir (and its vectors/ subdirectory) if absent,
// the way the teacher's EnsureHectorDir helper did for its own .hector layout.
func (c *Config) EnsureDataDir() (string, error) {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return "", fmt.Errorf("create data_dir %q: %w", c.DataDir, err)
	}
	vectorsDir := filepath.Join(c.DataDir, "vectors")
	if err := os.MkdirAll(vectorsDir, 0755); err != nil {
		return "", fmt.Errorf("create vectors dir: %w", err)
	}
	return c.DataDir, nil
}

// VectorConfig derives the vector.Config this Config selects.
func (c *Config) VectorConfig() vector.Config {
	return vector.Config{
		Storage: c.VectorStorage,
		Chromem: vector.ChromemConfig{PersistPath: filepath.Join(c.DataDir, "vectors"), Compress: true},
		Qdrant:  c.Qdrant,
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}
