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

import "fmt"

// SearchCmd embeds a query and asks the Vector Store Gateway for the nearest
// chunks (spec.md §6's /search, mirrored here as a CLI convenience). Ranking
// and retrieval policy stay out of scope per spec.md §1's Non-goals; this is
// the same thin pass-through pkg/api's handleSearch is.
type SearchCmd struct {
	Query string `arg:"" help:"Query text."`
	TopK  int    `help:"Number of results to return." default:"10"`
}

func (c *SearchCmd) Run(appCtx *appContext) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	application, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, cancel := notifyContext()
	defer cancel()

	vec, err := application.embedder.EmbedDocument(ctx, c.Query)
	if err != nil {
		return err
	}
	topK := c.TopK
	if topK <= 0 {
		topK = 10
	}
	results, err := application.vectors.Query(ctx, vec, topK)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%.4f\t%s\n", r.Score, r.ChunkID)
	}
	return nil
}
