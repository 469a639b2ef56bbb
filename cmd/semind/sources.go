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

// SourcesCmd groups the Monitored Sources catalogue operations (spec.md §4.9):
// registering a source, listing registered sources, and triggering scans.
type SourcesCmd struct {
	Add     SourcesAddCmd     `cmd:"" help:"Register a monitored source."`
	List    SourcesListCmd    `cmd:"" help:"List registered sources."`
	Scan    SourcesScanCmd    `cmd:"" help:"Scan one source for a new run."`
	ScanAll SourcesScanAllCmd `cmd:"" help:"Scan every registered source."`
}

type SourcesAddCmd struct {
	scopeFlags
}

func (c *SourcesAddCmd) Run(appCtx *appContext) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	application, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	scope, err := c.buildScope()
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	src, err := application.catalog.Add(ctx, scope)
	if err != nil {
		return err
	}
	fmt.Printf("source %s registered (kind=%s)\n", src.ID, src.Kind)
	return nil
}

type SourcesListCmd struct{}

func (c *SourcesListCmd) Run(appCtx *appContext) error {
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

	srcs, err := application.catalog.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range srcs {
		fmt.Printf("%s\t%s\tenabled=%t\tlast_ingested=%s\n", s.ID, s.Kind, s.Enabled, s.LastIngestedAt.Format("2006-01-02T15:04:05"))
	}
	return nil
}

type SourcesScanCmd struct {
	SourceID string `arg:"" help:"Source id to scan."`
}

func (c *SourcesScanCmd) Run(appCtx *appContext) error {
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

	run, err := application.catalog.Scan(ctx, c.SourceID)
	if err != nil {
		return err
	}
	fmt.Printf("scan started: run %s\n", run.ID)
	return nil
}

type SourcesScanAllCmd struct{}

func (c *SourcesScanAllCmd) Run(appCtx *appContext) error {
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

	runs, err := application.catalog.ScanAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("scanned %d sources\n", len(runs))
	return nil
}
