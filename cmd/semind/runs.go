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

	"github.com/semind/semind/pkg/domain"
)

// RunsCmd groups every run-lifecycle subcommand the Run Controller exposes
// (spec.md §4.8): create, list, stop, resume.
type RunsCmd struct {
	Create  RunsCreateCmd  `cmd:"" help:"Create a run and start indexing it."`
	List    RunsListCmd    `cmd:"" help:"List recent runs."`
	Stop    RunsStopCmd    `cmd:"" help:"Request a cooperative stop on a run."`
	Resume  RunsResumeCmd  `cmd:"" help:"Resume the most recent interrupted run of a kind."`
	Cleanup RunsCleanupCmd `cmd:"" help:"Run stale-part cleanup for a run."`
}

type RunsCreateCmd struct {
	scopeFlags
	Wait bool `help:"Block until the run reaches a terminal state." default:"false"`
}

func (c *RunsCreateCmd) Run(appCtx *appContext) error {
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

	run, err := application.runs.Create(ctx, scope.Kind, scope)
	if err != nil {
		return err
	}
	if err := application.runs.StartIndexing(ctx, run.ID); err != nil {
		return err
	}
	fmt.Printf("run %s created (kind=%s, status=%s)\n", run.ID, run.Kind, run.Status)

	if c.Wait {
		application.runs.Wait(run.ID)
		final, err := application.store.LoadRunByID(ctx, run.ID)
		if err != nil {
			return err
		}
		fmt.Printf("run %s finished: status=%s discovered=%d indexed=%d\n", final.ID, final.Status, final.DiscoveredCount, final.IndexedCount)
	}
	return nil
}

type RunsListCmd struct {
	Limit int `help:"Maximum number of runs to list." default:"20"`
}

func (c *RunsListCmd) Run(appCtx *appContext) error {
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

	runs, err := application.store.ListRuns(ctx, c.Limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s\t%s\t%s\tdiscovered=%d\tindexed=%d\n", r.ID, r.Kind, r.Status, r.DiscoveredCount, r.IndexedCount)
	}
	return nil
}

type RunsStopCmd struct {
	RunID string `arg:"" help:"Run id to stop."`
}

func (c *RunsStopCmd) Run(appCtx *appContext) error {
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

	if err := application.runs.RequestStop(ctx, c.RunID); err != nil {
		return err
	}
	fmt.Printf("stop requested for run %s\n", c.RunID)
	return nil
}

type RunsResumeCmd struct {
	Kind string `arg:"" help:"Source kind to resume (filesystem or email)." enum:"filesystem,email"`
}

func (c *RunsResumeCmd) Run(appCtx *appContext) error {
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

	run, err := application.runs.ResumeLatest(ctx, domain.SourceKind(c.Kind))
	if err != nil {
		return err
	}
	fmt.Printf("resumed run %s (status=%s)\n", run.ID, run.Status)
	return nil
}

type RunsCleanupCmd struct {
	RunID string `arg:"" help:"Run id to clean stale parts for."`
}

func (c *RunsCleanupCmd) Run(appCtx *appContext) error {
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

	if err := application.runs.Cleanup(ctx, c.RunID); err != nil {
		return err
	}
	fmt.Printf("cleanup complete for run %s\n", c.RunID)
	return nil
}
