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

// QueueCmd inspects a run's work queue directly against the Metadata Store
// (spec.md §4.2), bypassing the Run Controller for ad-hoc debugging.
type QueueCmd struct {
	List  QueueListCmd  `cmd:"" help:"List queued entries for a run."`
	Clear QueueClearCmd `cmd:"" help:"Clear a run's queue."`
}

type QueueListCmd struct {
	RunID string `arg:"" help:"Run id."`
}

func (c *QueueListCmd) Run(appCtx *appContext) error {
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

	entries, err := application.store.QueueList(ctx, c.RunID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\n", e.Part.DocumentPartID, e.Part.SourcePath)
	}
	return nil
}

type QueueClearCmd struct {
	RunID string `arg:"" help:"Run id."`
}

func (c *QueueClearCmd) Run(appCtx *appContext) error {
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

	if err := application.store.QueueClear(ctx, c.RunID); err != nil {
		return err
	}
	fmt.Printf("queue cleared for run %s\n", c.RunID)
	return nil
}
