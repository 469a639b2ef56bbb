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

// Command semind is the CLI client over the ingestion control plane.
//
// Usage:
//
//	semind serve
//	semind runs create --kind filesystem --dir ./notes
//	semind runs list
//	semind runs stop <run_id>
//	semind sources add --kind filesystem --dir ./notes
//	semind sources scan <source_id>
//	semind search "project retrospective notes"
//
// Modeled on the teacher's cmd/hector kong wiring (cmd/hector/main.go): one
// top-level CLI struct of cmd-tagged subcommands, flags resolved against
// package-level defaults, --log-level/--log-format shared across every
// subcommand.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/config"
	"github.com/semind/semind/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP server."`
	Runs    RunsCmd    `cmd:"" help:"Inspect and control ingestion runs."`
	Queue   QueueCmd   `cmd:"" help:"Inspect a run's work queue."`
	Sources SourcesCmd `cmd:"" help:"Manage monitored sources."`
	Search  SearchCmd  `cmd:"" help:"Query the vector index."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *appContext) error {
	fmt.Println("semind dev")
	return nil
}

// appContext is threaded into every subcommand's Run method by kong's
// bindings mechanism; it carries nothing but the parsed CLI flags needed to
// build a logger before the rest of the wiring (config, store, workers)
// happens inside each subcommand.
type appContext struct {
	logLevel  string
	logFormat string
}

func main() {
	cli := CLI{}
	parser := kong.Must(&cli,
		kong.Name("semind"),
		kong.Description("Local semantic-memory indexer control plane."),
		kong.UsageOnError(),
	)
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		level = -1
	}
	logger.Init(level, os.Stderr, cli.LogFormat)

	app := &appContext{logLevel: cli.LogLevel, logFormat: cli.LogFormat}
	if err := ctx.Run(app); err != nil {
		slog.Error("semind: command failed", "error", err)
		os.Exit(apperr.ExitCode(apperr.KindOf(err)))
	}
}

// notifyContext returns a context cancelled on SIGINT/SIGTERM, the same
// shutdown-signal pattern the teacher's ServeCmd.Run wires around its HTTP
// server loop.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// loadConfig is the one config.Load call site every subcommand shares.
func loadConfig() (*config.Config, error) {
	return config.Load()
}
