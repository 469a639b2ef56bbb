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
	"context"
	"log/slog"
	"net/http"

	"github.com/semind/semind/pkg/api"
	"github.com/semind/semind/pkg/observability"
	"github.com/semind/semind/pkg/sources"
)

// ServeCmd starts the HTTP server: the thin transport over the Run
// Controller, Metadata Store and Monitored Sources catalogue (spec.md §6).
type ServeCmd struct {
	Addr    string `help:"HTTP listen address." default:""`
	Metrics bool   `help:"Enable the Prometheus /metrics endpoint." default:"true" negatable:""`
	Tracing bool   `help:"Enable OTLP tracing (requires OTEL_EXPORTER_OTLP_ENDPOINT)." default:"false"`
	Watch   bool   `help:"Watch monitored filesystem sources with fsnotify, refreshing their stored fingerprint on change (never triggers a scan)." default:"true" negatable:""`
}

func (c *ServeCmd) Run(appCtx *appContext) error {
	ctx, cancel := notifyContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := c.Addr
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	application, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	// application.runs and its workers always report through
	// application.metrics; the flag only controls whether this process
	// also exposes the /metrics scrape endpoint.
	metrics := application.metrics
	if !c.Metrics {
		metrics = nil
	}

	if c.Tracing {
		_, shutdown, err := observability.InitTracing(ctx, "semind")
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	if c.Watch {
		watcher, err := sources.NewWatcher(application.catalog)
		if err != nil {
			return err
		}
		if err := watcher.Watch(ctx); err != nil {
			return err
		}
	}

	srv := api.New(application.runs, application.store, application.catalog, application.vectors, application.embedder, application.chunkCfg, metrics)

	httpServer := &http.Server{Addr: addr, Handler: srv}
	slog.Info("semind: HTTP server starting", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("semind: shutting down")
		return httpServer.Shutdown(context.Background())
	}
}
