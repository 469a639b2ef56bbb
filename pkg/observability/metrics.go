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

// Package observability carries the Prometheus metrics and (inert-by-default)
// OpenTelemetry tracing this system's HTTP surface and workers report through,
// trimmed from the teacher's pkg/observability (agent/LLM/tool/session
// metrics) down to the run/queue/HTTP metrics this control plane actually
// emits.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector this system registers.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	runsActive     *prometheus.GaugeVec
	runsTotal      *prometheus.CounterVec
	queueDepth     *prometheus.GaugeVec
	partsIndexed   *prometheus.CounterVec
	partsDiscovered *prometheus.CounterVec
	cleanupChunks  prometheus.Counter
}

// NewMetrics builds and registers every collector against a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "semind_http_requests_total",
		Help: "HTTP requests processed, by method/route/status.",
	}, []string{"method", "route", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "semind_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.runsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "semind_runs_active",
		Help: "Currently non-terminal runs, by kind.",
	}, []string{"kind"})

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "semind_runs_total",
		Help: "Runs reaching a terminal or interrupted state, by kind and outcome.",
	}, []string{"kind", "status"})

	m.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "semind_queue_depth",
		Help: "Outstanding work-queue entries for a run.",
	}, []string{"run_id"})

	m.partsIndexed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "semind_parts_indexed_total",
		Help: "Document parts marked processed, by run kind.",
	}, []string{"kind"})

	m.partsDiscovered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "semind_parts_discovered_total",
		Help: "Document parts enqueued by the Discovery Worker, by run kind.",
	}, []string{"kind"})

	m.cleanupChunks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "semind_cleanup_chunks_removed_total",
		Help: "Chunks removed from the vector store by cleanup(run_id).",
	})

	m.registry.MustRegister(m.httpRequests, m.httpDuration, m.runsActive,
		m.runsTotal, m.queueDepth, m.partsIndexed, m.partsDiscovered, m.cleanupChunks)
	return m
}

// Handler exposes the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	m.httpRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) RunStarted(kind string) {
	m.runsActive.WithLabelValues(kind).Inc()
}

func (m *Metrics) RunFinished(kind, status string) {
	m.runsActive.WithLabelValues(kind).Dec()
	m.runsTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) SetQueueDepth(runID string, depth int) {
	m.queueDepth.WithLabelValues(runID).Set(float64(depth))
}

func (m *Metrics) PartsIndexed(kind string, n int) {
	m.partsIndexed.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) PartsDiscovered(kind string, n int) {
	m.partsDiscovered.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) CleanupChunksRemoved(n int) {
	m.cleanupChunks.Add(float64(n))
}
