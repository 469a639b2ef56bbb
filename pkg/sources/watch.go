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

package sources

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/semind/semind/pkg/domain"
)

// Watcher refreshes a filesystem monitored source's fingerprint as soon as
// fsnotify observes a change underneath it. It never triggers a scan —
// spec.md's non-goal on real-time filesystem watching is explicit ("scans
// are explicit") — it only keeps last_seen_fingerprint current so a later
// explicit Scan reports accurate change visibility without a full re-walk.
// Ported from the teacher's DocumentStore.setupFileWatching/watchFileEvents
// (pkg/context/document_store.go), stripped of the auto-index-on-event path.
type Watcher struct {
	catalogue *Catalogue
	fsw       *fsnotify.Watcher
}

func NewWatcher(catalogue *Catalogue) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{catalogue: catalogue, fsw: fsw}, nil
}

// Watch adds every directory of every enabled filesystem monitored source to
// the underlying fsnotify watcher and runs the event loop until ctx is done.
func (w *Watcher) Watch(ctx context.Context) error {
	sourcesList, err := w.catalogue.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range sourcesList {
		if !m.Enabled || m.Kind != domain.SourceFilesystem {
			continue
		}
		scope, err := domain.ParseScope(m.ScopeJSON)
		if err != nil || scope.Filesystem == nil {
			continue
		}
		for _, dir := range scope.Filesystem.Dirs {
			w.addTree(dir.Path)
		}
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) addTree(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				slog.Warn("sources: watch failed", "path", path, "error", err)
			}
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("sources: watcher error", "error", err)
		}
	}
}

// handleEvent recomputes and stores last_seen_fingerprint for every
// monitored source whose tree the event falls under. It never records
// last_ingested_at and never triggers a scan: those stay scan()'s job
// (§4.9), and spec.md's real-time-watching non-goal only excludes
// auto-triggering scans, not keeping the stored fingerprint current so a
// later explicit scan can report accurate change visibility without first
// re-walking the tree itself.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	all, err := w.catalogue.List(ctx)
	if err != nil {
		return
	}
	for _, m := range all {
		if m.Kind != domain.SourceFilesystem {
			continue
		}
		scope, err := domain.ParseScope(m.ScopeJSON)
		if err != nil || scope.Filesystem == nil {
			continue
		}
		var underSource bool
		for _, dir := range scope.Filesystem.Dirs {
			if rel, err := filepath.Rel(dir.Path, event.Name); err == nil && filepath.IsLocal(rel) {
				underSource = true
				break
			}
		}
		if !underSource {
			continue
		}
		fp, err := Fingerprint(scope)
		if err != nil {
			slog.Warn("sources: change-hint fingerprint recompute failed", "source_id", m.ID, "error", err)
			continue
		}
		if err := w.catalogue.RefreshFingerprint(ctx, m.ID, fp); err != nil {
			slog.Warn("sources: change-hint fingerprint write failed", "source_id", m.ID, "error", err)
			continue
		}
		slog.Info("sources: change hint", "source_id", m.ID, "path", event.Name, "op", event.Op.String())
	}
}
