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

package ingestsource

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/extraction"
	"github.com/semind/semind/pkg/identity"
)

// FilesystemSource recursively walks the scope's directories in
// deterministic (lexicographic) order, applying include/exclude glob
// patterns against each path relative to its root (§4.5). Ported from the
// teacher's DirectorySource walk shape, generalized to multiple roots with
// per-root filters and a cooperative shouldStop check between files.
type FilesystemSource struct {
	scope    domain.FilesystemScope
	deviceID string
	registry *extraction.Registry
}

// NewFilesystemSource builds a FilesystemSource from scope (which must carry
// a non-nil Filesystem variant).
func NewFilesystemSource(scope domain.Scope, deviceID string, registry *extraction.Registry) (*FilesystemSource, error) {
	if scope.Filesystem == nil {
		return nil, unknownKindErr(scope.Kind)
	}
	return &FilesystemSource{scope: *scope.Filesystem, deviceID: deviceID, registry: registry}, nil
}

func (s *FilesystemSource) Parts(ctx context.Context, shouldStop ShouldStop) (<-chan domain.DocumentPart, <-chan error) {
	partsCh := make(chan domain.DocumentPart, 64)
	errCh := make(chan error, 16)

	go func() {
		defer close(partsCh)
		defer close(errCh)

		dirs := append([]domain.DirEntry(nil), s.scope.Dirs...)
		sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })

		for _, dir := range dirs {
			if shouldStop() {
				return
			}
			if s.walkDir(ctx, dir, partsCh, errCh, shouldStop) {
				return // shouldStop fired mid-walk
			}
		}
	}()

	return partsCh, errCh
}

// walkDir walks one scope root; returns true if the walk stopped early due
// to shouldStop.
func (s *FilesystemSource) walkDir(ctx context.Context, dir domain.DirEntry, partsCh chan<- domain.DocumentPart, errCh chan<- error, shouldStop ShouldStop) bool {
	root, err := filepath.Abs(dir.Path)
	if err != nil {
		select {
		case errCh <- fmt.Errorf("resolve scope root %s: %w", dir.Path, err):
		default:
		}
		return false
	}
	filter := newPatternFilter(root, dir.Include, dir.Exclude)
	stopped := false

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if stopped {
			return filepath.SkipAll
		}
		select {
		case <-ctx.Done():
			stopped = true
			return filepath.SkipAll
		default:
		}
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !dir.Recursive {
				return filepath.SkipDir
			}
			if filter.shouldExclude(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldStop() {
			stopped = true
			return filepath.SkipAll
		}
		if filter.shouldExclude(path) || !filter.shouldInclude(path) {
			return nil
		}
		if err := s.emit(path, partsCh); err != nil {
			slog.Warn("filesystem source: extraction skipped", "path", path, "error", err)
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		select {
		case errCh <- err:
		default:
		}
	}
	return stopped
}

func (s *FilesystemSource) emit(path string, partsCh chan<- domain.DocumentPart) error {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path // best-effort; a broken symlink still gets an id
	}

	extractor, ok := s.registry.Resolve(resolved)
	if !ok {
		return fmt.Errorf("no extractor matches %s", path)
	}
	result, err := extractor.Extract(context.Background(), resolved)
	if err != nil {
		return fmt.Errorf("extractor %s failed on %s: %w", extractor.Name(), path, err)
	}
	if result.Len() == 0 {
		return nil
	}

	sourceInstanceID := identity.SourceInstanceID(string(domain.SourceFilesystem), s.deviceID, resolved)
	unitLocator := "filesystem:" + resolved
	documentPartID := identity.DocumentPartID(sourceInstanceID, unitLocator)
	text := result.Texts[0]
	checksum := identity.Checksum(text)

	ts := fileTimestamp(resolved)

	partsCh <- domain.DocumentPart{
		DocumentPartID:   documentPartID,
		Checksum:         checksum,
		Kind:             domain.SourceFilesystem,
		SourceInstanceID: sourceInstanceID,
		DeviceID:         s.deviceID,
		SourcePath:       resolved,
		UnitLocator:      unitLocator,
		ContentType:      result.ContentTypes[0],
		ExtractorName:    result.ExtractorNames[0],
		ExtractorVersion: result.ExtractorVersions[0],
		Metadata:         result.Metadata[0],
		CreatedAt:        ts,
		UpdatedAt:        ts,
		Text:             text,
	}
	return nil
}

func fileTimestamp(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Now().UTC()
	}
	return info.ModTime().UTC()
}
