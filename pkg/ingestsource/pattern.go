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

// patternFilter ports the teacher's hand-rolled glob filter
// (pkg/context/indexing/pattern_filter.go) unchanged in approach: the
// teacher never reached for a third-party glob library either, so there is
// nothing in the pack to substitute (see DESIGN.md stdlib justifications).
package ingestsource

import (
	"path/filepath"
	"strings"
)

type patternCache struct {
	dirExcludes  map[string]bool
	extExcludes  map[string]bool
	dirIncludes  map[string]bool
	extIncludes  map[string]bool
	globExcludes []string
	globIncludes []string
}

type patternFilter struct {
	root         string
	cache        *patternCache
	includeCount int
}

func newPatternFilter(root string, include, exclude []string) *patternFilter {
	return &patternFilter{
		root:         root,
		cache:        buildPatternCache(include, exclude),
		includeCount: len(include),
	}
}

func (f *patternFilter) shouldInclude(path string) bool {
	if f.includeCount == 0 {
		return true
	}
	rel := f.normalizedRel(path)

	if ext := filepath.Ext(rel); ext != "" && f.cache.extIncludes[ext] {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if f.cache.dirIncludes[part] {
			return true
		}
	}
	for _, pattern := range f.cache.globIncludes {
		if pattern == "*" {
			return true
		}
		if matched, err := filepath.Match(pattern, rel); err == nil && matched {
			return true
		}
		if strings.HasPrefix(pattern, "**/") {
			simple := strings.TrimPrefix(pattern, "**/")
			if matched, err := filepath.Match(simple, filepath.Base(rel)); err == nil && matched {
				return true
			}
		}
	}
	return false
}

func (f *patternFilter) shouldExclude(path string) bool {
	rel := f.normalizedRel(path)

	if ext := filepath.Ext(rel); ext != "" && f.cache.extExcludes[ext] {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if f.cache.dirExcludes[part] {
			return true
		}
	}
	for _, pattern := range f.cache.globExcludes {
		if matched, err := filepath.Match(pattern, rel); err == nil && matched {
			return true
		}
		if strings.HasPrefix(pattern, "**/") {
			simple := strings.TrimPrefix(pattern, "**/")
			if matched, err := filepath.Match(simple, filepath.Base(rel)); err == nil && matched {
				return true
			}
		}
	}
	return false
}

func (f *patternFilter) normalizedRel(path string) string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func buildPatternCache(include, exclude []string) *patternCache {
	c := &patternCache{
		dirExcludes: map[string]bool{},
		extExcludes: map[string]bool{},
		dirIncludes: map[string]bool{},
		extIncludes: map[string]bool{},
	}
	classify := func(patterns []string, dir, ext map[string]bool, globs *[]string) {
		for _, p := range patterns {
			np := filepath.ToSlash(p)
			switch {
			case strings.HasPrefix(np, "**/") && strings.HasSuffix(np, "/**"):
				dir[strings.Trim(np, "*/")] = true
			case strings.HasPrefix(np, "*."):
				ext[strings.TrimPrefix(np, "*")] = true
			case strings.HasPrefix(np, ".") && !strings.Contains(np, "/"):
				ext[np] = true
			case !strings.Contains(np, "*"):
				dir[np] = true
			default:
				*globs = append(*globs, np)
			}
		}
	}
	classify(exclude, c.dirExcludes, c.extExcludes, &c.globExcludes)
	classify(include, c.dirIncludes, c.extIncludes, &c.globIncludes)
	return c
}
