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

package extraction

import (
	"sort"
	"sync"

	"github.com/semind/semind/pkg/registry"
)

// Registry is the priority-ordered extractor list. It wraps a
// registry.BaseRegistry[Extractor] (the teacher's generic registry, kept and
// adapted per DESIGN.md) for name-keyed storage, and additionally maintains
// a priority-sorted slice for CanExtract resolution.
type Registry struct {
	byName *registry.BaseRegistry[Extractor]

	mu      sync.RWMutex
	ordered []Extractor // kept sorted by descending Priority()
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: registry.NewBaseRegistry[Extractor]()}
}

// Register adds an extractor under its Name() and re-sorts the resolution
// order. Registering two extractors under the same name is an error, since
// GetByName must be unambiguous for composite extractors that delegate by
// name (the email source asking for "pdf" must reach exactly one PDF
// extractor).
func (r *Registry) Register(e Extractor) error {
	if err := r.byName.Register(e.Name(), e); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ordered = append(r.ordered, e)
	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority() > r.ordered[j].Priority()
	})
	return nil
}

// GetByName resolves a specific extractor by its registered name, letting a
// composite extractor (email) delegate to siblings (plain-text, HTML, PDF)
// without knowing their internals (§4.4).
func (r *Registry) GetByName(name string) (Extractor, bool) {
	return r.byName.Get(name)
}

// Resolve iterates extractors in descending priority order and returns the
// first whose CanExtract predicate matches path. First match wins.
func (r *Registry) Resolve(path string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.ordered {
		if e.CanExtract(path) {
			return e, true
		}
	}
	return nil, false
}

// ResolveBytes is Resolve's in-memory counterpart, used by the email source
// to dispatch MIME parts that never touch the filesystem.
func (r *Registry) ResolveBytes(data []byte, contentTypeHint string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.ordered {
		if e.CanExtractBytes(data, contentTypeHint) {
			return e, true
		}
	}
	return nil, false
}

// List returns every registered extractor in priority order.
func (r *Registry) List() []Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extractor, len(r.ordered))
	copy(out, r.ordered)
	return out
}
