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

// NewDefaultRegistry builds the registry the CLI and server wire at startup:
// PDF/DOCX/XLSX (highest priority, most specific), HTML (email bodies),
// plain text (catch-all, lowest priority). Built once and threaded through
// constructors, the way DESIGN.md records module-level mutable registries
// being replaced by explicit value objects.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, e := range []Extractor{
		NewPDFExtractor(),
		NewDOCXExtractor(),
		NewXLSXExtractor(),
		NewHTMLExtractor(),
		NewTextExtractor(),
	} {
		if err := r.Register(e); err != nil {
			panic(err) // static set, registration cannot fail
		}
	}
	return r
}
