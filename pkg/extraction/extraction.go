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

// Package extraction is the Extractor Registry (spec §4.4): a
// priority-ordered list of extractors dispatching a source unit to a typed
// extractor that produces (text, content-type, extractor name/version)
// tuples. Generalized from the teacher's pkg/context/extraction package
// (ContentExtractor/ExtractorRegistry), whose single-file Extract() this
// splits into an array-returning ExtractionResult so one logical unit (an
// email message) can yield several document parts from a single dispatch.
package extraction

import "context"

// Extractor is one typed extractor, generalizing the teacher's
// ContentExtractor to also accept in-memory bytes (email attachments have
// no filesystem path).
type Extractor interface {
	// Name is this extractor's stable identity, persisted on the document
	// part row and compared across scans to detect an extractor upgrade.
	Name() string

	// Version is compared byte-for-byte against a document part's stored
	// extractor_version; any difference forces reprocess (§4.7).
	Version() string

	// Priority: higher is preferred when multiple extractors match.
	Priority() int

	// CanExtract predicates over a filesystem path.
	CanExtract(path string) bool

	// CanExtractBytes predicates over in-memory content (email MIME parts),
	// given a declared content type hint (may be empty).
	CanExtractBytes(data []byte, contentTypeHint string) bool

	// Extract dispatches a filesystem unit, returning one or more parts.
	Extract(ctx context.Context, path string) (ExtractionResult, error)

	// ExtractBytes dispatches in-memory content (an email MIME part) tagged
	// with a human-readable name for metadata/logging.
	ExtractBytes(ctx context.Context, data []byte, name, contentTypeHint string) (ExtractionResult, error)
}

// ExtractionResult is the dispatch output: parallel arrays, one entry per
// logical part produced from a single extraction call (§4.4).
type ExtractionResult struct {
	Texts             []string
	ContentTypes      []string
	Metadata          []map[string]string
	UnitLocators      []string
	ExtractorNames    []string
	ExtractorVersions []string
}

// Len reports how many parts this result carries.
func (r ExtractionResult) Len() int {
	return len(r.Texts)
}

// Append adds one part to the result, keeping all arrays in lockstep.
func (r *ExtractionResult) Append(text, contentType string, meta map[string]string, unitLocator, extractorName, extractorVersion string) {
	r.Texts = append(r.Texts, text)
	r.ContentTypes = append(r.ContentTypes, contentType)
	r.Metadata = append(r.Metadata, meta)
	r.UnitLocators = append(r.UnitLocators, unitLocator)
	r.ExtractorNames = append(r.ExtractorNames, extractorName)
	r.ExtractorVersions = append(r.ExtractorVersions, extractorVersion)
}

// single builds a one-part ExtractionResult, the common case for filesystem
// extraction where one file yields exactly one document part.
func single(text, contentType string, meta map[string]string, unitLocator, extractorName, extractorVersion string) ExtractionResult {
	var r ExtractionResult
	r.Append(text, contentType, meta, unitLocator, extractorName, extractorVersion)
	return r
}
