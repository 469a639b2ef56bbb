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

package domain

import "time"

// DocumentPart is the unit of indexing: one text blob with its own extractor
// provenance. A document (e.g. an email) may decompose into several parts.
type DocumentPart struct {
	DocumentPartID   string
	Checksum         string
	Kind             SourceKind
	SourceInstanceID string
	DeviceID         string
	SourcePath       string
	UnitLocator      string
	ContentType      string
	ExtractorName    string
	ExtractorVersion string
	Metadata         map[string]string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Set once indexed.
	LastIndexedRunID string
	ChunkIDs         []string
	LastIndexedAt    time.Time

	// ScopeJSON of the run that produced this part, for scoped cleanup (I5).
	ScopeJSON string

	// Text is the canonicalized extracted text. Not persisted on the part row
	// itself (it lives on the queue entry / is re-derived on reprocess), but
	// carried here so in-process pipeline stages don't need a second lookup.
	Text string `json:"-"`
}

// QueueEntry is a durable row carrying a DocumentPart payload plus the run that
// submitted it, FIFO by insertion order within a run.
type QueueEntry struct {
	Seq       int64 // auto-increment pk, establishes FIFO order
	RunID     string
	Part      DocumentPart
	Text      string
	ScopeJSON string
	CreatedAt time.Time
}

// Chunk is one embeddable slice of a DocumentPart's text.
type Chunk struct {
	ChunkID        string
	DocumentPartID string
	SourcePath     string
	DeviceID       string
	Kind           SourceKind
	UnitLocator    string
	Index          int
	Metadata       map[string]string
	Text           string
}

// MonitoredSource is a catalogued scope eligible for scheduled scans.
type MonitoredSource struct {
	ID                  string
	Kind                SourceKind
	Locator             string
	ScopeJSON           string
	LastSeenFingerprint string
	LastCheckedAt       time.Time
	LastIngestedAt      time.Time
	Enabled             bool
	CreatedAt           time.Time
}

// SourceStats is the per-source part/chunk count summary (supplemented
// from the original's document-stats endpoints).
type SourceStats struct {
	SourceInstanceID string
	PartCount        int
	ChunkCount       int
	LastIndexedAt    time.Time
}
