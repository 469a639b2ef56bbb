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

// Package ingestsource is the Ingestion Source component (spec §4.5): a
// source-kind-specific producer with a uniform contract. Constructed from a
// Scope and a should-stop predicate, it exposes a lazy, single-pass
// sequence of document parts, polling should-stop before each file
// (filesystem) or each message (email) so it terminates cooperatively; the
// parts extracted from one file or message are emitted without a further
// poll. Generalized from the teacher's
// pkg/context/indexing/{data_source.go,directory_source.go} channel-based
// walk into the two concrete producers this spec names (filesystem, email).
package ingestsource

import (
	"context"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
	"github.com/semind/semind/pkg/extraction"
)

func unknownKindErr(kind domain.SourceKind) error {
	return apperr.New(apperr.Validation, "ingestsource.New", "unknown source kind: "+string(kind))
}

// ShouldStop is polled before each file or message is processed, not between
// the parts extracted from one message; returning true ends the sequence
// cooperatively (§5 Cancellation).
type ShouldStop func() bool

// Source produces document parts for one Scope, flattening each logical
// document (which may carry several parts, e.g. an email's body plus
// attachments) into its constituent DocumentPart values, which is the unit
// the Discovery Worker actually enqueues.
type Source interface {
	// Parts streams discovered parts and any non-fatal per-unit errors
	// (extractor failure, malformed message — logged and skipped, never
	// failing the run per §4.6). Both channels close when discovery ends,
	// either by exhaustion or by shouldStop returning true.
	Parts(ctx context.Context, shouldStop ShouldStop) (<-chan domain.DocumentPart, <-chan error)
}

// New builds the Source matching scope.Kind, wiring the given extractor
// registry and device id (§4.1 identity needs device_id for every part).
func New(scope domain.Scope, deviceID string, registry *extraction.Registry) (Source, error) {
	switch scope.Kind {
	case domain.SourceFilesystem:
		return NewFilesystemSource(scope, deviceID, registry)
	case domain.SourceEmail:
		return NewEmailSource(scope, deviceID, registry)
	default:
		return nil, unknownKindErr(scope.Kind)
	}
}
