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

// RunStatus is the Run state machine's current state.
type RunStatus string

const (
	RunPending     RunStatus = "pending"
	RunRunning     RunStatus = "running"
	RunInterrupted RunStatus = "interrupted"
	RunCompleted   RunStatus = "completed"
	RunFailed      RunStatus = "failed"
)

// Terminal reports whether status is a terminal state (I7): no worker may mutate
// the Run or its queue entries once terminal.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// Run is one scan of one scope, with lifecycle and counters.
type Run struct {
	ID              string
	Kind            SourceKind
	ScopeJSON       string
	Status          RunStatus
	StartedAt       time.Time
	UpdatedAt       time.Time
	LastDocumentID  string
	DiscoveredCount int
	IndexedCount    int
	StopRequested   bool
	IsDiscovering   bool
	IsIndexing      bool
}
