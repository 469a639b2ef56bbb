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

// Package domain holds the data model shared by every component of the
// ingestion control plane: runs, scopes, monitored sources, document parts,
// queue entries and chunks. Nothing here talks to a database or a network.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SourceKind tags which ingestion source kind a Scope, Run or DocumentPart belongs to.
type SourceKind string

const (
	SourceFilesystem SourceKind = "filesystem"
	SourceEmail      SourceKind = "email"
)

// DirEntry is one root directory in a FilesystemScope.
type DirEntry struct {
	Path      string   `json:"path"`
	Recursive bool     `json:"recursive"`
	Include   []string `json:"include,omitempty"`
	Exclude   []string `json:"exclude,omitempty"`
}

// FilesystemScope configures a filesystem ingestion source.
type FilesystemScope struct {
	Dirs []DirEntry `json:"dirs"`
}

// IgnorePattern matches a header field against a glob-style value (e.g. field "from",
// value "*@spam.com").
type IgnorePattern struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// EmailScope configures an mbox ingestion source.
type EmailScope struct {
	MboxPath       string          `json:"mbox_path"`
	IgnorePatterns []IgnorePattern `json:"ignore_patterns,omitempty"`
}

// Scope is the sum type tagged by SourceKind. Exactly one of Filesystem/Email is set,
// matching Kind. It serializes to a canonical JSON form (sorted keys, sorted dir list)
// so two logically equal scopes hash identically.
type Scope struct {
	Kind       SourceKind       `json:"kind"`
	Filesystem *FilesystemScope `json:"filesystem,omitempty"`
	Email      *EmailScope      `json:"email,omitempty"`
}

// NewFilesystemScope builds a canonicalized filesystem Scope.
func NewFilesystemScope(dirs []DirEntry) Scope {
	sorted := append([]DirEntry(nil), dirs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	for i := range sorted {
		sorted[i].Include = sortedCopy(sorted[i].Include)
		sorted[i].Exclude = sortedCopy(sorted[i].Exclude)
	}
	return Scope{Kind: SourceFilesystem, Filesystem: &FilesystemScope{Dirs: sorted}}
}

// NewEmailScope builds a canonicalized email Scope.
func NewEmailScope(mboxPath string, patterns []IgnorePattern) Scope {
	sorted := append([]IgnorePattern(nil), patterns...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Field != sorted[j].Field {
			return sorted[i].Field < sorted[j].Field
		}
		return sorted[i].Value < sorted[j].Value
	})
	return Scope{Kind: SourceEmail, Email: &EmailScope{MboxPath: mboxPath, IgnorePatterns: sorted}}
}

func sortedCopy(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}

// Canonical renders the scope as a stable JSON string: sorted map keys (json.Marshal's
// struct field order is already stable) and pre-sorted slices via the constructors above.
func (s Scope) Canonical() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("canonicalize scope: %w", err)
	}
	return string(b), nil
}

// MustCanonical panics on marshal failure; used where the scope is known-valid.
func (s Scope) MustCanonical() string {
	c, err := s.Canonical()
	if err != nil {
		panic(err)
	}
	return c
}

// ParseScope deserializes a canonical scope_json string.
func ParseScope(raw string) (Scope, error) {
	var s Scope
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Scope{}, fmt.Errorf("parse scope: %w", err)
	}
	return s, nil
}

// Locator renders a human-readable identifier for a Scope, used as the monitored
// source's locator column.
func (s Scope) Locator() string {
	switch s.Kind {
	case SourceFilesystem:
		if s.Filesystem == nil || len(s.Filesystem.Dirs) == 0 {
			return "filesystem:(empty)"
		}
		paths := make([]string, len(s.Filesystem.Dirs))
		for i, d := range s.Filesystem.Dirs {
			paths[i] = d.Path
		}
		return "filesystem:" + joinComma(paths)
	case SourceEmail:
		if s.Email == nil {
			return "email:(empty)"
		}
		return "email:" + s.Email.MboxPath
	default:
		return string(s.Kind) + ":(unknown)"
	}
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// Validate checks structural validity of the scope (§7 Validation errors).
func (s Scope) Validate() error {
	switch s.Kind {
	case SourceFilesystem:
		if s.Filesystem == nil || len(s.Filesystem.Dirs) == 0 {
			return fmt.Errorf("filesystem scope requires at least one directory")
		}
		for _, d := range s.Filesystem.Dirs {
			if d.Path == "" {
				return fmt.Errorf("filesystem scope directory path cannot be empty")
			}
		}
		return nil
	case SourceEmail:
		if s.Email == nil || s.Email.MboxPath == "" {
			return fmt.Errorf("email scope requires a mbox_path")
		}
		return nil
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}
}
