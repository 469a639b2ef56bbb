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

package main

import (
	"fmt"
	"strings"

	"github.com/semind/semind/pkg/apperr"
	"github.com/semind/semind/pkg/domain"
)

// scopeFlags are the flags shared by every subcommand that builds a Scope
// (runs create, sources add): one source kind, a repeatable --dir for
// filesystem scopes, a single --mbox for email scopes.
type scopeFlags struct {
	Kind      string   `help:"Source kind (filesystem or email)." default:"filesystem" enum:"filesystem,email"`
	Dir       []string `help:"Directory to scan (repeatable). Filesystem scopes only." type:"path"`
	Recursive bool     `help:"Recurse into subdirectories." default:"true" negatable:""`
	Include   []string `help:"Glob include pattern (repeatable)."`
	Exclude   []string `help:"Glob exclude pattern (repeatable)."`
	Mbox      string   `help:"mbox file path. Email scopes only." type:"path"`
	Ignore    []string `help:"Ignore pattern as field=value (repeatable), e.g. from=*@spam.com."`
}

func (f scopeFlags) buildScope() (domain.Scope, error) {
	switch domain.SourceKind(f.Kind) {
	case domain.SourceFilesystem:
		if len(f.Dir) == 0 {
			return domain.Scope{}, apperr.New(apperr.Validation, "buildScope", "at least one --dir is required for a filesystem scope")
		}
		dirs := make([]domain.DirEntry, len(f.Dir))
		for i, d := range f.Dir {
			dirs[i] = domain.DirEntry{Path: d, Recursive: f.Recursive, Include: f.Include, Exclude: f.Exclude}
		}
		return domain.NewFilesystemScope(dirs), nil

	case domain.SourceEmail:
		if f.Mbox == "" {
			return domain.Scope{}, apperr.New(apperr.Validation, "buildScope", "--mbox is required for an email scope")
		}
		patterns, err := parseIgnorePatterns(f.Ignore)
		if err != nil {
			return domain.Scope{}, err
		}
		return domain.NewEmailScope(f.Mbox, patterns), nil

	default:
		return domain.Scope{}, apperr.New(apperr.Validation, "buildScope", fmt.Sprintf("unknown source kind %q", f.Kind))
	}
}

func parseIgnorePatterns(raw []string) ([]domain.IgnorePattern, error) {
	patterns := make([]domain.IgnorePattern, 0, len(raw))
	for _, r := range raw {
		field, value, ok := strings.Cut(r, "=")
		if !ok {
			return nil, apperr.New(apperr.Validation, "parseIgnorePatterns", fmt.Sprintf("ignore pattern %q must be field=value", r))
		}
		patterns = append(patterns, domain.IgnorePattern{Field: field, Value: value})
	}
	return patterns, nil
}
