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
	"testing"

	"github.com/semind/semind/pkg/domain"
)

func TestBuildScopeFilesystem(t *testing.T) {
	f := scopeFlags{
		Kind:      "filesystem",
		Dir:       []string{"/tmp/notes", "/tmp/docs"},
		Recursive: true,
		Include:   []string{"*.md"},
	}
	scope, err := f.buildScope()
	if err != nil {
		t.Fatalf("buildScope() error = %v", err)
	}
	if scope.Kind != domain.SourceFilesystem {
		t.Fatalf("Kind = %v, want filesystem", scope.Kind)
	}
	if scope.Filesystem == nil || len(scope.Filesystem.Dirs) != 2 {
		t.Fatalf("Filesystem dirs = %+v, want 2 entries", scope.Filesystem)
	}
}

func TestBuildScopeFilesystemRequiresDir(t *testing.T) {
	f := scopeFlags{Kind: "filesystem"}
	if _, err := f.buildScope(); err == nil {
		t.Fatal("buildScope() error = nil, want error for missing --dir")
	}
}

func TestBuildScopeEmail(t *testing.T) {
	f := scopeFlags{
		Kind:   "email",
		Mbox:   "/tmp/inbox.mbox",
		Ignore: []string{"from=*@spam.com"},
	}
	scope, err := f.buildScope()
	if err != nil {
		t.Fatalf("buildScope() error = %v", err)
	}
	if scope.Kind != domain.SourceEmail {
		t.Fatalf("Kind = %v, want email", scope.Kind)
	}
	if scope.Email == nil || scope.Email.MboxPath != "/tmp/inbox.mbox" {
		t.Fatalf("Email = %+v, want MboxPath set", scope.Email)
	}
	if len(scope.Email.IgnorePatterns) != 1 || scope.Email.IgnorePatterns[0].Field != "from" {
		t.Fatalf("IgnorePatterns = %+v, want one from= pattern", scope.Email.IgnorePatterns)
	}
}

func TestBuildScopeEmailRequiresMbox(t *testing.T) {
	f := scopeFlags{Kind: "email"}
	if _, err := f.buildScope(); err == nil {
		t.Fatal("buildScope() error = nil, want error for missing --mbox")
	}
}

func TestBuildScopeUnknownKind(t *testing.T) {
	f := scopeFlags{Kind: "carrier-pigeon"}
	if _, err := f.buildScope(); err == nil {
		t.Fatal("buildScope() error = nil, want error for unknown kind")
	}
}

func TestParseIgnorePatterns(t *testing.T) {
	patterns, err := parseIgnorePatterns([]string{"from=*@spam.com", "subject=unsubscribe"})
	if err != nil {
		t.Fatalf("parseIgnorePatterns() error = %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("len(patterns) = %d, want 2", len(patterns))
	}
	if patterns[0].Field != "from" || patterns[0].Value != "*@spam.com" {
		t.Fatalf("patterns[0] = %+v", patterns[0])
	}
}

func TestParseIgnorePatternsRejectsMissingEquals(t *testing.T) {
	if _, err := parseIgnorePatterns([]string{"not-a-pair"}); err == nil {
		t.Fatal("parseIgnorePatterns() error = nil, want error for malformed pattern")
	}
}
