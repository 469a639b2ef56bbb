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

package sources

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/semind/semind/pkg/domain"
)

// Fingerprint computes a single opaque hash over a scope's mutable state:
// directory mtimes/sizes for a filesystem scope, or the mbox file's
// mtime+size for an email scope (supplemented from the original's
// monitored-source fingerprinting, since spec.md's distillation folded this
// into "scans are explicit" but the original computes and stores it).
// recomputed on scan() purely for change visibility — it never gates
// whether a scan runs.
func Fingerprint(scope domain.Scope) (string, error) {
	h := sha256.New()
	switch scope.Kind {
	case domain.SourceFilesystem:
		if scope.Filesystem == nil {
			return "", fmt.Errorf("filesystem scope missing")
		}
		var entries []string
		for _, dir := range scope.Filesystem.Dirs {
			err := filepath.WalkDir(dir.Path, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil // best-effort; an unreadable entry doesn't fail the whole fingerprint
				}
				info, err := d.Info()
				if err != nil {
					return nil
				}
				entries = append(entries, fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano()))
				return nil
			})
			if err != nil {
				return "", err
			}
		}
		sort.Strings(entries)
		for _, e := range entries {
			h.Write([]byte(e))
			h.Write([]byte{0})
		}
	case domain.SourceEmail:
		if scope.Email == nil {
			return "", fmt.Errorf("email scope missing")
		}
		info, err := os.Stat(scope.Email.MboxPath)
		if err != nil {
			return "", err
		}
		h.Write([]byte(fmt.Sprintf("%s|%d|%d", scope.Email.MboxPath, info.Size(), info.ModTime().UnixNano())))
	default:
		return "", fmt.Errorf("unknown source kind %q", scope.Kind)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
