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

// Package identity provides the three pure, collision-resistant hash functions
// that give every entity in the system a stable, host-independent id: the same
// logical input always produces the same id, on any host, in any process.
//
// The pattern (hash a logical key, render as a fixed-length hex string) mirrors
// how chunk ids were derived via uuid.NewMD5 in the teacher's document store,
// generalized here to three functions and to SHA-256 for stronger collision
// resistance.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"
)

func hash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0}) // separator: prevents "ab"+"c" colliding with "a"+"bc"
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SourceInstanceID hashes the canonicalized absolute path plus device-id plus
// kind. Symlinks must be resolved by the caller before calling this (so a
// symlink and its target produce the same id).
func SourceInstanceID(kind, deviceID, sourcePath string) string {
	canonical := filepath.ToSlash(filepath.Clean(sourcePath))
	return hash("source_instance_id", kind, deviceID, canonical)
}

// DocumentPartID binds a unit's logical address to its containing source.
func DocumentPartID(sourceInstanceID, unitLocator string) string {
	return hash("document_part_id", sourceInstanceID, unitLocator)
}

// ChunkID mutates whenever content (checksum) or position (index) changes.
func ChunkID(documentPartID, partChecksum string, index int) string {
	return hash("chunk_id", documentPartID, partChecksum, strconv.Itoa(index))
}

// Checksum hashes canonicalized text (stripped, UTF-8, no trailing whitespace).
func Checksum(text string) string {
	canonical := strings.TrimRight(text, " \t\r\n")
	h := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(h[:])
}

// Canonicalize applies the canonicalization rule used before checksumming and
// before storage: stripped, no trailing whitespace. Extractors call this on
// their raw output before computing Checksum so the invariant
// H(canonicalized_text(P)) = P.checksum holds by construction.
func Canonicalize(text string) string {
	return strings.TrimSpace(text)
}
