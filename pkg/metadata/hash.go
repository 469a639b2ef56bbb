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

package metadata

import (
	"crypto/sha256"
	"encoding/hex"
)

// scopeHash is the fixed-length column the unique index on monitored_sources
// enforces instead of the raw scope_json TEXT column (MySQL requires a key
// length on TEXT columns; hashing sidesteps that across all three dialects).
func scopeHash(scopeJSON string) string {
	h := sha256.Sum256([]byte(scopeJSON))
	return hex.EncodeToString(h[:])
}
