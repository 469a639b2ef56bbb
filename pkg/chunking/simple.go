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

package chunking

import "strings"

// simpleChunk is a fixed-size, line-respecting cut: it accumulates lines until
// adding the next one would exceed cfg.Size, then starts a new chunk carrying
// the trailing cfg.Overlap characters of the previous one forward. Generalized
// from the teacher's line-based SimpleChunker, which has no notion of overlap;
// this adds it because free-form prose and email bodies (this system's input)
// benefit from overlap the way source-code chunking does not.
func simpleChunk(text string, cfg Config) ([]string, error) {
	if len(text) <= cfg.Size {
		return []string{text}, nil
	}

	lines := strings.Split(text, "\n")

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, current.String())
		tail := tailOverlap(current.String(), cfg.Overlap)
		current.Reset()
		current.WriteString(tail)
	}

	for _, line := range lines {
		withNewline := line + "\n"
		if current.Len() > 0 && current.Len()+len(withNewline) > cfg.Size {
			flush()
		}
		current.WriteString(withNewline)
	}
	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, current.String())
	}

	return chunks, nil
}

func tailOverlap(s string, overlap int) string {
	if overlap <= 0 || len(s) <= overlap {
		return ""
	}
	return s[len(s)-overlap:]
}
