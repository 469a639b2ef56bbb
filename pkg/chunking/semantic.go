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

// semanticChunk groups paragraphs (blank-line-separated) greedily up to
// cfg.Size, keeping a paragraph intact whenever it fits. The teacher's
// SemanticChunker preserves function/type boundaries using source metadata
// that doesn't exist for prose or email bodies; paragraph boundaries are this
// system's analogous semantic unit. A paragraph longer than cfg.Size falls
// back to simpleChunk for that paragraph alone.
func semanticChunk(text string, cfg Config) ([]string, error) {
	if len(text) <= cfg.Size {
		return []string{text}, nil
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) <= 1 {
		return simpleChunk(text, cfg)
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			chunks = append(chunks, current.String())
		}
		current.Reset()
	}

	for _, para := range paragraphs {
		if len(para) > cfg.Size {
			flush()
			sub, err := simpleChunk(para, cfg)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, sub...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > cfg.Size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks, nil
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
