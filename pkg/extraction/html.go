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

// HTMLExtractor strips HTML to text for email bodies (spec §4.5: "plain
// text and HTML become text parts (HTML stripped to text)"). Grounded on
// intelligencedev-manifold's web fetcher, which feeds raw HTML through
// JohannesKaufmann/html-to-markdown/v2 — not in the teacher's own stack, an
// enrichment pulled from the rest of the retrieval pack per DESIGN.md.
package extraction

import (
	"context"
	"net/http"
	"os"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/semind/semind/pkg/identity"
)

// HTMLExtractor handles .html/.htm files and text/html MIME parts.
type HTMLExtractor struct{}

// NewHTMLExtractor builds an HTMLExtractor.
func NewHTMLExtractor() *HTMLExtractor { return &HTMLExtractor{} }

func (h *HTMLExtractor) Name() string    { return "html" }
func (h *HTMLExtractor) Version() string { return "1.0.0" }
func (h *HTMLExtractor) Priority() int   { return 5 }

func (h *HTMLExtractor) CanExtract(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm")
}

func (h *HTMLExtractor) CanExtractBytes(data []byte, contentTypeHint string) bool {
	if contentTypeHint != "" {
		return strings.HasPrefix(contentTypeHint, "text/html")
	}
	return strings.HasPrefix(http.DetectContentType(data), "text/html")
}

func (h *HTMLExtractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{}, err
	}
	return h.ExtractBytes(ctx, raw, path, "text/html")
}

func (h *HTMLExtractor) ExtractBytes(ctx context.Context, data []byte, name, contentTypeHint string) (ExtractionResult, error) {
	md, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return ExtractionResult{}, err
	}
	content := identity.Canonicalize(md)
	return single(content, "text/html", map[string]string{}, "", h.Name(), h.Version()), nil
}
