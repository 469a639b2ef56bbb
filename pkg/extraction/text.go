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

package extraction

import (
	"context"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/semind/semind/pkg/identity"
)

// TextExtractor handles plain text files: the lowest-priority extractor so
// anything more specific (PDF, DOCX, XLSX) gets first refusal. Ported from
// the teacher's TextExtractor (pkg/context/extraction/text_extractor.go),
// generalized to the registry's bytes-aware interface.
type TextExtractor struct{}

// NewTextExtractor builds a TextExtractor.
func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (te *TextExtractor) Name() string    { return "text" }
func (te *TextExtractor) Version() string { return "1.0.0" }
func (te *TextExtractor) Priority() int   { return 1 }

func (te *TextExtractor) CanExtract(path string) bool {
	if isBinaryFile(path) {
		return false
	}
	return true
}

func (te *TextExtractor) CanExtractBytes(data []byte, contentTypeHint string) bool {
	if contentTypeHint != "" {
		return isTextMimeType(contentTypeHint)
	}
	return isTextMimeType(http.DetectContentType(data))
}

func (te *TextExtractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{}, err
	}
	return te.ExtractBytes(ctx, raw, path, "")
}

func (te *TextExtractor) ExtractBytes(ctx context.Context, data []byte, name, contentTypeHint string) (ExtractionResult, error) {
	content := identity.Canonicalize(cleanUTF8(string(data)))
	return single(content, "text/plain", map[string]string{}, "", te.Name(), te.Version()), nil
}

func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil || n == 0 {
		return false
	}
	return !isTextMimeType(http.DetectContentType(buf[:n]))
}

func isTextMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") ||
		mimeType == "application/json" ||
		mimeType == "application/xml" ||
		strings.Contains(mimeType, "javascript")
}

// cleanUTF8 validates and cleans UTF-8 content, rejecting files that are
// more than half invalid bytes (same threshold as the teacher's extractor).
func cleanUTF8(content string) string {
	if utf8.ValidString(content) {
		return content
	}
	cleaned := strings.ToValidUTF8(content, "")
	if len(content) == 0 {
		return ""
	}
	invalidRatio := float64(len(content)-len(cleaned)) / float64(len(content))
	if invalidRatio > 0.5 {
		return ""
	}
	return cleaned
}
