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

// Binary document extractors (PDF, DOCX, XLSX), ported from the teacher's
// pkg/context/native_parsers.go PDFParser/OfficeParser into the registry's
// Extractor shape. Kept using the same three libraries
// (ledongthuc/pdf, nguyenthenguyen/docx, xuri/excelize/v2).
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"

	"github.com/semind/semind/pkg/identity"
)

// PDFExtractor handles .pdf files via ledongthuc/pdf.
type PDFExtractor struct{}

// NewPDFExtractor builds a PDFExtractor.
func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (p *PDFExtractor) Name() string    { return "pdf" }
func (p *PDFExtractor) Version() string { return "1.0.0" }
func (p *PDFExtractor) Priority() int   { return 10 }

func (p *PDFExtractor) CanExtract(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func (p *PDFExtractor) CanExtractBytes(data []byte, contentTypeHint string) bool {
	return contentTypeHint == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF-"))
}

func (p *PDFExtractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("stat pdf %s: %w", path, err)
	}
	return p.extractReader(f, info.Size(), path)
}

func (p *PDFExtractor) ExtractBytes(ctx context.Context, data []byte, name, contentTypeHint string) (ExtractionResult, error) {
	return p.extractReader(bytes.NewReader(data), int64(len(data)), name)
}

func (p *PDFExtractor) extractReader(r readerAtSizer, size int64, title string) (ExtractionResult, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("parse pdf %s: %w", title, err)
	}

	var parts []string
	totalPages := reader.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", pageNum, text))
		}
	}
	content := identity.Canonicalize(strings.Join(parts, "\n\n"))
	meta := map[string]string{
		"pages": fmt.Sprintf("%d", totalPages),
		"title": filepath.Base(title),
	}
	return single(content, "application/pdf", meta, "", p.Name(), p.Version()), nil
}

// readerAtSizer matches both *os.File and *bytes.Reader for pdf.NewReader's
// io.ReaderAt requirement.
type readerAtSizer interface {
	ReadAt(p []byte, off int64) (n int, err error)
}

// DOCXExtractor handles .docx files via nguyenthenguyen/docx.
type DOCXExtractor struct{}

// NewDOCXExtractor builds a DOCXExtractor.
func NewDOCXExtractor() *DOCXExtractor { return &DOCXExtractor{} }

func (d *DOCXExtractor) Name() string    { return "docx" }
func (d *DOCXExtractor) Version() string { return "1.0.0" }
func (d *DOCXExtractor) Priority() int   { return 10 }

func (d *DOCXExtractor) CanExtract(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".docx")
}

func (d *DOCXExtractor) CanExtractBytes(data []byte, contentTypeHint string) bool {
	return contentTypeHint == "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (d *DOCXExtractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("parse docx %s: %w", path, err)
	}
	defer doc.Close()
	content := identity.Canonicalize(doc.Editable().GetContent())
	meta := map[string]string{"title": filepath.Base(path), "type": "Word Document"}
	return single(content, docxContentType, meta, "", d.Name(), d.Version()), nil
}

func (d *DOCXExtractor) ExtractBytes(ctx context.Context, data []byte, name, contentTypeHint string) (ExtractionResult, error) {
	// nguyenthenguyen/docx only reads from a file path or a ReaderAt over a
	// zip archive; a temp file is the least surprising way to reuse that
	// API for an in-memory email attachment.
	tmp, err := os.CreateTemp("", "semind-docx-*.docx")
	if err != nil {
		return ExtractionResult{}, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ExtractionResult{}, err
	}
	tmp.Close()
	return d.Extract(ctx, tmp.Name())
}

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// XLSXExtractor handles .xlsx files via xuri/excelize/v2.
type XLSXExtractor struct{}

// NewXLSXExtractor builds an XLSXExtractor.
func NewXLSXExtractor() *XLSXExtractor { return &XLSXExtractor{} }

func (x *XLSXExtractor) Name() string    { return "xlsx" }
func (x *XLSXExtractor) Version() string { return "1.0.0" }
func (x *XLSXExtractor) Priority() int   { return 10 }

func (x *XLSXExtractor) CanExtract(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func (x *XLSXExtractor) CanExtractBytes(data []byte, contentTypeHint string) bool {
	return contentTypeHint == xlsxContentType
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (x *XLSXExtractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("parse xlsx %s: %w", path, err)
	}
	defer f.Close()
	return x.extractWorkbook(f, path)
}

func (x *XLSXExtractor) ExtractBytes(ctx context.Context, data []byte, name, contentTypeHint string) (ExtractionResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("parse xlsx %s: %w", name, err)
	}
	defer f.Close()
	return x.extractWorkbook(f, name)
}

func (x *XLSXExtractor) extractWorkbook(f *excelize.File, title string) (ExtractionResult, error) {
	var parts []string
	sheets := f.GetSheetList()
	for _, sheetName := range sheets {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("--- Sheet: %s ---\n", sheetName))
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		cellCount := 0
		for rowIndex, row := range rows {
			if cellCount >= 1000 {
				sb.WriteString("... (truncated)\n")
				break
			}
			for colIndex, cell := range row {
				if cellCount >= 1000 {
					break
				}
				if text := strings.TrimSpace(cell); text != "" {
					col, _ := excelize.ColumnNumberToName(colIndex + 1)
					sb.WriteString(fmt.Sprintf("%s%d: %s\n", col, rowIndex+1, text))
					cellCount++
				}
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			parts = append(parts, text)
		}
	}
	content := identity.Canonicalize(strings.Join(parts, "\n\n"))
	meta := map[string]string{"title": filepath.Base(title), "type": "Excel Spreadsheet", "sheets": fmt.Sprintf("%d", len(sheets))}
	return single(content, xlsxContentType, meta, "", x.Name(), x.Version()), nil
}
