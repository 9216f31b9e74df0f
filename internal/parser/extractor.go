package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat means the file extension is not a recognized document type.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtraction means the document could not be parsed. Extraction is
	// all-or-nothing: no partial page list is returned.
	ErrExtraction = errors.New("document extraction failed")
)

// SupportedFormat reports whether the filename has a recognized document extension.
func SupportedFormat(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".pptx", ".xlsx", ".ods", ".txt", ".md":
		return true
	}
	return false
}

// ExtractPages converts an uploaded document into an ordered list of
// page-level text blocks. Formats without pages (docx, txt, md) yield a
// single block; spreadsheets yield one block per sheet, presentations one
// per slide.
func ExtractPages(filename string, data []byte) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".pptx":
		return extractPPTX(data)
	case ".xlsx":
		return extractXLSX(data)
	case ".ods":
		return extractODS(data)
	case ".txt":
		return []string{string(data)}, nil
	case ".md":
		return extractMarkdown(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func extractPDF(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrExtraction, i, err)
		}
		pages = append(pages, pageText)
	}
	return pages, nil
}

func extractDOCX(data []byte) ([]string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer r.Close()

	content := extractTaggedText(r.Editable().GetContent(), "w:t")
	return []string{content}, nil
}

func extractPPTX(data []byte) ([]string, error) {
	f, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var slides []string
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, file.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, file.Name, err)
		}
		slides = append(slides, extractTaggedText(string(raw), "a:t"))
	}
	return slides, nil
}

func extractXLSX(data []byte) ([]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var sheets []string
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		sheets = append(sheets, text.String())
	}
	return sheets, nil
}

func extractODS(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %s: %v", ErrExtraction, sheetName, err)
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		sheets = append(sheets, text.String())
	}
	return sheets, nil
}

// extractTaggedText pulls the character content of every <tag ...>...</tag>
// element out of office XML.
func extractTaggedText(xmlContent, tag string) string {
	var text strings.Builder
	open := "<" + tag
	closing := "</" + tag + ">"
	rest := xmlContent
	for {
		idx := strings.Index(rest, open)
		if idx < 0 {
			break
		}
		rest = rest[idx+len(open):]
		// skip matches like <w:tbl> when looking for <w:t>
		if rest != "" && rest[0] != '>' && rest[0] != ' ' {
			continue
		}
		gt := strings.Index(rest, ">")
		if gt < 0 {
			break
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, closing)
		if end < 0 {
			break
		}
		text.WriteString(rest[:end] + " ")
		rest = rest[end+len(closing):]
	}
	return text.String()
}
