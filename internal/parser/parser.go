// Package parser extracts plain text from uploaded files. The chunker
// downstream works on the extracted text, so all formats normalize to
// one string here.
package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"document-qa/internal/models"
)

// Extensions lists the supported upload extensions, lowercase with dot.
var Extensions = []string{".pdf", ".txt", ".md", ".docx", ".xlsx", ".ods"}

// Parse extracts the text of the file at path and reports its
// canonical file type tag.
func Parse(path string) (text string, fileType string, err error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err = parsePDF(path)
		return text, models.FileTypePDF, err
	case ".txt":
		text, err = parseText(path)
		return text, models.FileTypeText, err
	case ".md":
		text, err = parseMarkdown(path)
		return text, models.FileTypeText, err
	case ".docx":
		text, err = parseDOCX(path)
		return text, models.FileTypeDocx, err
	case ".xlsx":
		text, err = parseXLSX(path)
		return text, models.FileTypeXLSX, err
	case ".ods":
		text, err = parseODS(path)
		return text, models.FileTypeXLSX, err
	default:
		return "", "", fmt.Errorf("unsupported file format: %s", ext)
	}
}

func parsePDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return normalize(text.String()), nil
}

func parseText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return normalize(string(data)), nil
}

// parseMarkdown renders the markdown and strips the markup, so
// headings and emphasis don't leak into the embedded text.
func parseMarkdown(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(data, &buf); err != nil {
		return "", err
	}
	return normalize(stripTags(buf.String())), nil
}

func parseDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return normalize(r.Editable().GetContent()), nil
}

func parseXLSX(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString("Sheet: " + sheet.Name + "\n")
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
	}
	return normalize(text.String()), nil
}

func parseODS(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString("Sheet: " + sheetName + "\n")
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
	}
	return normalize(text.String()), nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// normalize unifies line endings and collapses runs of blank lines, so
// chunk boundaries don't fall inside formatting noise.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
