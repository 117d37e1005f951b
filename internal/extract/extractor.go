// Package extract turns uploaded documents into plain text for chunking.
package extract

import (
	"bytes"
	"path/filepath"
	"strings"
)

var pdfMagic = []byte("%PDF-")

// Extractor extracts plain text from uploaded files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractBytes extracts text from content, choosing the format from filename's extension.
// PDF pages are joined with a single space. DOCX paragraphs and XLSX sheets are separated
// by blank lines so the paragraph strategy can split on them. Anything else is decoded as
// UTF-8; a PDF uploaded without an extension is recognised by its header.
func (e *Extractor) ExtractBytes(content []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case "":
		if bytes.HasPrefix(content, pdfMagic) {
			return extractPDF(content)
		}
		return extractPlain(content)
	default:
		return extractPlain(content)
	}
}
