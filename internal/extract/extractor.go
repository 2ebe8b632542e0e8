// Package extract provides text extraction from uploaded document content.
package extract

import "strings"

// OOXML and legacy Office MIME types handled by the extractor.
const (
	MimePDF       = "application/pdf"
	MimeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDoc       = "application/msword"
	MimeXlsx      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeXls       = "application/vnd.ms-excel"
	MimeOctet     = "application/octet-stream"
	mimeTextClass = "text/"
)

// Extractor extracts plain text from raw file content keyed by MIME type.
type Extractor interface {
	Extract(content []byte, mimeType string) (string, error)
}

// FileExtractor extracts text from PDF, Word, spreadsheet, and plain-text content.
type FileExtractor struct{}

// NewExtractor returns a new FileExtractor.
func NewExtractor() *FileExtractor {
	return &FileExtractor{}
}

// Extract returns the text content of content. MIME types outside the
// supported set yield an empty string without error; extraction failures for
// supported types are returned as errors.
func (e *FileExtractor) Extract(content []byte, mimeType string) (string, error) {
	switch {
	case mimeType == MimePDF:
		return extractPDF(content)
	case mimeType == MimeDocx || mimeType == MimeDoc:
		return extractWord(content)
	case mimeType == MimeXlsx || mimeType == MimeXls:
		return extractSpreadsheet(content)
	case strings.HasPrefix(mimeType, mimeTextClass):
		return extractPlain(content)
	default:
		return "", nil
	}
}
