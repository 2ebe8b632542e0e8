package extract

import (
	"path/filepath"
	"strings"
)

// mimeByExtension maps lowercase file extensions to MIME types. A fixed table
// keeps detection independent of the host's mime database.
var mimeByExtension = map[string]string{
	".pdf":  MimePDF,
	".doc":  MimeDoc,
	".docx": MimeDocx,
	".xls":  MimeXls,
	".xlsx": MimeXlsx,
	".txt":  "text/plain",
	".md":   "text/markdown",
	".rst":  "text/x-rst",
	".csv":  "text/csv",
	".html": "text/html",
	".json": "application/json",
}

// DetectMIME guesses the MIME type of filename from its extension.
// Unknown extensions map to application/octet-stream.
func DetectMIME(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if m, ok := mimeByExtension[ext]; ok {
		return m
	}
	return MimeOctet
}
