package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

const (
	FileTypePDF     = "pdf"
	FileTypeDocx    = "docx"
	FileTypeText    = "txt"
	FileTypeUnknown = "unknown"
)

// Extract converts raw uploaded bytes into normalized plain text plus a
// detected file-type tag, dispatching on the filename extension.
// Extensions without a dedicated extractor fall back to a plain decode
// tagged "unknown". Failures are wrapped with the filename and returned
// as ErrExtraction.
func Extract(content []byte, filename string) (string, string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	var (
		text     string
		fileType string
		err      error
	)
	switch ext {
	case "pdf":
		text, err = extractPDF(content)
		fileType = FileTypePDF
	case "docx", "doc":
		text, err = extractDocx(content)
		fileType = FileTypeDocx
	case "txt", "md", "text":
		text = decodePlain(content)
		fileType = FileTypeText
	default:
		text = decodePlain(content)
		fileType = FileTypeUnknown
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: extract text from %s: %v", appErr.ErrExtraction, filename, err)
	}
	return text, fileType, nil
}
