// Package parser extracts plain text from uploaded files.
package parser

import (
	"context"
	"path/filepath"
	"strings"
)

// DefaultMaxFileSize is the upload limit when none is configured.
const DefaultMaxFileSize = 20 << 20

// AllowedExtensions lists the accepted upload types.
var AllowedExtensions = []string{".txt", ".pdf", ".docx", ".xlsx", ".xls", ".csv"}

// Parser dispatches on file extension.
type Parser struct {
	maxSize int64
	runner  CommandRunner
}

// New creates a parser that rejects files larger than maxSize bytes.
func New(maxSize int64) *Parser {
	return NewWithRunner(maxSize, execRunner{})
}

// NewWithRunner creates a parser with a custom command runner for the pdftotext
// fallback. A nil runner disables the fallback.
func NewWithRunner(maxSize int64, runner CommandRunner) *Parser {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Parser{maxSize: maxSize, runner: runner}
}

// Extract returns the text content of data. Failures are *domain.ExtractionError.
func (p *Parser) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !Supported(filename) {
		return "", extractionError(filename, "unsupported file type %q", ext)
	}
	if len(data) == 0 {
		return "", extractionError(filename, "file is empty")
	}
	if int64(len(data)) > p.maxSize {
		return "", extractionError(filename, "file exceeds %d MB limit", p.maxSize>>20)
	}

	switch ext {
	case ".txt":
		return decodeText(filename, data)
	case ".csv":
		return parseCSV(filename, data)
	case ".docx":
		return parseDOCX(filename, data)
	case ".xlsx":
		return parseXLSX(filename, data)
	case ".xls":
		return parseXLS(filename, data)
	case ".pdf":
		return p.parsePDF(ctx, filename, data)
	default:
		return "", extractionError(filename, "no parser for %s files", ext)
	}
}

// Supported reports whether the file extension is accepted.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}
