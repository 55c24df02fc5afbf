// Package export renders stored documents as a citation report: the
// document as HTML with every scanned citation highlighted, followed by a
// summary of linked and orphaned mentions.
package export

import (
	"errors"
	"fmt"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat accepts "html", "pdf", "docx" or empty for HTML.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF, FormatDOCX:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

// Request contains parameters for an export operation
type Request struct {
	OwnerID    string
	DocumentID string
	Format     Format
}

// Document is the stored document a report is rendered from.
type Document struct {
	ID        string
	Title     string
	Content   []byte // editor JSON
	UpdatedAt time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrContentUnavailable indicates document content could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrUnsupportedFormat is returned for formats other than HTML, PDF and DOCX.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates no Chromium binary is available.
	ErrPDFDependencyMissing = errors.New("pdf export dependency missing")
	// ErrDOCXDependencyMissing indicates pandoc is not installed.
	ErrDOCXDependencyMissing = errors.New("docx export dependency missing")
)
