// Package docimport converts uploaded files into editor documents so they
// can be stored, scanned and audited like documents written in the editor.
package docimport

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"colabwize/api/internal/citescan"
	"colabwize/api/internal/docmodel"
)

var (
	// ErrUnsupportedType is returned for file extensions with no parser.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEmptyDocument is returned when a file yields no text.
	ErrEmptyDocument = errors.New("document has no text")
)

// Parser converts raw file bytes into an editor document.
type Parser interface {
	Parse(r io.Reader, filename string) (*Result, error)
}

// Result is an imported document.
type Result struct {
	Title string
	Doc   *docmodel.Node
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Import parses r with the parser for filename and rejects documents with no
// text.
func Import(r io.Reader, filename string) (*Result, error) {
	p, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	res, err := p.Parse(r, filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Doc.TextContent()) == "" {
		return nil, ErrEmptyDocument
	}
	if strings.TrimSpace(res.Title) == "" {
		res.Title = "Untitled"
	}
	return res, nil
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// maxHeadingLength bounds the single-line paragraphs treated as headings in
// formats without markup.
const maxHeadingLength = 60

// looksLikeReferenceHeading reports whether a lone line in unstructured text
// reads as a reference list title rather than a sentence.
func looksLikeReferenceHeading(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) <= maxHeadingLength &&
		!strings.HasSuffix(line, ".") &&
		citescan.IsReferenceHeading(line)
}

// blocksFromPlainText turns blank-line separated paragraphs into blocks.
// Lines inside a paragraph are joined with spaces, except below a reference
// heading where every line is its own entry. A reference heading may open a
// paragraph or stand alone.
func blocksFromPlainText(text string) []*docmodel.Node {
	var (
		blocks       []*docmodel.Node
		inReferences bool
	)
	for _, para := range splitParagraphs(text) {
		lines := strings.Split(para, "\n")
		if looksLikeReferenceHeading(lines[0]) {
			blocks = append(blocks, docmodel.Heading(2, docmodel.Text(lines[0])))
			inReferences = true
			lines = lines[1:]
			if len(lines) == 0 {
				continue
			}
		}
		if inReferences {
			for _, line := range lines {
				blocks = append(blocks, docmodel.Paragraph(docmodel.Text(line)))
			}
			continue
		}
		blocks = append(blocks, docmodel.Paragraph(docmodel.Text(strings.Join(lines, " "))))
	}
	return blocks
}

// splitParagraphs splits text on blank lines, trimming each line and
// dropping empty paragraphs.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return paragraphs
}
