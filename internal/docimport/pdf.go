package docimport

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"colabwize/api/internal/docmodel"
)

// PDFParser handles PDF files. Pages are extracted as plain text and split
// into paragraphs on blank lines.
type PDFParser struct{}

func (p *PDFParser) Parse(r io.Reader, filename string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	text, err := extractPDFText(data)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var blocks []*docmodel.Node
	for _, page := range strings.Split(text, "\f") {
		blocks = append(blocks, blocksFromPlainText(page)...)
	}
	return &Result{Title: titleFromFilename(filename), Doc: docmodel.Doc(blocks...)}, nil
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}
