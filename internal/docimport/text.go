package docimport

import (
	"fmt"
	"io"

	"colabwize/api/internal/docmodel"
)

// TextParser handles plain text files.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return &Result{
		Title: titleFromFilename(filename),
		Doc:   docmodel.Doc(blocksFromPlainText(string(data))...),
	}, nil
}
