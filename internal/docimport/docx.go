package docimport

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"colabwize/api/internal/docmodel"
)

// DOCXParser handles .docx files. Heading styles become headings; every
// other paragraph becomes a paragraph.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	res := &Result{Title: titleFromFilename(filename)}
	var blocks []*docmodel.Node
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		style := docxStyle(para)
		if strings.EqualFold(style, "Title") {
			res.Title = text
			continue
		}
		level := docxHeadingLevel(style)
		if level == 0 && looksLikeReferenceHeading(text) {
			level = 2
		}
		if level > 0 {
			blocks = append(blocks, docmodel.Heading(level, docmodel.Text(text)))
			continue
		}
		blocks = append(blocks, docmodel.Paragraph(docmodel.Text(text)))
	}
	res.Doc = docmodel.Doc(blocks...)
	return res, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxHeadingLevel(style string) int {
	normalized := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if !strings.HasPrefix(normalized, "heading") || len(normalized) != len("heading")+1 {
		return 0
	}
	level := int(normalized[len("heading")] - '0')
	if level < 1 || level > 6 {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
