package docimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"colabwize/api/internal/docmodel"
)

// MarkdownParser handles Markdown files using goldmark. The first level-1
// heading, when it opens the file, becomes the title.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	res := &Result{Title: titleFromFilename(filename)}
	first := root.FirstChild()
	if h, ok := first.(*ast.Heading); ok && h.Level == 1 {
		res.Title = strings.TrimSpace(plainText(h, src))
		first = first.NextSibling()
	}

	c := mdConverter{src: src}
	var blocks []*docmodel.Node
	for n := first; n != nil; n = n.NextSibling() {
		blocks = append(blocks, c.block(n)...)
	}
	res.Doc = docmodel.Doc(blocks...)
	return res, nil
}

type mdConverter struct {
	src []byte
}

func (c mdConverter) block(n ast.Node) []*docmodel.Node {
	switch node := n.(type) {
	case *ast.Heading:
		return []*docmodel.Node{docmodel.Heading(node.Level, c.inlines(node, nil)...)}
	case *ast.Paragraph, *ast.TextBlock:
		return []*docmodel.Node{docmodel.Paragraph(c.inlines(node, nil)...)}
	case *ast.Blockquote:
		return []*docmodel.Node{docmodel.Blockquote(c.children(node)...)}
	case *ast.List:
		var items []*docmodel.Node
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			items = append(items, docmodel.ListItem(c.children(item)...))
		}
		if node.IsOrdered() {
			return []*docmodel.Node{docmodel.OrderedList(items...)}
		}
		return []*docmodel.Node{docmodel.BulletList(items...)}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return []*docmodel.Node{docmodel.CodeBlock(strings.TrimRight(c.lines(node), "\n"))}
	case *ast.ThematicBreak:
		return []*docmodel.Node{docmodel.HorizontalRule()}
	case *ast.HTMLBlock:
		return nil
	}
	if n.HasChildren() {
		return c.children(n)
	}
	return nil
}

func (c mdConverter) children(n ast.Node) []*docmodel.Node {
	var out []*docmodel.Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		out = append(out, c.block(child)...)
	}
	return out
}

func (c mdConverter) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(c.src))
	}
	return b.String()
}

// inlines converts the inline children of n, carrying marks down from
// emphasis and code spans.
func (c mdConverter) inlines(n ast.Node, marks []string) []*docmodel.Node {
	var out []*docmodel.Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch node := child.(type) {
		case *ast.Text:
			out = appendText(out, string(node.Segment.Value(c.src)), marks)
			if node.HardLineBreak() {
				out = append(out, docmodel.HardBreak())
			} else if node.SoftLineBreak() {
				out = appendText(out, " ", marks)
			}
		case *ast.String:
			out = appendText(out, string(node.Value), marks)
		case *ast.Emphasis:
			mark := "italic"
			if node.Level >= 2 {
				mark = "bold"
			}
			out = append(out, c.inlines(node, withMark(marks, mark))...)
		case *ast.CodeSpan:
			out = appendText(out, plainText(node, c.src), withMark(marks, "code"))
		case *ast.Link:
			href := string(node.Destination)
			for _, inner := range c.inlines(node, marks) {
				if inner.Kind == docmodel.KindText {
					inner.Marks = append(inner.Marks, docmodel.Mark{Type: "link", Attrs: map[string]any{"href": href}})
				}
				out = append(out, inner)
			}
		case *ast.AutoLink:
			url := string(node.URL(c.src))
			out = append(out, docmodel.Link(url, url))
		case *ast.RawHTML:
		default:
			out = append(out, c.inlines(node, marks)...)
		}
	}
	return out
}

func withMark(marks []string, mark string) []string {
	out := make([]string, 0, len(marks)+1)
	out = append(out, marks...)
	return append(out, mark)
}

// appendText adds s as a text run, merging with the previous run when the
// marks match.
func appendText(out []*docmodel.Node, s string, marks []string) []*docmodel.Node {
	if s == "" {
		return out
	}
	if n := len(out); n > 0 && out[n-1].Kind == docmodel.KindText && sameMarks(out[n-1].Marks, marks) {
		out[n-1].Text += s
		return out
	}
	return append(out, docmodel.Text(s, marks...))
}

func sameMarks(have []docmodel.Mark, want []string) bool {
	if len(have) != len(want) {
		return false
	}
	for i, m := range have {
		if m.Type != want[i] || m.Attrs != nil {
			return false
		}
	}
	return true
}

// plainText concatenates the text segments below n.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
