package docimport

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"colabwize/api/internal/docmodel"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	res := &Result{Title: titleFromFilename(filename)}
	if title := findTitle(doc); title != "" {
		res.Title = title
	}

	root := doc
	if body := findBody(doc); body != nil {
		root = body
	}
	res.Doc = docmodel.Doc(htmlBlocks(root)...)
	return res, nil
}

// htmlBlocks converts the block-level content below n. Inline content found
// directly inside a container is wrapped in a paragraph.
func htmlBlocks(n *html.Node) []*docmodel.Node {
	var (
		blocks []*docmodel.Node
		loose  []*docmodel.Node
	)
	flush := func() {
		if len(loose) > 0 {
			blocks = append(blocks, docmodel.Paragraph(trimInlines(loose)...))
			loose = nil
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if strings.TrimSpace(c.Data) != "" {
				loose = append(loose, htmlInlines(c, nil)...)
			}
			continue
		}
		if c.Type != html.ElementNode {
			continue
		}
		if level := headingLevel(c.Data); level > 0 {
			flush()
			blocks = append(blocks, docmodel.Heading(level, trimInlines(htmlInlines(c, nil))...))
			continue
		}
		switch c.Data {
		case "script", "style", "nav", "footer", "header", "noscript":
		case "p":
			flush()
			if inl := trimInlines(htmlInlines(c, nil)); len(inl) > 0 {
				blocks = append(blocks, docmodel.Paragraph(inl...))
			}
		case "ul", "ol":
			flush()
			var items []*docmodel.Node
			for li := c.FirstChild; li != nil; li = li.NextSibling {
				if li.Type == html.ElementNode && li.Data == "li" {
					items = append(items, docmodel.ListItem(htmlBlocks(li)...))
				}
			}
			if c.Data == "ol" {
				blocks = append(blocks, docmodel.OrderedList(items...))
			} else {
				blocks = append(blocks, docmodel.BulletList(items...))
			}
		case "blockquote":
			flush()
			blocks = append(blocks, docmodel.Blockquote(htmlBlocks(c)...))
		case "pre":
			flush()
			blocks = append(blocks, docmodel.CodeBlock(strings.TrimRight(textContent(c), "\n")))
		case "hr":
			flush()
			blocks = append(blocks, docmodel.HorizontalRule())
		case "div", "section", "article", "main", "td", "th", "table", "tbody", "thead", "tr":
			flush()
			blocks = append(blocks, htmlBlocks(c)...)
		default:
			loose = append(loose, htmlInlines(c, nil)...)
		}
	}
	flush()
	return blocks
}

// htmlInlines converts inline content, collapsing whitespace the way a
// browser would.
func htmlInlines(n *html.Node, marks []string) []*docmodel.Node {
	if n.Type == html.TextNode {
		return appendText(nil, collapseSpace(n.Data), marks)
	}
	if n.Type != html.ElementNode {
		return nil
	}
	switch n.Data {
	case "br":
		return []*docmodel.Node{docmodel.HardBreak()}
	case "script", "style":
		return nil
	case "b", "strong":
		marks = withMark(marks, "bold")
	case "i", "em":
		marks = withMark(marks, "italic")
	case "code":
		marks = withMark(marks, "code")
	case "s", "del", "strike":
		marks = withMark(marks, "strike")
	case "u":
		marks = withMark(marks, "underline")
	}
	var out []*docmodel.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		for _, inner := range htmlInlines(c, marks) {
			if inner.Kind == docmodel.KindText && len(out) > 0 {
				last := out[len(out)-1]
				if last.Kind == docmodel.KindText && sameMarks(last.Marks, markTypes(inner.Marks)) && !hasAttrs(inner.Marks) {
					last.Text += inner.Text
					continue
				}
			}
			out = append(out, inner)
		}
	}
	if n.Data == "a" {
		href := attr(n, "href")
		for _, inner := range out {
			if inner.Kind == docmodel.KindText && href != "" {
				inner.Marks = append(inner.Marks, docmodel.Mark{Type: "link", Attrs: map[string]any{"href": href}})
			}
		}
	}
	return out
}

func markTypes(marks []docmodel.Mark) []string {
	out := make([]string, len(marks))
	for i, m := range marks {
		out[i] = m.Type
	}
	return out
}

func hasAttrs(marks []docmodel.Mark) bool {
	for _, m := range marks {
		if m.Attrs != nil {
			return true
		}
	}
	return false
}

// trimInlines drops leading and trailing whitespace from a run of inlines.
func trimInlines(nodes []*docmodel.Node) []*docmodel.Node {
	for len(nodes) > 0 && nodes[0].Kind == docmodel.KindText {
		nodes[0].Text = strings.TrimLeft(nodes[0].Text, " ")
		if nodes[0].Text != "" {
			break
		}
		nodes = nodes[1:]
	}
	for len(nodes) > 0 && nodes[len(nodes)-1].Kind == docmodel.KindText {
		last := nodes[len(nodes)-1]
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text != "" {
			break
		}
		nodes = nodes[:len(nodes)-1]
	}
	return nodes
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == '\f' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return strings.TrimSpace(textContent(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
