package export

import (
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"
	"unicode/utf16"

	"colabwize/api/internal/citescan"
	"colabwize/api/internal/docmodel"
)

// renderer writes a document as HTML, wrapping every decorated text span
// in a <span> carrying the decoration's attributes.
type renderer struct {
	decorations []citescan.Decoration
}

// DocumentToHTML converts a document to HTML, applying decorations by
// editor position.
func DocumentToHTML(doc *docmodel.Node, decorations []citescan.Decoration) string {
	if doc == nil {
		return ""
	}
	sorted := append([]citescan.Decoration(nil), decorations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	r := &renderer{decorations: sorted}
	return r.renderChildren(doc, 0)
}

// renderChildren renders the children of n, whose content starts at start.
func (r *renderer) renderChildren(n *docmodel.Node, start int) string {
	var result strings.Builder
	pos := start
	for _, child := range n.Children {
		result.WriteString(r.renderNode(child, pos))
		pos += child.Size()
	}
	return result.String()
}

// renderNode renders n, which sits directly after position pos.
func (r *renderer) renderNode(n *docmodel.Node, pos int) string {
	switch n.Kind {
	case docmodel.KindParagraph, docmodel.KindTextblock:
		return fmt.Sprintf("<p>%s</p>\n", r.renderChildren(n, pos+1))
	case docmodel.KindHeading:
		level := n.Level
		if level < 1 || level > 6 {
			level = 1
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, r.renderChildren(n, pos+1), level)
	case docmodel.KindBulletList:
		return fmt.Sprintf("<ul>\n%s</ul>\n", r.renderChildren(n, pos+1))
	case docmodel.KindOrderedList:
		return fmt.Sprintf("<ol>\n%s</ol>\n", r.renderChildren(n, pos+1))
	case docmodel.KindListItem:
		return fmt.Sprintf("<li>%s</li>\n", r.renderChildren(n, pos+1))
	case docmodel.KindBlockquote:
		return fmt.Sprintf("<blockquote>\n%s</blockquote>\n", r.renderChildren(n, pos+1))
	case docmodel.KindCodeBlock:
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", r.renderChildren(n, pos+1))
	case docmodel.KindText:
		return r.renderText(n, pos)
	case docmodel.KindHardBreak:
		return "<br>"
	case docmodel.KindInlineAtom:
		label, _ := n.Attrs["latex"].(string)
		if label == "" {
			label = n.TypeName
		}
		return fmt.Sprintf(`<span class="inline-atom" data-type="%s">%s</span>`, html.EscapeString(n.TypeName), html.EscapeString(label))
	case docmodel.KindCitation:
		label, _ := n.Attrs["text"].(string)
		if label == "" {
			label = "Citation"
		}
		return fmt.Sprintf(`<span class="citation-chip">%s</span>`, html.EscapeString(label))
	case docmodel.KindTable:
		return fmt.Sprintf("<table>\n%s</table>\n", r.renderChildren(n, pos+1))
	case docmodel.KindTableRow:
		return fmt.Sprintf("<tr>\n%s</tr>\n", r.renderChildren(n, pos+1))
	case docmodel.KindTableCell:
		return fmt.Sprintf("<td>%s</td>\n", r.renderChildren(n, pos+1))
	case docmodel.KindTableHeader:
		return fmt.Sprintf("<th>%s</th>\n", r.renderChildren(n, pos+1))
	case docmodel.KindHorizontalRule:
		return "<hr>\n"
	case docmodel.KindImage:
		src, _ := n.Attrs["src"].(string)
		alt, _ := n.Attrs["alt"].(string)
		return fmt.Sprintf(`<img src="%s" alt="%s">`+"\n", html.EscapeString(src), html.EscapeString(alt))
	default:
		// Unknown node type - render content if any
		return r.renderChildren(n, pos+1)
	}
}

// renderText splits a text node at decoration boundaries. Positions are in
// UTF-16 units, so the split happens on the encoded form.
func (r *renderer) renderText(n *docmodel.Node, pos int) string {
	units := utf16.Encode([]rune(n.Text))
	end := pos + len(units)

	cuts := []int{pos, end}
	for _, d := range r.decorations {
		if d.To <= pos || d.From >= end {
			continue
		}
		if d.From > pos {
			cuts = append(cuts, d.From)
		}
		if d.To < end {
			cuts = append(cuts, d.To)
		}
	}
	sort.Ints(cuts)

	var result strings.Builder
	for i := 0; i+1 < len(cuts); i++ {
		from, to := cuts[i], cuts[i+1]
		if from == to {
			continue
		}
		chunk := string(utf16.Decode(units[from-pos : to-pos]))
		text := renderTextWithMarks(chunk, n.Marks)
		if d, ok := r.covering(from, to); ok {
			text = wrapDecoration(text, d)
		}
		result.WriteString(text)
	}
	return result.String()
}

func (r *renderer) covering(from, to int) (citescan.Decoration, bool) {
	for _, d := range r.decorations {
		if d.From <= from && d.To >= to {
			return d, true
		}
	}
	return citescan.Decoration{}, false
}

func wrapDecoration(text string, d citescan.Decoration) string {
	keys := make([]string, 0, len(d.Attrs))
	for k := range d.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<span")
	for _, k := range keys {
		fmt.Fprintf(&b, ` %s="%s"`, html.EscapeString(k), html.EscapeString(d.Attrs[k]))
	}
	b.WriteString(">")
	b.WriteString(text)
	b.WriteString("</span>")
	return b.String()
}

// renderTextWithMarks renders text with formatting marks
func renderTextWithMarks(text string, marks []docmodel.Mark) string {
	if text == "" {
		return ""
	}

	htmlText := html.EscapeString(text)

	// Apply marks from outside in
	for i := len(marks) - 1; i >= 0; i-- {
		mark := marks[i]
		switch mark.Type {
		case "bold":
			htmlText = fmt.Sprintf("<strong>%s</strong>", htmlText)
		case "italic":
			htmlText = fmt.Sprintf("<em>%s</em>", htmlText)
		case "code":
			htmlText = fmt.Sprintf("<code>%s</code>", htmlText)
		case "link":
			href, _ := mark.Attrs["href"].(string)
			if safeHref(href) {
				htmlText = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), htmlText)
			}
		case "strike":
			htmlText = fmt.Sprintf("<s>%s</s>", htmlText)
		case "underline":
			htmlText = fmt.Sprintf("<u>%s</u>", htmlText)
		case "citation":
			htmlText = fmt.Sprintf(`<cite>%s</cite>`, htmlText)
		}
	}

	return htmlText
}

// safeHref reports whether href is an absolute http, https or mailto URL.
// Anything else is rendered as plain text.
func safeHref(href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return true
	}
	return false
}
