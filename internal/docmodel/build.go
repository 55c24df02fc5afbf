package docmodel

// Doc builds a document root.
func Doc(children ...*Node) *Node {
	return container(KindDoc, children)
}

// Paragraph builds a paragraph.
func Paragraph(children ...*Node) *Node {
	return container(KindParagraph, children)
}

// Heading builds a heading of the given level.
func Heading(level int, children ...*Node) *Node {
	n := container(KindHeading, children)
	n.Level = level
	return n
}

// Blockquote builds a blockquote.
func Blockquote(children ...*Node) *Node {
	return container(KindBlockquote, children)
}

// BulletList builds an unordered list.
func BulletList(items ...*Node) *Node {
	return container(KindBulletList, items)
}

// OrderedList builds an ordered list.
func OrderedList(items ...*Node) *Node {
	return container(KindOrderedList, items)
}

// ListItem builds a list item.
func ListItem(children ...*Node) *Node {
	return container(KindListItem, children)
}

// Text builds a text run carrying the named marks.
func Text(text string, marks ...string) *Node {
	n := &Node{Kind: KindText, TypeName: "text", Text: text}
	for _, mark := range marks {
		n.Marks = append(n.Marks, Mark{Type: mark})
	}
	return n
}

// CodeBlock builds a code block holding text verbatim.
func CodeBlock(text string) *Node {
	if text == "" {
		return container(KindCodeBlock, nil)
	}
	return container(KindCodeBlock, []*Node{Text(text)})
}

// Link builds a text run carrying a link mark to href.
func Link(text, href string) *Node {
	n := Text(text)
	n.Marks = []Mark{{Type: "link", Attrs: map[string]any{"href": href}}}
	return n
}

// HardBreak builds an inline line break.
func HardBreak() *Node {
	return &Node{Kind: KindHardBreak, TypeName: "hardBreak"}
}

// HorizontalRule builds a block rule.
func HorizontalRule() *Node {
	return &Node{Kind: KindHorizontalRule, TypeName: "horizontalRule"}
}

func container(kind Kind, children []*Node) *Node {
	return &Node{Kind: kind, TypeName: kind.String(), Children: children}
}
