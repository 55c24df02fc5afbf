// Package docmodel is a read-only view of editor documents: a typed node tree
// addressed the same way the editor addresses it.
//
// Every character of a text node consumes one position per UTF-16 code unit,
// every leaf node (hard break, image, citation chip, rule, inline atom)
// consumes one, and every container consumes two (open and close) plus its
// content.
package docmodel

import (
	"strings"
	"unicode/utf16"
)

// Kind discriminates the node variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindDoc
	KindParagraph
	KindHeading
	KindBlockquote
	KindBulletList
	KindOrderedList
	KindListItem
	KindCodeBlock
	KindTable
	KindTableRow
	KindTableCell
	KindTableHeader
	KindHorizontalRule
	KindHardBreak
	KindImage
	KindCitation
	KindText
	// KindTextblock is a block with inline content outside the core schema,
	// such as an author line.
	KindTextblock
	// KindInlineAtom is an inline leaf outside the core schema, such as a
	// math formula.
	KindInlineAtom
)

var kindByName = map[string]Kind{
	"doc":            KindDoc,
	"paragraph":      KindParagraph,
	"heading":        KindHeading,
	"blockquote":     KindBlockquote,
	"bulletList":     KindBulletList,
	"orderedList":    KindOrderedList,
	"listItem":       KindListItem,
	"codeBlock":      KindCodeBlock,
	"code-block":     KindCodeBlock,
	"table":          KindTable,
	"tableRow":       KindTableRow,
	"tableCell":      KindTableCell,
	"tableHeader":    KindTableHeader,
	"horizontalRule": KindHorizontalRule,
	"hardBreak":      KindHardBreak,
	"image":          KindImage,
	"citation":       KindCitation,
	"text":           KindText,
	"author":         KindTextblock,
	"math":           KindInlineAtom,
}

var kindNames = map[Kind]string{
	KindDoc:            "doc",
	KindParagraph:      "paragraph",
	KindHeading:        "heading",
	KindBlockquote:     "blockquote",
	KindBulletList:     "bulletList",
	KindOrderedList:    "orderedList",
	KindListItem:       "listItem",
	KindCodeBlock:      "codeBlock",
	KindTable:          "table",
	KindTableRow:       "tableRow",
	KindTableCell:      "tableCell",
	KindTableHeader:    "tableHeader",
	KindHorizontalRule: "horizontalRule",
	KindHardBreak:      "hardBreak",
	KindImage:          "image",
	KindCitation:       "citation",
	KindText:           "text",
	KindTextblock:      "author",
	KindInlineAtom:     "math",
}

// KindOf maps an editor type name to its Kind. Unrecognised names map to
// KindUnknown; Parse refines those by shape.
func KindOf(typeName string) Kind {
	if kind, ok := kindByName[typeName]; ok {
		return kind
	}
	return KindUnknown
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsInline reports whether nodes of kind k sit inside textblocks.
func (k Kind) IsInline() bool {
	switch k {
	case KindText, KindHardBreak, KindCitation, KindInlineAtom:
		return true
	}
	return false
}

// Mark is inline formatting attached to a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Node is one element of the document tree. Kind selects which of the other
// fields are meaningful: Text and Marks for KindText, Level for KindHeading,
// Children for containers.
type Node struct {
	Kind     Kind
	TypeName string
	Text     string
	Marks    []Mark
	Level    int
	Attrs    map[string]any
	Children []*Node
}

// IsText reports whether n is a text run.
func (n *Node) IsText() bool {
	return n.Kind == KindText
}

// IsLeaf reports whether n has no content of its own.
func (n *Node) IsLeaf() bool {
	switch n.Kind {
	case KindText, KindHardBreak, KindImage, KindCitation, KindHorizontalRule,
		KindInlineAtom:
		return true
	case KindUnknown, KindDoc, KindParagraph, KindHeading, KindBlockquote,
		KindBulletList, KindOrderedList, KindListItem, KindCodeBlock,
		KindTable, KindTableRow, KindTableCell, KindTableHeader, KindTextblock:
		return false
	}
	return false
}

// IsBlock reports whether n belongs to the block group.
func (n *Node) IsBlock() bool {
	switch n.Kind {
	case KindText, KindHardBreak, KindCitation, KindInlineAtom:
		return false
	case KindUnknown, KindDoc, KindParagraph, KindHeading, KindBlockquote,
		KindBulletList, KindOrderedList, KindListItem, KindCodeBlock,
		KindTable, KindTableRow, KindTableCell, KindTableHeader,
		KindHorizontalRule, KindImage, KindTextblock:
		return true
	}
	return true
}

// IsTextblock reports whether n is a block whose content is inline.
func (n *Node) IsTextblock() bool {
	switch n.Kind {
	case KindParagraph, KindHeading, KindCodeBlock, KindTextblock:
		return true
	case KindUnknown, KindDoc, KindBlockquote, KindBulletList, KindOrderedList,
		KindListItem, KindTable, KindTableRow, KindTableCell, KindTableHeader,
		KindHorizontalRule, KindHardBreak, KindImage, KindCitation, KindText,
		KindInlineAtom:
		return false
	}
	return false
}

// Size is the number of positions n occupies in its parent.
func (n *Node) Size() int {
	switch {
	case n.Kind == KindText:
		return unitLen(n.Text)
	case n.IsLeaf():
		return 1
	default:
		return 2 + n.ContentSize()
	}
}

// ContentSize is the number of positions occupied by n's children.
func (n *Node) ContentSize() int {
	size := 0
	for _, child := range n.Children {
		size += child.Size()
	}
	return size
}

// TextContent concatenates the text of every text node below n.
func (n *Node) TextContent() string {
	if n.Kind == KindText {
		return n.Text
	}
	var b strings.Builder
	n.Descendants(func(child *Node, _ int) bool {
		if child.Kind == KindText {
			b.WriteString(child.Text)
		}
		return true
	})
	return b.String()
}

// Descendants calls f for every node below n in document order with the
// position directly before that node, relative to the start of n's content.
// Returning false from f skips the node's children.
func (n *Node) Descendants(f func(node *Node, pos int) bool) {
	n.NodesBetween(0, n.ContentSize(), f)
}

// NodesBetween calls f for every node below n that overlaps [from, to).
func (n *Node) NodesBetween(from, to int, f func(node *Node, pos int) bool) {
	n.nodesBetween(from, to, f, 0)
}

func (n *Node) nodesBetween(from, to int, f func(node *Node, pos int) bool, startPos int) {
	pos := 0
	for _, child := range n.Children {
		if pos >= to {
			break
		}
		end := pos + child.Size()
		if end > from && f(child, startPos+pos) && len(child.Children) > 0 {
			start := pos + 1
			child.nodesBetween(max(0, from-start), min(child.ContentSize(), to-start), f, startPos+start)
		}
		pos = end
	}
}

// TextBetween flattens the content in [from, to). blockSep is written before
// every textblock except the first; leafText stands in for inline leaves.
func (n *Node) TextBetween(from, to int, blockSep, leafText string) string {
	var b strings.Builder
	n.walkText(from, to, blockSep, leafText, 0, func(seg Segment, text string) {
		b.WriteString(text)
	})
	return b.String()
}

// walkText emits the pieces of TextBetween in order together with their
// addressing. base is added to every reported position.
func (n *Node) walkText(from, to int, blockSep, leafText string, base int, emit func(Segment, string)) {
	first := true
	n.NodesBetween(from, to, func(node *Node, pos int) bool {
		var (
			nodeText string
			nodePos  = pos
		)
		switch {
		case node.Kind == KindText:
			lo := max(from, pos) - pos
			nodeText = sliceUnits(node.Text, lo, to-pos)
			nodePos = pos + lo
		case node.IsLeaf():
			nodeText = leafText
		}
		if node.IsBlock() && (node.IsLeaf() && nodeText != "" || node.IsTextblock()) && blockSep != "" {
			if first {
				first = false
			} else {
				emit(Segment{Kind: SegmentSeparator, Pos: -1}, blockSep)
			}
		}
		if nodeText != "" {
			kind := SegmentText
			if node.Kind != KindText {
				kind = SegmentLeaf
			}
			emit(Segment{Kind: kind, Pos: base + nodePos}, nodeText)
		}
		return true
	})
}

// unitLen counts UTF-16 code units, the unit editor positions are measured in.
func unitLen(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if w := utf16.RuneLen(r); w > 0 {
		return w
	}
	return 1
}

// sliceUnits returns the runes of s lying fully within code units [lo, hi).
func sliceUnits(s string, lo, hi int) string {
	if lo <= 0 && hi >= unitLen(s) {
		return s
	}
	var b strings.Builder
	offset := 0
	for _, r := range s {
		w := runeUnits(r)
		if offset >= lo && offset+w <= hi {
			b.WriteRune(r)
		}
		offset += w
		if offset >= hi {
			break
		}
	}
	return b.String()
}
