package docmodel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() *Node {
	return Doc(
		Paragraph(Text("Hello "), Text("world", "bold")),
		Heading(2, Text("Refs")),
	)
}

func TestSizes(t *testing.T) {
	doc := sampleDoc()
	assert.Equal(t, 19, doc.ContentSize())
	assert.Equal(t, 13, doc.Children[0].Size())
	assert.Equal(t, 6, doc.Children[1].Size())
	assert.Equal(t, 1, HardBreak().Size())
	assert.Equal(t, 4, Text("a😀b").Size(), "astral runes take two positions")
}

func TestDescendantsPositions(t *testing.T) {
	type visit struct {
		kind Kind
		pos  int
	}
	var got []visit
	sampleDoc().Descendants(func(n *Node, pos int) bool {
		got = append(got, visit{n.Kind, pos})
		return true
	})
	assert.Equal(t, []visit{
		{KindParagraph, 0},
		{KindText, 1},
		{KindText, 7},
		{KindHeading, 13},
		{KindText, 14},
	}, got)
}

func TestDescendantsSkipChildren(t *testing.T) {
	count := 0
	sampleDoc().Descendants(func(n *Node, pos int) bool {
		count++
		return n.Kind != KindParagraph
	})
	assert.Equal(t, 3, count)
}

func TestTextBetween(t *testing.T) {
	doc := sampleDoc()
	tests := []struct {
		name     string
		from, to int
		want     string
	}{
		{name: "whole document", from: 0, to: 19, want: "Hello world\nRefs"},
		{name: "inside one text node", from: 7, to: 12, want: "world"},
		{name: "across marks", from: 3, to: 10, want: "llo wor"},
		{name: "across blocks", from: 10, to: 16, want: "ld\nRe"},
		{name: "empty", from: 5, to: 5, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, doc.TextBetween(tt.from, tt.to, BlockSeparator, LeafText))
		})
	}
}

func TestTextBetweenLeaves(t *testing.T) {
	doc := Doc(Paragraph(Text("ab"), HardBreak(), Text("cd")), HorizontalRule(), Paragraph(Text("ef")))
	assert.Equal(t, "ab\x00cd\n\x00\nef", doc.TextBetween(0, doc.ContentSize(), "\n", "\x00"))
	assert.Equal(t, "abcd\nef", doc.TextBetween(0, doc.ContentSize(), "\n", ""))
}

func TestFlatRange(t *testing.T) {
	flat := sampleDoc().Flatten()
	require.Equal(t, "Hello world\nRefs", flat.Text)

	tests := []struct {
		name       string
		start, end int
		want       Range
		ok         bool
	}{
		{name: "single node", start: 6, end: 11, want: Range{From: 7, To: 12}, ok: true},
		{name: "spans marks", start: 0, end: 11, want: Range{From: 1, To: 12}, ok: true},
		{name: "spans blocks", start: 4, end: 14, want: Range{From: 5, To: 16}, ok: true},
		{name: "trailing separator trimmed", start: 10, end: 12, want: Range{From: 11, To: 12}, ok: true},
		{name: "leading separator trimmed", start: 11, end: 13, want: Range{From: 14, To: 15}, ok: true},
		{name: "only separator", start: 11, end: 12, ok: false},
		{name: "empty interval", start: 3, end: 3, ok: false},
		{name: "out of bounds", start: 0, end: 99, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := flat.Range(tt.start, tt.end)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFlatRangeUnicodeAndLeaves(t *testing.T) {
	doc := Doc(Paragraph(Text("a😀b"), HardBreak(), Text("cd")))
	flat := doc.Flatten()
	require.Equal(t, "a😀b\x00cd", flat.Text)

	b := len("a😀")
	got, ok := flat.Range(b, b+1)
	require.True(t, ok)
	assert.Equal(t, Range{From: 4, To: 5}, got)

	got, ok = flat.Range(0, len(flat.Text))
	require.True(t, ok)
	assert.Equal(t, Range{From: 1, To: 8}, got)
}

func TestFlattenNestedBlocks(t *testing.T) {
	doc := Doc(BulletList(
		ListItem(Paragraph(Text("one"))),
		ListItem(Paragraph(Text("two"))),
	))
	flat := doc.Flatten()
	require.Equal(t, "one\ntwo", flat.Text)
	got, ok := flat.Range(4, 7)
	require.True(t, ok)
	assert.Equal(t, Range{From: 10, To: 13}, got)
	assert.True(t, flat.CrossesSeparator(2, 5))
	assert.False(t, flat.CrossesSeparator(4, 7))
}

func TestFlattenContentUsesBase(t *testing.T) {
	doc := sampleDoc()
	heading := doc.Children[1]
	flat := heading.FlattenContent(14)
	require.Equal(t, "Refs", flat.Text)
	got, ok := flat.Range(0, 4)
	require.True(t, ok)
	assert.Equal(t, Range{From: 14, To: 18}, got)
	assert.Equal(t, "Refs", doc.TextBetween(got.From, got.To, BlockSeparator, LeafText))
}

func TestParse(t *testing.T) {
	raw := []byte(`{
		"type": "doc",
		"content": [
			{"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Intro"}]},
			{"type": "paragraph", "content": [
				{"type": "text", "text": "Plain "},
				{"type": "text", "text": "bold", "marks": [{"type": "bold"}]},
				{"type": "mystery", "content": [{"type": "text", "text": "!"}]}
			]},
			{"type": "paragraph"}
		]
	}`)
	doc, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, doc.Children, 3)

	heading := doc.Children[0]
	assert.Equal(t, KindHeading, heading.Kind)
	assert.Equal(t, 2, heading.Level)
	assert.Equal(t, "Intro", heading.TextContent())

	para := doc.Children[1]
	require.Len(t, para.Children, 3)
	assert.Equal(t, []Mark{{Type: "bold"}}, para.Children[1].Marks)
	assert.Equal(t, KindUnknown, para.Children[2].Kind)
	assert.Equal(t, "mystery", para.Children[2].TypeName)
	assert.Equal(t, 2, doc.Children[2].Size())
}

func TestParseRejectsNonDocument(t *testing.T) {
	_, err := Parse([]byte(`{"type":"paragraph"}`))
	assert.ErrorIs(t, err, ErrNotDocument)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	doc := sampleDoc()
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, doc.ContentSize(), back.ContentSize())
	assert.Equal(t, 2, back.Children[1].Level)
	assert.Equal(t, doc.TextBetween(0, doc.ContentSize(), "\n", ""), back.TextBetween(0, back.ContentSize(), "\n", ""))
}

func TestParseSchemaExtensions(t *testing.T) {
	raw := []byte(`{
		"type": "doc",
		"content": [
			{"type": "paragraph", "content": [{"type": "text", "text": "alpha"}]},
			{"type": "author", "attrs": {"name": "Ann"}, "content": [{"type": "text", "text": "beta"}]},
			{"type": "code-block", "content": [{"type": "text", "text": "gamma"}]},
			{"type": "pullQuote", "content": [{"type": "text", "text": "delta"}]},
			{"type": "cover-page", "content": [
				{"type": "paragraph", "content": [{"type": "text", "text": "eps"}]}
			]}
		]
	}`)
	doc, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, doc.Children, 5)

	assert.Equal(t, KindTextblock, doc.Children[1].Kind)
	assert.Equal(t, KindCodeBlock, doc.Children[2].Kind)
	assert.Equal(t, "code-block", doc.Children[2].TypeName)
	assert.Equal(t, KindTextblock, doc.Children[3].Kind, "unknown block with inline content")
	assert.Equal(t, KindUnknown, doc.Children[4].Kind, "unknown block with block content")

	assert.Equal(t, "alpha\nbeta\ngamma\ndelta\neps", doc.Flatten().Text)
}

func TestParseInlineAtoms(t *testing.T) {
	raw := []byte(`{
		"type": "doc",
		"content": [
			{"type": "paragraph", "content": [
				{"type": "text", "text": "a"},
				{"type": "math", "attrs": {"latex": "x^2"}},
				{"type": "text", "text": "bc"},
				{"type": "emoji", "attrs": {"name": "smile"}}
			]}
		]
	}`)
	doc, err := Parse(raw)
	require.NoError(t, err)

	para := doc.Children[0]
	assert.Equal(t, KindInlineAtom, para.Children[1].Kind)
	assert.Equal(t, KindInlineAtom, para.Children[3].Kind)
	assert.Equal(t, 1, para.Children[1].Size())
	assert.Equal(t, 5, para.ContentSize())
	assert.Equal(t, 7, doc.ContentSize())

	flat := doc.Flatten()
	assert.Equal(t, "a"+LeafText+"bc"+LeafText, flat.Text)
	got, ok := flat.Range(2, 4)
	require.True(t, ok)
	assert.Equal(t, Range{From: 3, To: 5}, got)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "codeBlock", KindCodeBlock.String())
	assert.Equal(t, "codeBlock", CodeBlock("x").TypeName)
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.True(t, KindInlineAtom.IsInline())
	assert.False(t, KindTextblock.IsInline())
}
