package docmodel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotDocument indicates editor JSON whose root is not a doc node.
var ErrNotDocument = errors.New("document root must be of type doc")

// editorNode mirrors a node in the editor's JSON document format.
type editorNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []editorNode   `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Parse decodes editor JSON into a document tree.
func Parse(data []byte) (*Node, error) {
	var root editorNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if root.Type != "doc" {
		return nil, ErrNotDocument
	}
	return convert(root, false), nil
}

// kindFor resolves the Kind of raw. Type names outside the schema are
// classified by shape: a content-less node inside a textblock is an inline
// atom, and a block whose children are all inline is a textblock. Anything
// else stays a plain container.
func kindFor(raw editorNode, inTextblock bool) Kind {
	kind := KindOf(raw.Type)
	if kind != KindUnknown {
		return kind
	}
	if inTextblock {
		if len(raw.Content) == 0 {
			return KindInlineAtom
		}
		return KindUnknown
	}
	if len(raw.Content) == 0 {
		return KindUnknown
	}
	for _, child := range raw.Content {
		if !KindOf(child.Type).IsInline() {
			return KindUnknown
		}
	}
	return KindTextblock
}

func convert(raw editorNode, inTextblock bool) *Node {
	node := &Node{
		Kind:     kindFor(raw, inTextblock),
		TypeName: raw.Type,
		Attrs:    raw.Attrs,
	}
	switch node.Kind {
	case KindText:
		node.Text = raw.Text
		node.Marks = raw.Marks
		return node
	case KindHeading:
		node.Level = 1
		if lvl, ok := raw.Attrs["level"].(float64); ok {
			node.Level = int(lvl)
		}
	}
	if node.IsLeaf() {
		return node
	}
	node.Children = make([]*Node, 0, len(raw.Content))
	for _, child := range raw.Content {
		if child.Type == "" || (child.Type == "text" && child.Text == "") {
			continue
		}
		node.Children = append(node.Children, convert(child, node.IsTextblock()))
	}
	return node
}

// MarshalJSON writes n back in the editor's JSON format.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toEditor())
}

func (n *Node) toEditor() editorNode {
	raw := editorNode{Type: n.TypeName, Attrs: n.Attrs, Text: n.Text, Marks: n.Marks}
	if raw.Type == "" {
		raw.Type = n.Kind.String()
	}
	if n.Kind == KindHeading && n.Level > 0 {
		attrs := make(map[string]any, len(n.Attrs)+1)
		for k, v := range n.Attrs {
			attrs[k] = v
		}
		attrs["level"] = n.Level
		raw.Attrs = attrs
	}
	for _, child := range n.Children {
		raw.Content = append(raw.Content, child.toEditor())
	}
	return raw
}
