package audit

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"colabwize/api/internal/citescan"
	"colabwize/api/internal/docmodel"
)

// Style is a citation style the backend can audit against.
type Style string

const (
	StyleAPA     Style = "APA"
	StyleMLA     Style = "MLA"
	StyleIEEE    Style = "IEEE"
	StyleChicago Style = "Chicago"
)

var styles = []Style{StyleAPA, StyleMLA, StyleIEEE, StyleChicago}

// ParseStyle matches s case-insensitively against the supported styles.
func ParseStyle(s string) (Style, error) {
	for _, style := range styles {
		if strings.EqualFold(s, string(style)) {
			return style, nil
		}
	}
	return "", fmt.Errorf("unsupported citation style %q", s)
}

// minParagraphReference is the length a paragraph in the reference section
// must exceed to count as an entry.
const minParagraphReference = 20

// Span is a document position interval.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Section is a heading-delimited part of the document.
type Section struct {
	Title string               `json:"title"`
	Type  citescan.SectionKind `json:"type"`
	Range *Span                `json:"range,omitempty"`
}

// Pattern is a citation signal found in body text. NORMALIZED patterns come
// from citation marks the editor has already resolved.
type Pattern struct {
	PatternType         PatternType          `json:"patternType"`
	Text                string               `json:"text"`
	Start               int                  `json:"start"`
	End                 int                  `json:"end"`
	Section             citescan.SectionKind `json:"section"`
	Context             string               `json:"context,omitempty"`
	CitationID          string               `json:"citationId,omitempty"`
	NormalizationStatus string               `json:"normalizationStatus"`
	Confidence          float64              `json:"confidence"`
}

// ReferenceEntry is one entry of the reference list.
type ReferenceEntry struct {
	Index   int    `json:"index"`
	RawText string `json:"rawText"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// ReferenceList is the reference section of the document.
type ReferenceList struct {
	SectionTitle string           `json:"sectionTitle"`
	Entries      []ReferenceEntry `json:"entries"`
}

// DocumentMeta describes where the document came from.
type DocumentMeta struct {
	Language string `json:"language"`
	Editor   string `json:"editor"`
}

// Request is the payload sent to the audit backend.
type Request struct {
	DeclaredStyle Style          `json:"declaredStyle"`
	DocumentMeta  DocumentMeta   `json:"documentMeta"`
	Sections      []Section      `json:"sections"`
	Patterns      []Pattern      `json:"patterns"`
	ReferenceList *ReferenceList `json:"referenceList"`
}

// Response is the audit backend's success payload.
type Response struct {
	Flags               []Flag               `json:"flags"`
	VerificationResults []VerificationResult `json:"verificationResults,omitempty"`
}

// BuildRequest decomposes doc into sections, reference entries and citation
// patterns. Resolved citation marks come first; regex patterns overlapping
// one of them are dropped.
func BuildRequest(doc *docmodel.Node, style Style) Request {
	req := Request{
		DeclaredStyle: style,
		DocumentMeta:  DocumentMeta{Language: "en", Editor: "tiptap"},
		Sections:      []Section{},
	}
	normalized := normalizedCitations(doc)

	var found []Pattern
	section := citescan.SectionBody
	pos := 0
	for _, block := range doc.Children {
		size := block.Size()
		switch {
		case block.Kind == docmodel.KindHeading:
			title := block.TextContent()
			section = citescan.SectionBody
			if isReferenceTitle(title) {
				section = citescan.SectionReferences
				if req.ReferenceList == nil {
					req.ReferenceList = &ReferenceList{Entries: []ReferenceEntry{}}
				}
				req.ReferenceList.SectionTitle = title
			}
			req.Sections = append(req.Sections, Section{
				Title: title,
				Type:  section,
				Range: &Span{Start: pos, End: pos + size},
			})
		case section == citescan.SectionReferences:
			req.ReferenceList.Entries = appendReferences(req.ReferenceList.Entries, block, pos)
		}
		if section == citescan.SectionBody && !block.IsLeaf() {
			found = append(found, blockPatterns(block, pos, normalized)...)
		}
		pos += size
	}

	req.Patterns = make([]Pattern, 0, len(normalized)+len(found))
	req.Patterns = append(req.Patterns, normalized...)
	req.Patterns = append(req.Patterns, found...)
	return req
}

func isReferenceTitle(title string) bool {
	switch strings.ToLower(strings.TrimSpace(title)) {
	case "references", "works cited", "bibliography":
		return true
	}
	return false
}

func appendReferences(entries []ReferenceEntry, block *docmodel.Node, pos int) []ReferenceEntry {
	switch {
	case block.Kind == docmodel.KindBulletList || block.Kind == docmodel.KindOrderedList:
		itemPos := pos + 1
		for _, item := range block.Children {
			if text := item.TextContent(); strings.TrimSpace(text) != "" {
				r := contentRange(item, itemPos)
				entries = append(entries, ReferenceEntry{Index: len(entries), RawText: text, Start: r.From, End: r.To})
			}
			itemPos += item.Size()
		}
	case block.IsTextblock():
		text := block.TextContent()
		if strings.TrimSpace(text) != "" && utf8.RuneCountInString(text) > minParagraphReference {
			r := contentRange(block, pos)
			entries = append(entries, ReferenceEntry{Index: len(entries), RawText: text, Start: r.From, End: r.To})
		}
	}
	return entries
}

// contentRange is the span of n's text, or of n itself when it has none.
func contentRange(n *docmodel.Node, pos int) docmodel.Range {
	flat := n.FlattenContent(pos + 1)
	if r, ok := flat.Range(0, len(flat.Text)); ok {
		return r
	}
	return docmodel.Range{From: pos, To: pos + n.Size()}
}

func blockPatterns(block *docmodel.Node, pos int, normalized []Pattern) []Pattern {
	flat := block.FlattenContent(pos + 1)
	if strings.TrimSpace(flat.Text) == "" {
		return nil
	}
	var out []Pattern
	for _, m := range detect(flat.Text) {
		r, ok := flat.Range(m.start, m.end)
		if !ok || overlapsAny(r, normalized) {
			continue
		}
		out = append(out, Pattern{
			PatternType:         m.kind,
			Text:                flat.Text[m.start:m.end],
			Start:               r.From,
			End:                 r.To,
			Section:             citescan.SectionBody,
			Context:             m.context,
			NormalizationStatus: "unresolved",
		})
	}
	return out
}

func overlapsAny(r docmodel.Range, patterns []Pattern) bool {
	for _, p := range patterns {
		if (r.From >= p.Start && r.From < p.End) ||
			(r.To > p.Start && r.To <= p.End) ||
			(r.From <= p.Start && r.To >= p.End) {
			return true
		}
	}
	return false
}

// normalizedCitations collects text carrying a citation mark and citation
// chip nodes.
func normalizedCitations(doc *docmodel.Node) []Pattern {
	var out []Pattern
	doc.Descendants(func(n *docmodel.Node, pos int) bool {
		switch {
		case n.IsText():
			for _, mark := range n.Marks {
				if mark.Type != "citation" {
					continue
				}
				out = append(out, normalizedPattern(n.Text, pos, pos+n.Size(), mark.Attrs))
				break
			}
		case n.Kind == docmodel.KindCitation:
			out = append(out, normalizedPattern(attrString(n.Attrs, "text", ""), pos, pos+n.Size(), n.Attrs))
		}
		return true
	})
	return out
}

func normalizedPattern(text string, from, to int, attrs map[string]any) Pattern {
	if text == "" {
		text = "Citation"
	}
	confidence := 1.0
	if v, ok := attrs["confidence"].(float64); ok {
		confidence = v
	}
	return Pattern{
		PatternType:         PatternNormalized,
		Text:                text,
		Start:               from,
		End:                 to,
		Section:             citescan.SectionBody,
		CitationID:          attrString(attrs, "citationId", ""),
		NormalizationStatus: attrString(attrs, "normalizationStatus", "resolved"),
		Confidence:          confidence,
	}
}

func attrString(attrs map[string]any, key, def string) string {
	if v, ok := attrs[key].(string); ok && v != "" {
		return v
	}
	return def
}
