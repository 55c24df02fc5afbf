// Package citescan classifies inline author-year citations as linked to the
// document's reference list or orphaned, and produces the decorations the
// editor renders for them.
//
// A scan always covers the whole document. Documents are essay sized, so the
// scan is rerun on every content change rather than patched incrementally.
package citescan

import (
	"regexp"
	"sort"
	"strings"

	"colabwize/api/internal/docmodel"
)

// Status is the classification of one inline citation.
type Status string

const (
	StatusLinked Status = "linked"
	StatusOrphan Status = "orphan"
)

// SectionKind tells whether a heading opens body text or a reference list.
type SectionKind string

const (
	SectionBody       SectionKind = "BODY"
	SectionReferences SectionKind = "REFERENCE_SECTION"
)

var (
	referenceLine  = regexp.MustCompile(`(?m)^[ \t]*([A-Z][a-zA-Z\s]+)(?:,|\.)`)
	inlineCitation = regexp.MustCompile(`\(([A-Z][a-zA-Z\s]+)(?: et al\.?)?,?\s*(19|20)\d{2}\)`)

	referenceHeadingWords = []string{"reference", "bibliography", "works cited"}
)

// Mention is one inline citation found in body text.
type Mention struct {
	Range  docmodel.Range `json:"range"`
	Text   string         `json:"text"`
	Author string         `json:"author"`
	Status Status         `json:"status"`
}

// Section is a heading and the kind of section it opens.
type Section struct {
	Title string      `json:"title"`
	Kind  SectionKind `json:"kind"`
	Pos   int         `json:"pos"`
}

// Result is the outcome of scanning one document.
type Result struct {
	References  []string     `json:"references"`
	Mentions    []Mention    `json:"mentions"`
	Decorations []Decoration `json:"decorations"`
	Sections    []Section    `json:"sections"`
}

// Stats counts mentions by status.
type Stats struct {
	Linked int `json:"linked"`
	Orphan int `json:"orphan"`
}

// Stats counts the mentions in r by status.
func (r Result) Stats() Stats {
	var s Stats
	for _, m := range r.Mentions {
		if m.Status == StatusLinked {
			s.Linked++
		} else {
			s.Orphan++
		}
	}
	return s
}

// ReferenceSet holds lower-cased author tokens from the reference section.
type ReferenceSet map[string]struct{}

// Links reports whether author matches an entry. Matching is substring
// containment in either direction so "smith" and "smith et al" link.
func (s ReferenceSet) Links(author string) bool {
	for ref := range s {
		if strings.Contains(ref, author) || strings.Contains(author, ref) {
			return true
		}
	}
	return false
}

// Sorted returns the entries in lexical order.
func (s ReferenceSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for ref := range s {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// IsReferenceHeading reports whether a heading title opens a reference list.
func IsReferenceHeading(title string) bool {
	lower := strings.ToLower(title)
	for _, word := range referenceHeadingWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// Scan walks doc once, collecting reference entries and inline mentions, and
// then classifies every mention against the finished reference set.
func Scan(doc *docmodel.Node) Result {
	var (
		inReferences bool
		refText      strings.Builder
		mentions     []Mention
		sections     []Section
	)

	doc.Descendants(func(n *docmodel.Node, pos int) bool {
		switch {
		case n.Kind == docmodel.KindHeading:
			title := n.TextContent()
			inReferences = IsReferenceHeading(title)
			kind := SectionBody
			if inReferences {
				kind = SectionReferences
			}
			sections = append(sections, Section{Title: title, Kind: kind, Pos: pos})
			if inReferences {
				return false
			}
			mentions = append(mentions, scanBlock(n, pos)...)
			return false
		case n.IsTextblock():
			if inReferences {
				refText.WriteString(n.TextBetween(0, n.ContentSize(), "", "\n"))
				refText.WriteByte('\n')
			} else {
				mentions = append(mentions, scanBlock(n, pos)...)
			}
			return false
		case n.IsLeaf():
			return false
		}
		return true
	})

	refs := ExtractReferences(refText.String())
	result := Result{
		References:  refs.Sorted(),
		Mentions:    make([]Mention, 0, len(mentions)),
		Decorations: make([]Decoration, 0, len(mentions)),
		Sections:    sections,
	}
	for _, m := range mentions {
		m.Status = StatusOrphan
		if refs.Links(m.Author) {
			m.Status = StatusLinked
		}
		result.Mentions = append(result.Mentions, m)
		result.Decorations = append(result.Decorations, decorationFor(m))
	}
	return result
}

// ExtractReferences applies the reference-line pattern to text, one entry per
// line start.
func ExtractReferences(text string) ReferenceSet {
	set := make(ReferenceSet)
	for _, m := range referenceLine.FindAllStringSubmatch(text, -1) {
		if author := strings.ToLower(strings.TrimSpace(m[1])); author != "" {
			set[author] = struct{}{}
		}
	}
	return set
}

// scanBlock finds inline citations in one textblock. The block is flattened
// first so a citation split across formatting marks is still matched.
func scanBlock(block *docmodel.Node, pos int) []Mention {
	flat := block.FlattenContent(pos + 1)
	var out []Mention
	for _, idx := range inlineCitation.FindAllStringSubmatchIndex(flat.Text, -1) {
		r, ok := flat.Range(idx[0], idx[1])
		if !ok {
			continue
		}
		out = append(out, Mention{
			Range:  r,
			Text:   flat.Text[idx[0]:idx[1]],
			Author: strings.ToLower(strings.TrimSpace(flat.Text[idx[2]:idx[3]])),
		})
	}
	return out
}
