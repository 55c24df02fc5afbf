// Package textmatch maps plain-text fragments reported by analysis services
// back onto document positions so they can be highlighted in the editor.
//
// Analysis services only ever see the flattened text of a document. The
// needle is whitespace-normalised before searching; the document text is
// searched as-is, so a needle can miss when the document's own whitespace
// differs (for example a double space inside a sentence). Not finding a
// needle is an expected outcome and is reported as an empty result.
package textmatch

import (
	"strings"
	"unicode/utf8"

	"colabwize/api/internal/docmodel"
)

// Normalize collapses whitespace runs to single spaces and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Index is a flattened document prepared for repeated lookups.
type Index struct {
	flat docmodel.FlatText
}

// NewIndex flattens doc once so several needles can be mapped against it.
func NewIndex(doc *docmodel.Node) *Index {
	return &Index{flat: doc.Flatten()}
}

// Text returns the flattened text the index searches.
func (x *Index) Text() string {
	return x.flat.Text
}

// All returns the range of every occurrence of needle, overlapping matches
// included, in document order.
func (x *Index) All(needle string) []docmodel.Range {
	needle = Normalize(needle)
	if needle == "" {
		return nil
	}
	var ranges []docmodel.Range
	text := x.flat.Text
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], needle)
		if idx < 0 {
			break
		}
		start := offset + idx
		if r, ok := x.flat.Range(start, start+len(needle)); ok {
			ranges = append(ranges, r)
		}
		_, width := utf8.DecodeRuneInString(text[start:])
		offset = start + width
	}
	return ranges
}

// Best returns the occurrence whose start is closest to estimatedPos. Ties go
// to the earlier occurrence.
func (x *Index) Best(needle string, estimatedPos int) (docmodel.Range, bool) {
	var (
		best     docmodel.Range
		bestDist = -1
	)
	for _, r := range x.All(needle) {
		dist := r.From - estimatedPos
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = r, dist
		}
	}
	return best, bestDist >= 0
}

// Next returns the first occurrence starting at or after fromPos.
func (x *Index) Next(needle string, fromPos int) (docmodel.Range, bool) {
	for _, r := range x.All(needle) {
		if r.From >= fromPos {
			return r, true
		}
	}
	return docmodel.Range{}, false
}

// FindAllOccurrences returns every range of doc where needle occurs.
func FindAllOccurrences(doc *docmodel.Node, needle string) []docmodel.Range {
	return NewIndex(doc).All(needle)
}

// FindBestMatch returns the occurrence of needle closest to estimatedPos.
func FindBestMatch(doc *docmodel.Node, needle string, estimatedPos int) (docmodel.Range, bool) {
	return NewIndex(doc).Best(needle, estimatedPos)
}

// FindNext returns the first occurrence of needle at or after fromPos.
func FindNext(doc *docmodel.Node, needle string, fromPos int) (docmodel.Range, bool) {
	return NewIndex(doc).Next(needle, fromPos)
}
