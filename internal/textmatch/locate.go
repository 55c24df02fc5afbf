package textmatch

import "colabwize/api/internal/docmodel"

// Locator is one fragment to place in a document, typically a sentence
// flagged by the originality or AI-detection service.
type Locator struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	EstimatedPos *int   `json:"estimatedPos,omitempty"`
}

// Located is the outcome of placing one Locator.
type Located struct {
	ID          string          `json:"id"`
	Text        string          `json:"text"`
	Found       bool            `json:"found"`
	Range       *docmodel.Range `json:"range,omitempty"`
	Occurrences int             `json:"occurrences"`
}

// Locate places every locator in doc. Without an estimated position the
// first occurrence wins.
func Locate(doc *docmodel.Node, locators []Locator) []Located {
	x := NewIndex(doc)
	out := make([]Located, 0, len(locators))
	for _, loc := range locators {
		all := x.All(loc.Text)
		res := Located{ID: loc.ID, Text: loc.Text, Occurrences: len(all)}
		if len(all) > 0 {
			r := all[0]
			if loc.EstimatedPos != nil {
				r, _ = x.Best(loc.Text, *loc.EstimatedPos)
			}
			res.Found = true
			res.Range = &r
		}
		out = append(out, res)
	}
	return out
}
