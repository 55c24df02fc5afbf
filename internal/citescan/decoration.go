package citescan

import "colabwize/api/internal/docmodel"

const (
	classLinked = "citation-scan-linked"
	classOrphan = "citation-scan-orphan"

	titleLinked = "Linked to Reference"
	titleOrphan = "Orphan: No matching reference found"
)

// Decoration is an inline overlay for the rendering layer. Attrs carries
// class, data-citation-status and title.
type Decoration struct {
	From  int               `json:"from"`
	To    int               `json:"to"`
	Attrs map[string]string `json:"attributes"`
}

// Range returns the span the decoration covers.
func (d Decoration) Range() docmodel.Range {
	return docmodel.Range{From: d.From, To: d.To}
}

// Status returns the citation status carried by the decoration.
func (d Decoration) Status() Status {
	return Status(d.Attrs["data-citation-status"])
}

func decorationFor(m Mention) Decoration {
	class, title := classOrphan, titleOrphan
	if m.Status == StatusLinked {
		class, title = classLinked, titleLinked
	}
	return Decoration{
		From: m.Range.From,
		To:   m.Range.To,
		Attrs: map[string]string{
			"class":                class,
			"data-citation-status": string(m.Status),
			"title":                title,
		},
	}
}
