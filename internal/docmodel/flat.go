package docmodel

const (
	// BlockSeparator is written between textblocks in a flattened view.
	BlockSeparator = "\n"
	// LeafText stands in for inline leaves such as hard breaks.
	LeafText = "\x00"
)

// Range is a half-open span of document positions.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Len is the number of positions covered by r.
func (r Range) Len() int {
	return r.To - r.From
}

// SegmentKind tells what produced a piece of flattened text.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentLeaf
	SegmentSeparator
)

// Segment is a contiguous piece of FlatText. Start and End are byte offsets
// into FlatText.Text; Pos is the document position of the first code unit and
// is -1 for separators, which have no address.
type Segment struct {
	Kind  SegmentKind
	Start int
	End   int
	Pos   int
}

// FlatText is the plain-text projection of a document together with the
// segments needed to map offsets back into document positions.
type FlatText struct {
	Text     string
	Segments []Segment
}

// Flatten projects the whole content of n.
func (n *Node) Flatten() FlatText {
	return n.FlattenRange(0, n.ContentSize())
}

// FlattenRange projects [from, to) of n's content.
func (n *Node) FlattenRange(from, to int) FlatText {
	return n.flatten(from, to, 0)
}

// FlattenContent projects all of n's content, reporting positions as if n's
// content started at contentStart. Use it to flatten a single block found
// during a walk of a larger document.
func (n *Node) FlattenContent(contentStart int) FlatText {
	return n.flatten(0, n.ContentSize(), contentStart)
}

func (n *Node) flatten(from, to, base int) FlatText {
	var flat FlatText
	buf := make([]byte, 0, 256)
	n.walkText(from, to, BlockSeparator, LeafText, base, func(seg Segment, text string) {
		seg.Start = len(buf)
		buf = append(buf, text...)
		seg.End = len(buf)
		flat.Segments = append(flat.Segments, seg)
	})
	flat.Text = string(buf)
	return flat
}

// Range maps the byte interval [start, end) of f.Text to document positions.
// The start comes from the first addressable segment the interval touches and
// the end from the last, so separators at either edge are trimmed away. It
// returns false when the interval covers nothing addressable.
func (f FlatText) Range(start, end int) (Range, bool) {
	if start < 0 || end > len(f.Text) || start >= end {
		return Range{}, false
	}
	from, to := -1, -1
	for _, seg := range f.Segments {
		if seg.End <= start {
			continue
		}
		if seg.Start >= end {
			break
		}
		if seg.Kind == SegmentSeparator {
			continue
		}
		lo := max(start, seg.Start)
		hi := min(end, seg.End)
		if from < 0 {
			from = seg.Pos + unitLen(f.Text[seg.Start:lo])
		}
		to = seg.Pos + unitLen(f.Text[seg.Start:hi])
	}
	if from < 0 {
		return Range{}, false
	}
	return Range{From: from, To: to}, true
}

// CrossesSeparator reports whether [start, end) includes a block separator.
func (f FlatText) CrossesSeparator(start, end int) bool {
	for _, seg := range f.Segments {
		if seg.Kind == SegmentSeparator && seg.Start < end && seg.End > start {
			return true
		}
	}
	return false
}
