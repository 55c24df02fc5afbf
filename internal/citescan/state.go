package citescan

import "colabwize/api/internal/docmodel"

// State is the scanner's overlay for one editor session. It is an explicit
// value owned by the caller; Apply returns a new State instead of mutating.
type State struct {
	Result     Result
	Generation int
}

// Change describes one editor transaction as far as the scanner cares.
type Change struct {
	Doc        *docmodel.Node
	DocChanged bool
}

// Init scans the initial document.
func Init(doc *docmodel.Node) State {
	return State{Result: Scan(doc), Generation: 1}
}

// Apply reruns the full scan when the transaction changed the document and
// keeps prev for selection-only transactions.
func Apply(prev State, change Change) State {
	if !change.DocChanged || change.Doc == nil {
		return prev
	}
	return State{Result: Scan(change.Doc), Generation: prev.Generation + 1}
}

// Decorations returns the overlay to render.
func (s State) Decorations() []Decoration {
	return s.Result.Decorations
}
