// Package search finds stored documents by their flattened text. Meilisearch
// is preferred when reachable; PostgreSQL full-text search backs it up.
package search

import "context"

// Result is a single search hit returned to the caller.
type Result struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Query describes a search request. Results are always scoped to OwnerID.
type Query struct {
	Text    string
	OwnerID string
	Limit   int
	Offset  int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	Title     string `json:"title"`
	PlainText string `json:"plainText"`
}

const defaultLimit = 20
