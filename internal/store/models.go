package store

import (
	"encoding/json"
	"time"
)

type Document struct {
	ID        string
	OwnerID   string
	Title     string
	Content   json.RawMessage
	PlainText string
	UpdatedAt time.Time
}

// UsageSnapshot is one user's metered usage within a billing period.
type UsageSnapshot struct {
	UserID          string
	PeriodStart     time.Time
	CitationChecks  int
	DocumentExports int
	AIAssists       int
	StorageGB       float64
}

type AuditRun struct {
	ID           string
	DocumentID   string
	UserID       string
	Style        string
	State        string
	FlagCount    int
	ErrorMessage string
	Result       json.RawMessage
	CreatedAt    time.Time
}
