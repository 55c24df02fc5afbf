package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a row does not exist or is not visible to the
// requesting user.
var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetDocument loads a document owned by ownerID.
func (s *PostgresStore) GetDocument(ctx context.Context, ownerID, documentID string) (Document, error) {
	var item Document
	var content []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, content, plain_text, updated_at
		FROM documents
		WHERE id=$1 AND owner_id=$2
	`, documentID, ownerID).Scan(&item.ID, &item.OwnerID, &item.Title, &content, &item.PlainText, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	item.Content = json.RawMessage(content)
	return item, nil
}

// SaveDocument inserts or replaces a document. A document owned by someone
// else is reported as ErrNotFound and left untouched.
func (s *PostgresStore) SaveDocument(ctx context.Context, item Document) (Document, error) {
	content := item.Content
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, owner_id, title, content, plain_text)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (id) DO UPDATE
		SET title=EXCLUDED.title, content=EXCLUDED.content, plain_text=EXCLUDED.plain_text, updated_at=NOW()
		WHERE documents.owner_id=EXCLUDED.owner_id
		RETURNING updated_at
	`, item.ID, item.OwnerID, item.Title, string(content), item.PlainText).Scan(&item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("save document: %w", err)
	}
	item.Content = content
	return item, nil
}

// ListDocuments returns the documents owned by ownerID, most recently
// updated first. Content is not loaded.
func (s *PostgresStore) ListDocuments(ctx context.Context, ownerID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, updated_at
		FROM documents
		WHERE owner_id=$1
		ORDER BY updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Title, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

// DeleteDocument removes a document owned by ownerID. Its audit runs go
// with it through the foreign key cascade.
func (s *PostgresStore) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1 AND owner_id=$2`, documentID, ownerID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUsage returns the usage of userID in the period starting at
// periodStart. A period with no recorded usage is all zeros.
func (s *PostgresStore) GetUsage(ctx context.Context, userID string, periodStart time.Time) (UsageSnapshot, error) {
	usage := UsageSnapshot{UserID: userID, PeriodStart: periodStart}
	err := s.db.QueryRowContext(ctx, `
		SELECT citation_checks, document_exports, ai_assists, storage_gb
		FROM usage_snapshots
		WHERE user_id=$1 AND period_start=$2
	`, userID, periodStart).Scan(&usage.CitationChecks, &usage.DocumentExports, &usage.AIAssists, &usage.StorageGB)
	if errors.Is(err, sql.ErrNoRows) {
		return usage, nil
	}
	if err != nil {
		return UsageSnapshot{}, fmt.Errorf("get usage: %w", err)
	}
	return usage, nil
}

// RecordCitationCheck counts one completed citation audit against userID.
func (s *PostgresStore) RecordCitationCheck(ctx context.Context, userID string, periodStart time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_snapshots (user_id, period_start, citation_checks)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, period_start) DO UPDATE
		SET citation_checks=usage_snapshots.citation_checks + 1, updated_at=NOW()
	`, userID, periodStart)
	if err != nil {
		return fmt.Errorf("record citation check: %w", err)
	}
	return nil
}

// RecordDocumentExport counts one rendered citation report against userID.
func (s *PostgresStore) RecordDocumentExport(ctx context.Context, userID string, periodStart time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_snapshots (user_id, period_start, document_exports)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, period_start) DO UPDATE
		SET document_exports=usage_snapshots.document_exports + 1, updated_at=NOW()
	`, userID, periodStart)
	if err != nil {
		return fmt.Errorf("record document export: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveAuditRun(ctx context.Context, run AuditRun) error {
	result := run.Result
	if len(result) == 0 {
		result = json.RawMessage(`{}`)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_runs (id, document_id, user_id, style, state, flag_count, error_message, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
	`, run.ID, run.DocumentID, run.UserID, run.Style, run.State, run.FlagCount, run.ErrorMessage, string(result))
	if err != nil {
		return fmt.Errorf("insert audit run: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditRuns(ctx context.Context, userID, documentID string, limit int) ([]AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, user_id, style, state, flag_count, error_message, result, created_at
		FROM audit_runs
		WHERE user_id=$1 AND document_id=$2
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit runs: %w", err)
	}
	defer rows.Close()

	items := make([]AuditRun, 0)
	for rows.Next() {
		var item AuditRun
		var result []byte
		if err := rows.Scan(
			&item.ID,
			&item.DocumentID,
			&item.UserID,
			&item.Style,
			&item.State,
			&item.FlagCount,
			&item.ErrorMessage,
			&result,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit run: %w", err)
		}
		item.Result = json.RawMessage(result)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit runs: %w", err)
	}
	return items, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
