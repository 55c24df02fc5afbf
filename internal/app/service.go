package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"colabwize/api/internal/audit"
	"colabwize/api/internal/auth"
	"colabwize/api/internal/citescan"
	"colabwize/api/internal/config"
	"colabwize/api/internal/docimport"
	"colabwize/api/internal/docmodel"
	"colabwize/api/internal/email"
	"colabwize/api/internal/export"
	"colabwize/api/internal/metrics"
	"colabwize/api/internal/quota"
	"colabwize/api/internal/search"
	"colabwize/api/internal/store"
	"colabwize/api/internal/textmatch"
	"colabwize/api/internal/util"
)

// Session is the verified caller of a request.
type Session struct {
	UserID string
	Name   string
	Email  string
	Plan   quota.Plan
}

type SaveDocumentInput struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

type ScanInput struct {
	Content json.RawMessage `json:"content"`
}

type LocateInput struct {
	Matches []textmatch.Locator `json:"matches"`
}

type LocateSearchInput struct {
	Text  string `json:"text"`
	Limit int    `json:"limit"`
}

type AuditInput struct {
	Style string `json:"style"`
}

type dataStore interface {
	GetDocument(context.Context, string, string) (store.Document, error)
	SaveDocument(context.Context, store.Document) (store.Document, error)
	ListDocuments(context.Context, string) ([]store.Document, error)
	DeleteDocument(context.Context, string, string) error
	GetUsage(context.Context, string, time.Time) (store.UsageSnapshot, error)
	RecordCitationCheck(context.Context, string, time.Time) error
	RecordDocumentExport(context.Context, string, time.Time) error
	SaveAuditRun(context.Context, store.AuditRun) error
	ListAuditRuns(context.Context, string, string, int) ([]store.AuditRun, error)
	Ping(ctx context.Context) error
}

type bypassStore interface {
	EnableBypass(context.Context, string, quota.Bypass) error
	LookupBypass(context.Context, string) (quota.Bypass, bool, error)
	DisableBypass(context.Context, string) error
}

type auditRunner interface {
	Run(context.Context, *docmodel.Node, audit.Style) audit.Result
}

type documentSearch interface {
	Search(context.Context, search.Query) search.Response
	IndexDocument(search.DocumentRecord)
	DeleteDocument(string)
}

type reportExporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

type quotaNotifier interface {
	SendQuotaNotice(to string, notice email.QuotaNotice) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	bypass   bypassStore
	runner   auditRunner
	search   documentSearch
	exporter reportExporter
	notifier quotaNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// New wires the service. bypass, searchService and mailer may be nil when
// Redis, the search backends or SMTP are not configured.
func New(cfg config.Config, dataStore *store.PostgresStore, bypass bypassStore, runner auditRunner, searchService *search.Service, mailer *email.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:    cfg,
		store:  dataStore,
		bypass: bypass,
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
	if searchService != nil {
		s.search = searchService
	}
	if mailer != nil && mailer.IsConfigured() {
		s.notifier = mailer
	}
	s.exporter = export.NewService(reportStore{store: dataStore})
	return s
}

// reportStore adapts stored documents to the export package.
type reportStore struct {
	store dataStore
}

func (r reportStore) GetReportDocument(ctx context.Context, ownerID, documentID string) (export.Document, error) {
	doc, err := r.store.GetDocument(ctx, ownerID, documentID)
	if err != nil {
		return export.Document{}, err
	}
	return export.Document{ID: doc.ID, Title: doc.Title, Content: doc.Content, UpdatedAt: doc.UpdatedAt}, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SessionFromToken verifies a bearer token. Tokens without a known plan
// claim get the configured default plan.
func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	plan := s.cfg.DefaultPlan
	if claims.Plan != "" {
		if parsed, err := quota.ParsePlan(claims.Plan); err == nil {
			plan = parsed
		}
	}
	return Session{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Plan:   plan,
	}, nil
}

func parseContent(raw json.RawMessage) (*docmodel.Node, error) {
	if len(raw) == 0 {
		return nil, validationError("content is required")
	}
	root, err := docmodel.Parse(raw)
	if err != nil {
		return nil, domainError(http.StatusBadRequest, "INVALID_DOCUMENT", "content is not an editor document", map[string]any{"reason": err.Error()})
	}
	return root, nil
}

func (s *Service) loadDocument(ctx context.Context, session Session, documentID string) (store.Document, *docmodel.Node, error) {
	doc, err := s.store.GetDocument(ctx, session.UserID, documentID)
	if err != nil {
		return store.Document{}, nil, err
	}
	root, err := docmodel.Parse(doc.Content)
	if err != nil {
		return store.Document{}, nil, domainError(http.StatusUnprocessableEntity, "INVALID_DOCUMENT", "stored document cannot be read", nil)
	}
	return doc, root, nil
}

func (s *Service) SaveDocument(ctx context.Context, session Session, documentID string, input SaveDocumentInput) (map[string]any, error) {
	root, err := parseContent(input.Content)
	if err != nil {
		return nil, err
	}
	saved, err := s.saveDocument(ctx, session, documentID, input.Title, input.Content, root)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":        saved.ID,
		"title":     saved.Title,
		"updatedAt": saved.UpdatedAt,
	}, nil
}

func (s *Service) saveDocument(ctx context.Context, session Session, documentID, title string, content json.RawMessage, root *docmodel.Node) (store.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	plainText := root.Flatten().Text

	saved, err := s.store.SaveDocument(ctx, store.Document{
		ID:        documentID,
		OwnerID:   session.UserID,
		Title:     title,
		Content:   content,
		PlainText: plainText,
	})
	if err != nil {
		return store.Document{}, err
	}
	if s.search != nil {
		s.search.IndexDocument(search.DocumentRecord{
			ID:        saved.ID,
			OwnerID:   saved.OwnerID,
			Title:     saved.Title,
			PlainText: plainText,
		})
	}
	return saved, nil
}

// ImportDocument converts an uploaded file into an editor document, stores
// it under documentID and returns its scan alongside the saved metadata.
func (s *Service) ImportDocument(ctx context.Context, session Session, documentID, filename string, r io.Reader) (map[string]any, error) {
	imported, err := docimport.Import(r, filename)
	metrics.RecordImport(importExt(filename), err == nil)
	switch {
	case errors.Is(err, docimport.ErrUnsupportedType):
		return nil, domainError(http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE", "Supported files are .txt, .md, .html, .pdf and .docx", nil)
	case errors.Is(err, docimport.ErrEmptyDocument):
		return nil, domainError(http.StatusUnprocessableEntity, "EMPTY_DOCUMENT", "The file contains no text", nil)
	case err != nil:
		return nil, domainError(http.StatusUnprocessableEntity, "IMPORT_FAILED", "The file could not be read", map[string]any{"reason": err.Error()})
	}

	content, err := imported.Doc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	saved, err := s.saveDocument(ctx, session, documentID, imported.Title, content, imported.Doc)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document imported",
		zap.String("user_id", session.UserID),
		zap.String("document_id", saved.ID),
		zap.String("filename", filename),
	)
	payload := scanPayload(imported.Doc)
	payload["id"] = saved.ID
	payload["title"] = saved.Title
	payload["updatedAt"] = saved.UpdatedAt
	payload["content"] = json.RawMessage(content)
	return payload, nil
}

// importExt bounds the metric label to known extensions.
func importExt(filename string) string {
	if !docimport.IsSupportedExtension(filename) {
		return "other"
	}
	return strings.ToLower(filepath.Ext(filename))
}

func (s *Service) GetDocument(ctx context.Context, session Session, documentID string) (map[string]any, error) {
	doc, err := s.store.GetDocument(ctx, session.UserID, documentID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":        doc.ID,
		"title":     doc.Title,
		"content":   doc.Content,
		"updatedAt": doc.UpdatedAt,
	}, nil
}

// ListDocuments returns the caller's documents without their content.
func (s *Service) ListDocuments(ctx context.Context, session Session) (map[string]any, error) {
	docs, err := s.store.ListDocuments(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		items = append(items, map[string]any{
			"id":        doc.ID,
			"title":     doc.Title,
			"updatedAt": doc.UpdatedAt,
		})
	}
	return map[string]any{"documents": items}, nil
}

// DeleteDocument removes one of the caller's documents and drops it from
// the search index.
func (s *Service) DeleteDocument(ctx context.Context, session Session, documentID string) error {
	if err := s.store.DeleteDocument(ctx, session.UserID, documentID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteDocument(documentID)
	}
	s.logger.Info("document deleted",
		zap.String("user_id", session.UserID),
		zap.String("document_id", documentID),
	)
	return nil
}

func scanPayload(root *docmodel.Node) map[string]any {
	result := citescan.Scan(root)
	stats := result.Stats()
	metrics.RecordScan(stats.Linked, stats.Orphan)
	return map[string]any{
		"decorations": nonNilSlice(result.Decorations),
		"mentions":    nonNilSlice(result.Mentions),
		"references":  nonNilSlice(result.References),
		"sections":    nonNilSlice(result.Sections),
		"stats":       stats,
	}
}

// ScanContent scans a document supplied inline.
func (s *Service) ScanContent(input ScanInput) (map[string]any, error) {
	root, err := parseContent(input.Content)
	if err != nil {
		return nil, err
	}
	return scanPayload(root), nil
}

func (s *Service) ScanDocument(ctx context.Context, session Session, documentID string) (map[string]any, error) {
	_, root, err := s.loadDocument(ctx, session, documentID)
	if err != nil {
		return nil, err
	}
	return scanPayload(root), nil
}

func (s *Service) Locate(ctx context.Context, session Session, documentID string, input LocateInput) (map[string]any, error) {
	if len(input.Matches) == 0 {
		return nil, validationError("matches are required")
	}
	_, root, err := s.loadDocument(ctx, session, documentID)
	if err != nil {
		return nil, err
	}
	located := textmatch.Locate(root, input.Matches)
	hits := 0
	for _, l := range located {
		if l.Found {
			hits++
		}
	}
	metrics.RecordLocate(hits, len(located)-hits)
	return map[string]any{"matches": located}, nil
}

// LocateSearch finds the caller's documents containing text and the
// positions of every occurrence within each.
func (s *Service) LocateSearch(ctx context.Context, session Session, input LocateSearchInput) (map[string]any, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, validationError("text is required")
	}
	if s.search == nil {
		return nil, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}

	resp := s.search.Search(ctx, search.Query{Text: text, OwnerID: session.UserID, Limit: input.Limit})
	items := make([]map[string]any, 0, len(resp.Results))
	for _, hit := range resp.Results {
		_, root, err := s.loadDocument(ctx, session, hit.ID)
		if errors.Is(err, store.ErrNotFound) {
			// index lags behind deletes
			continue
		}
		if err != nil {
			return nil, err
		}
		ranges := textmatch.FindAllOccurrences(root, text)
		metrics.RecordLocate(min(len(ranges), 1), 1-min(len(ranges), 1))
		items = append(items, map[string]any{
			"documentId": hit.ID,
			"title":      hit.Title,
			"snippet":    hit.Snippet,
			"ranges":     nonNilSlice(ranges),
		})
	}
	return map[string]any{"text": text, "results": items, "total": resp.Total}, nil
}

func (s *Service) quotaStatus(ctx context.Context, session Session) (quota.Status, error) {
	start, next := quota.BillingPeriod(s.now())
	usage, err := s.store.GetUsage(ctx, session.UserID, start)
	if err != nil {
		return quota.Status{}, err
	}
	status, err := quota.GetQuotaStatus(session.Plan, quota.Usage{
		CitationChecksUsed:  float64(usage.CitationChecks),
		DocumentExportsUsed: float64(usage.DocumentExports),
		AIAssistsUsed:       float64(usage.AIAssists),
		StorageUsedGB:       usage.StorageGB,
	})
	if err != nil {
		return quota.Status{}, err
	}
	status.NextResetDate = &next
	return status, nil
}

// activeBypass returns the caller's bypass, or nil. Lookup failures are
// logged and treated as no bypass.
func (s *Service) activeBypass(ctx context.Context, session Session) *quota.Bypass {
	if s.bypass == nil {
		return nil
	}
	b, ok, err := s.bypass.LookupBypass(ctx, session.UserID)
	if err != nil {
		s.logger.Warn("bypass lookup failed", zap.String("user_id", session.UserID), zap.Error(err))
		return nil
	}
	if !ok || !b.Active(s.now()) {
		return nil
	}
	return &b
}

func (s *Service) QuotaStatus(ctx context.Context, session Session) (map[string]any, error) {
	status, err := s.quotaStatus(ctx, session)
	if err != nil {
		return nil, err
	}
	now := s.now()
	messages := make(map[quota.Resource]string, len(quota.Resources))
	percentages := make(map[quota.Resource]int, len(quota.Resources))
	for _, r := range quota.Resources {
		messages[r] = quota.Message(status, r)
		percentages[r] = quota.UsagePercentage(status.Usage.Get(r), status.Limits.Get(r))
	}

	bypass := map[string]any{"active": false}
	if b := s.activeBypass(ctx, session); b != nil {
		bypass = map[string]any{
			"active":    true,
			"expiresAt": b.ExpiresAt,
			"remaining": b.FormatRemaining(now),
		}
	}

	return map[string]any{
		"status":         status,
		"warnings":       nonNilSlice(quota.Warnings(status)),
		"messages":       messages,
		"percentages":    percentages,
		"daysUntilReset": quota.DaysUntilReset(status.NextResetDate, now),
		"bypass":         bypass,
	}, nil
}

func (s *Service) EnableBypass(ctx context.Context, session Session) (map[string]any, error) {
	if s.bypass == nil {
		return nil, domainError(http.StatusServiceUnavailable, "BYPASS_UNAVAILABLE", "Quota bypass is not configured", nil)
	}
	now := s.now()
	b := quota.NewBypassFor(now, s.cfg.BypassTTL)
	if err := s.bypass.EnableBypass(ctx, session.UserID, b); err != nil {
		return nil, err
	}
	s.logger.Info("quota bypass enabled", zap.String("user_id", session.UserID), zap.Time("expires_at", b.ExpiresAt))
	return map[string]any{
		"active":    true,
		"expiresAt": b.ExpiresAt,
		"remaining": b.FormatRemaining(now),
	}, nil
}

func (s *Service) DisableBypass(ctx context.Context, session Session) error {
	if s.bypass == nil {
		return domainError(http.StatusServiceUnavailable, "BYPASS_UNAVAILABLE", "Quota bypass is not configured", nil)
	}
	return s.bypass.DisableBypass(ctx, session.UserID)
}

func quotaPayload(status quota.Status, r quota.Resource) audit.QuotaPayload {
	p := audit.QuotaPayload{Used: int(math.Round(status.Usage.Get(r)))}
	if limit := status.Limits.Get(r); !limit.IsUnlimited() {
		p.Limit = int(limit)
	}
	if status.NextResetDate != nil {
		p.ResetTime = status.NextResetDate.Format(time.RFC3339)
	}
	return p
}

// AuditDocument runs a citation audit on a stored document. Every audit
// outcome, including a local quota refusal, is reported as a result; only
// request errors are returned as errors.
func (s *Service) AuditDocument(ctx context.Context, session Session, documentID string, input AuditInput) (map[string]any, error) {
	style := audit.StyleAPA
	if strings.TrimSpace(input.Style) != "" {
		parsed, err := audit.ParseStyle(input.Style)
		if err != nil {
			return nil, validationError(err.Error())
		}
		style = parsed
	}

	_, root, err := s.loadDocument(ctx, session, documentID)
	if err != nil {
		return nil, err
	}

	status, err := s.quotaStatus(ctx, session)
	if err != nil {
		return nil, err
	}
	bypass := s.activeBypass(ctx, session)

	started := s.now()
	var result audit.Result
	if !quota.Permits(status, quota.CitationChecks, bypass, started) {
		metrics.QuotaDenials.WithLabelValues(string(quota.CitationChecks)).Inc()
		result = audit.HandleQuotaExceeded(quotaPayload(status, quota.CitationChecks))
	} else {
		result = s.runner.Run(ctx, root, style)
	}
	metrics.RecordAudit(string(result.State), time.Since(started))

	if result.State == audit.StateCompletedSuccess || result.State == audit.StateCompletedNoIssues {
		period, _ := quota.BillingPeriod(started)
		if err := s.store.RecordCitationCheck(ctx, session.UserID, period); err != nil {
			s.logger.Error("record citation check", zap.String("user_id", session.UserID), zap.Error(err))
		} else {
			s.notifyQuota(session, status, quota.CitationChecks)
		}
	}

	runID := util.NewID("aud")
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveAuditRun(ctx, store.AuditRun{
		ID:           runID,
		DocumentID:   documentID,
		UserID:       session.UserID,
		Style:        string(style),
		State:        string(result.State),
		FlagCount:    len(result.Violations),
		ErrorMessage: result.ErrorMessage,
		Result:       encoded,
	}); err != nil {
		s.logger.Error("save audit run", zap.String("run_id", runID), zap.Error(err))
	}

	return map[string]any{
		"runId":        runID,
		"result":       result,
		"message":      audit.UserFriendlyMessage(result),
		"showToast":    audit.ShouldShowToast(result),
		"toastVariant": audit.ToastVariantFor(result),
	}, nil
}

func (s *Service) ListAuditRuns(ctx context.Context, session Session, documentID string, limit int) (map[string]any, error) {
	runs, err := s.store.ListAuditRuns(ctx, session.UserID, documentID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		items = append(items, map[string]any{
			"id":        run.ID,
			"style":     run.Style,
			"state":     run.State,
			"flagCount": run.FlagCount,
			"createdAt": run.CreatedAt,
			"result":    run.Result,
		})
	}
	return map[string]any{"items": items}, nil
}

// CitationReport renders the annotated report of a document as HTML or PDF,
// counting it as a document export.
func (s *Service) CitationReport(ctx context.Context, session Session, documentID, format string) (*export.Result, error) {
	parsedFormat, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
	if err != nil {
		return nil, validationError("format must be html, pdf or docx")
	}
	status, err := s.quotaStatus(ctx, session)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !quota.Permits(status, quota.DocumentExports, s.activeBypass(ctx, session), now) {
		metrics.QuotaDenials.WithLabelValues(string(quota.DocumentExports)).Inc()
		return nil, domainError(http.StatusTooManyRequests, "QUOTA_EXCEEDED", quota.Message(status, quota.DocumentExports), map[string]any{
			"resource": quota.DocumentExports,
		})
	}

	result, err := s.exporter.Export(ctx, export.Request{OwnerID: session.UserID, DocumentID: documentID, Format: parsedFormat})
	if err != nil {
		return nil, err
	}
	period, _ := quota.BillingPeriod(now)
	if err := s.store.RecordDocumentExport(ctx, session.UserID, period); err != nil {
		s.logger.Error("record document export", zap.String("user_id", session.UserID), zap.Error(err))
	} else {
		s.notifyQuota(session, status, quota.DocumentExports)
	}
	return result, nil
}

// notifyQuota emails the caller when one more use of r, on top of the usage
// in status, reaches the warning threshold or the limit.
func (s *Service) notifyQuota(session Session, status quota.Status, r quota.Resource) {
	if s.notifier == nil || session.Email == "" {
		return
	}
	before := status.Usage.Get(r)
	after := before + 1
	limit := status.Limits.Get(r)
	if !quota.CrossedWarning(before, after, limit) {
		return
	}
	notice := email.QuotaNotice{
		UserName:  session.Name,
		Resource:  string(r),
		Used:      int(after),
		Limit:     int(limit),
		Percent:   quota.UsagePercentage(after, limit),
		Exhausted: after >= float64(limit),
	}
	if status.NextResetDate != nil {
		notice.ResetDate = status.NextResetDate.Format("Jan 2, 2006")
	}
	go func() {
		if err := s.notifier.SendQuotaNotice(session.Email, notice); err != nil {
			s.logger.Warn("quota notice failed", zap.String("user_id", session.UserID), zap.String("resource", string(r)), zap.Error(err))
		}
	}()
}

func nonNilSlice[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
