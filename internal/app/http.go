package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"colabwize/api/internal/auth"
	"colabwize/api/internal/export"
	"colabwize/api/internal/metrics"
	"colabwize/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
	limiter    *userLimiter
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     service.logger.Named("http"),
		limiter:    newUserLimiter(service.cfg.AuditRatePerMin),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.withMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Head("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/api/session", s.handleSession)

		r.Get("/api/documents", s.handleListDocuments)
		r.Put("/api/documents/{documentID}", s.handleSaveDocument)
		r.Get("/api/documents/{documentID}", s.handleGetDocument)
		r.Delete("/api/documents/{documentID}", s.handleDeleteDocument)
		r.Post("/api/documents/{documentID}/import", s.handleImport)
		r.Post("/api/documents/{documentID}/citation-scan", s.handleScanDocument)
		r.Post("/api/documents/{documentID}/locate", s.handleLocate)
		r.With(s.rateLimit).Post("/api/documents/{documentID}/citation-audit", s.handleAudit)
		r.Get("/api/documents/{documentID}/citation-audits", s.handleListAudits)
		r.Get("/api/documents/{documentID}/citation-report", s.handleReport)

		r.Post("/api/citation-scan", s.handleScanContent)
		r.Post("/api/locate/search", s.handleLocateSearch)

		r.Get("/api/quota", s.handleQuota)
		r.Post("/api/quota/bypass", s.handleEnableBypass)
		r.Delete("/api/quota/bypass", s.handleDisableBypass)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"userId":        session.UserID,
		"userName":      session.Name,
		"email":         session.Email,
		"plan":          session.Plan,
	})
}

func (s *HTTPServer) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	var input SaveDocumentInput
	if err := decodeBody(r, &input); err != nil {
		writeDomainError(w, validationError(err.Error()))
		return
	}
	payload, err := s.service.SaveDocument(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "documentID"), input)
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.GetDocument(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "documentID"))
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.ListDocuments(r.Context(), sessionFrom(r.Context()))
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := s.service.DeleteDocument(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "documentID"))
	if err != nil {
		s.respond(w, r, 0, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// maxUploadBytes bounds document uploads.
const maxUploadBytes = 20 << 20

func (s *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDomainError(w, validationError("expected a multipart upload of at most 20MB"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDomainError(w, validationError("file is required"))
		return
	}
	defer file.Close()

	payload, err := s.service.ImportDocument(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "documentID"), header.Filename, file)
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleScanDocument(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.ScanDocument(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "documentID"))
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleScanContent(w http.ResponseWriter, r *http.Request) {
	var input ScanInput
	if err := decodeBody(r, &input); err != nil {
		writeDomainError(w, validationError(err.Error()))
		return
	}
	payload, err := s.service.ScanContent(input)
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleLocate(w http.ResponseWriter, r *http.Request) {
	var input LocateInput
	if err := decodeBody(r, &input); err != nil {
		writeDomainError(w, validationError(err.Error()))
		return
	}
	payload, err := s.service.Locate(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "documentID"), input)
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleLocateSearch(w http.ResponseWriter, r *http.Request) {
	var input LocateSearchInput
	if err := decodeBody(r, &input); err != nil {
		writeDomainError(w, validationError(err.Error()))
		return
	}
	payload, err := s.service.LocateSearch(r.Context(), sessionFrom(r.Context()), input)
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	var input AuditInput
	if err := decodeBody(r, &input); err != nil {
		writeDomainError(w, validationError(err.Error()))
		return
	}
	payload, err := s.service.AuditDocument(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "documentID"), input)
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleListAudits(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	payload, err := s.service.ListAuditRuns(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "documentID"), limit)
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.CitationReport(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "documentID"), r.URL.Query().Get("format"))
	if err != nil {
		s.respond(w, r, http.StatusOK, nil, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleQuota(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.QuotaStatus(r.Context(), sessionFrom(r.Context()))
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleEnableBypass(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.EnableBypass(r.Context(), sessionFrom(r.Context()))
	s.respond(w, r, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleDisableBypass(w http.ResponseWriter, r *http.Request) {
	err := s.service.DisableBypass(r.Context(), sessionFrom(r.Context()))
	s.respond(w, r, http.StatusOK, map[string]any{"active": false}, err)
}

// respond writes payload, or the mapped error when err is set.
func (s *HTTPServer) respond(w http.ResponseWriter, r *http.Request, status int, payload any, err error) {
	if err != nil {
		status, code, message, details := mapError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("request failed",
				zap.String("request_id", requestIDFrom(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, status, payload)
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) Session {
	session, _ := ctx.Value(sessionKey{}).(Session)
	return session
}

func (s *HTTPServer) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(sessionFrom(r.Context()).UserID) {
			metrics.RateLimited.Inc()
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many audit requests. Please wait a moment.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writeJSON(writer, http.StatusNoContent, map[string]any{})
		} else {
			next.ServeHTTP(writer, r)
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(started)
		metrics.RecordHTTP(r.Method, route, strconv.Itoa(writer.status), elapsed)
		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeDomainError(w http.ResponseWriter, err *DomainError) {
	writeError(w, err.Status, err.Code, err.Message, err.Details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, export.ErrContentUnavailable) {
		return http.StatusUnprocessableEntity, "CONTENT_UNAVAILABLE", "Document content cannot be rendered", nil
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF export is not available", nil
	}
	if errors.Is(err, export.ErrDOCXDependencyMissing) {
		return http.StatusServiceUnavailable, "DOCX_UNAVAILABLE", "DOCX export is not available", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
