package export

import (
	"context"
	"fmt"
	"html/template"

	"colabwize/api/internal/citescan"
	"colabwize/api/internal/docmodel"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetReportDocument(ctx context.Context, ownerID, documentID string) (Document, error)
}

// Renderer converts a rendered HTML page to another format.
type Renderer func(ctx context.Context, html string) ([]byte, error)

// Service provides citation report rendering
type Service struct {
	store DataStore
	pdf   Renderer
	docx  Renderer
}

// NewService creates a new export service that prints PDFs with headless
// Chrome and converts DOCX with pandoc.
func NewService(store DataStore) *Service {
	return &Service{store: store, pdf: chromePDF, docx: pandocDOCX}
}

// WithPDFRenderer replaces the PDF renderer.
func (s *Service) WithPDFRenderer(render Renderer) *Service {
	s.pdf = render
	return s
}

// WithDOCXRenderer replaces the DOCX renderer.
func (s *Service) WithDOCXRenderer(render Renderer) *Service {
	s.docx = render
	return s
}

// Export renders the citation report of one document.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	format, err := ParseFormat(string(req.Format))
	if err != nil {
		return nil, err
	}

	doc, err := s.store.GetReportDocument(ctx, req.OwnerID, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, ErrContentUnavailable
	}

	root, err := docmodel.Parse(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	html, err := Render(doc, root)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	base := sanitizeFilename(doc.Title) + "-citations"
	switch format {
	case FormatPDF:
		data, err := s.pdf(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: base + ".pdf", MimeType: "application/pdf"}, nil
	case FormatDOCX:
		data, err := s.docx(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: base + ".docx", MimeType: docxMimeType}, nil
	default:
		return &Result{Data: []byte(html), Filename: base + ".html", MimeType: "text/html; charset=utf-8"}, nil
	}
}

// Render scans root and renders the report page for doc.
func Render(doc Document, root *docmodel.Node) (string, error) {
	scan := citescan.Scan(root)
	stats := scan.Stats()

	data := TemplateData{
		Title:       doc.Title,
		ContentHTML: template.HTML(DocumentToHTML(root, scan.Decorations)),
		UpdatedAt:   doc.UpdatedAt,
		Linked:      stats.Linked,
		Orphan:      stats.Orphan,
		References:  scan.References,
		Mentions:    make([]TemplateMention, 0, len(scan.Mentions)),
	}
	for _, m := range scan.Mentions {
		data.Mentions = append(data.Mentions, TemplateMention{
			Text:   m.Text,
			Author: m.Author,
			Status: string(m.Status),
		})
	}
	return RenderReportHTML(data)
}

// sanitizeFilename creates a safe filename from a title
func sanitizeFilename(title string) string {
	result := ""
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			result += string(r)
		case r == ' ':
			result += "-"
		case r == '-', r == '_':
			result += string(r)
		default:
			// Skip other characters
		}
	}

	if len(result) > 50 {
		result = result[:50]
	}

	if result == "" {
		result = "document"
	}

	return result
}
