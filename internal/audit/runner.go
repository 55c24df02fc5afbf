package audit

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"colabwize/api/internal/docmodel"
)

// Auditor sends an audit request to a backend.
type Auditor interface {
	Audit(ctx context.Context, req Request) (Response, error)
}

// Runner performs one complete audit: decompose, call, merge, classify.
type Runner struct {
	auditor Auditor
	logger  *zap.Logger
}

// NewRunner builds a Runner around auditor.
func NewRunner(auditor Auditor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{auditor: auditor, logger: logger}
}

// Run audits doc in the given style. Every outcome, including transport and
// backend failures, is returned as a Result.
func (r *Runner) Run(ctx context.Context, doc *docmodel.Node, style Style) Result {
	req := BuildRequest(doc, style)
	entries := 0
	if req.ReferenceList != nil {
		entries = len(req.ReferenceList.Entries)
	}
	if len(req.Patterns) == 0 && entries > 0 {
		r.logger.Warn("no citations extracted but references exist", zap.Int("references", entries))
	}

	resp, err := r.auditor.Audit(ctx, req)
	if err != nil {
		result := Classify(err)
		r.logger.Warn("citation audit failed",
			zap.String("state", string(result.State)),
			zap.Error(err),
		)
		return result
	}

	flags := MergeVerificationFlags(resp.Flags, resp.VerificationResults)
	stats := &ProcessingStats{
		TotalChunks:     1,
		TotalCharacters: utf8.RuneCountInString(doc.Flatten().Text),
		CitationsFound:  len(req.Patterns),
		FlagsDetected:   len(flags),
	}
	r.logger.Info("citation audit completed",
		zap.String("style", string(style)),
		zap.Int("patterns", len(req.Patterns)),
		zap.Int("references", entries),
		zap.Int("flags", len(flags)),
	)
	return HandleSuccessfulScan(flags, stats, resp.VerificationResults)
}
