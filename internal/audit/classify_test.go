package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBackendCodes(t *testing.T) {
	quotaData := json.RawMessage(`{"used":50,"limit":50,"resetTime":"2026-11-01T00:00:00Z"}`)

	r := Classify(&ServiceError{Status: 402, Code: CodePlanLimitReached, Message: "Plan limit reached", Data: quotaData})
	assert.Equal(t, StateFailedQuotaExceeded, r.State)
	assert.Equal(t, "Plan limit reached", r.ErrorMessage)
	require.NotNil(t, r.QuotaInfo)
	assert.Equal(t, QuotaInfo{Used: 50, Limit: 50, ResetTime: "2026-11-01T00:00:00Z", Code: CodePlanLimitReached}, *r.QuotaInfo)

	r = Classify(fmt.Errorf("call backend: %w", &ServiceError{Status: 400, Code: CodeInsufficientCredits}))
	assert.Equal(t, StateFailedQuotaExceeded, r.State)
	assert.Equal(t, msgQuotaExceeded, r.ErrorMessage)
	assert.Equal(t, CodeInsufficientCredits, r.QuotaInfo.Code)

	r = Classify(&ServiceError{Status: 403, Code: CodeFeatureNotAllowed, Message: "Upgrade to use audits"})
	assert.Equal(t, StateFailedSubscription, r.State)
	assert.Equal(t, "Upgrade to use audits", r.ErrorMessage)
	require.NotNil(t, r.QuotaInfo)
	assert.Equal(t, CodeFeatureNotAllowed, r.QuotaInfo.Code)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   State
	}{
		{403, StateFailedQuotaExceeded},
		{429, StateFailedQuotaExceeded},
		{401, StateFailedSubscription},
		{402, StateFailedSubscription},
		{400, StateFailedScanAborted},
		{500, StateFailedScanAborted},
		{503, StateFailedScanAborted},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			r := Classify(&ServiceError{Status: tt.status, Message: "nope"})
			assert.Equal(t, tt.want, r.State)
			assert.Empty(t, r.Violations)
		})
	}

	r := Classify(&ServiceError{Status: 403, Data: json.RawMessage(`{"used":"bad"}`)})
	assert.Equal(t, QuotaInfo{}, *r.QuotaInfo)
	assert.Equal(t, msgQuotaExceeded, r.ErrorMessage)

	r = Classify(&ServiceError{Status: 500, Message: "boom"})
	assert.Equal(t, "Audit processing failed: audit backend: HTTP 500: boom", r.ErrorMessage)
}

func TestClassifyTransport(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	tests := []struct {
		name string
		err  error
		want State
	}{
		{"dial", dial, StateFailedNetwork},
		{"url wrapped dial", &url.Error{Op: "Post", URL: "http://audit", Err: dial}, StateFailedNetwork},
		{"deadline", context.DeadlineExceeded, StateFailedNetwork},
		{"wrapped deadline", fmt.Errorf("audit: %w", context.DeadlineExceeded), StateFailedNetwork},
		{"dns", &net.DNSError{Err: "no such host", Name: "audit"}, StateFailedNetwork},
		{"canceled", context.Canceled, StateFailedScanAborted},
		{"url canceled", &url.Error{Op: "Post", URL: "http://audit", Err: context.Canceled}, StateFailedScanAborted},
		{"decode", errors.New("decode audit response: unexpected EOF"), StateFailedScanAborted},
		{"nil", nil, StateFailedScanAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).State)
		})
	}
}
