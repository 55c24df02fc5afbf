package audit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSuccessfulScan(t *testing.T) {
	r := HandleSuccessfulScan([]Flag{}, nil, nil)
	assert.Equal(t, StateCompletedNoIssues, r.State)
	assert.NotNil(t, r.Violations)

	r = HandleSuccessfulScan(nil, nil, nil)
	assert.Equal(t, StateCompletedNoIssues, r.State)
	assert.Equal(t, []Flag{}, r.Violations)

	stats := &ProcessingStats{TotalChunks: 1, CitationsFound: 3, FlagsDetected: 1}
	verification := []VerificationResult{{Status: "VERIFIED"}}
	r = HandleSuccessfulScan([]Flag{{}}, stats, verification)
	assert.Equal(t, StateCompletedSuccess, r.State)
	assert.Same(t, stats, r.ProcessingStats)
	assert.Equal(t, verification, r.VerificationResults)
	assert.Empty(t, r.ErrorMessage)
}

func TestHandleQuotaExceeded(t *testing.T) {
	r := HandleQuotaExceeded(QuotaPayload{Used: 50, Limit: 50})
	assert.Equal(t, StateFailedQuotaExceeded, r.State)
	require.NotNil(t, r.QuotaInfo)
	assert.Equal(t, QuotaInfo{Used: 50, Limit: 50}, *r.QuotaInfo)
	assert.Empty(t, r.QuotaInfo.ResetTime)
	assert.Empty(t, r.Violations)

	r = HandleQuotaExceeded(QuotaPayload{})
	assert.Equal(t, QuotaInfo{}, *r.QuotaInfo)
}

func TestFixedFailureMessages(t *testing.T) {
	boom := errors.New("socket closed with secret detail")

	sub := HandleSubscriptionError(boom)
	assert.Equal(t, StateFailedSubscription, sub.State)
	assert.Equal(t, "Subscription verification failed. Please check your account status.", sub.ErrorMessage)

	network := HandleNetworkError(boom)
	assert.Equal(t, StateFailedNetwork, network.State)
	assert.Equal(t, "Network connection failed. Please check your internet connection.", network.ErrorMessage)
	assert.NotContains(t, network.ErrorMessage, "secret")

	aborted := HandleScanAborted(boom)
	assert.Equal(t, StateFailedScanAborted, aborted.State)
	assert.Equal(t, "Audit processing failed: socket closed with secret detail", aborted.ErrorMessage)

	assert.Equal(t, "Audit processing failed", HandleScanAborted(nil).ErrorMessage)
}

func TestValidateInitialState(t *testing.T) {
	r := ValidateInitialState()
	assert.Equal(t, StateValidating, r.State)
	assert.Empty(t, r.Violations)
}

func TestPresentationIsTotal(t *testing.T) {
	tests := []struct {
		state   State
		toast   bool
		variant ToastVariant
	}{
		{StateIdle, false, ToastDefault},
		{StateValidating, false, ToastDefault},
		{StateScanning, false, ToastDefault},
		{StateCompletedSuccess, true, ToastDestructive},
		{StateCompletedNoIssues, true, ToastDefault},
		{StateFailedQuotaExceeded, true, ToastDestructive},
		{StateFailedSubscription, true, ToastDestructive},
		{StateFailedNetwork, false, ToastDestructive},
		{StateFailedScanAborted, false, ToastDestructive},
	}
	require.Len(t, tests, len(States))
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			r := Result{State: tt.state}
			assert.Equal(t, tt.toast, ShouldShowToast(r))
			assert.Equal(t, tt.variant, ToastVariantFor(r))
			assert.NotEmpty(t, UserFriendlyMessage(r))
		})
	}

	unknown := Result{State: "SOMETHING_ELSE"}
	assert.Equal(t, "Audit completed.", UserFriendlyMessage(unknown))
	assert.False(t, ShouldShowToast(unknown))
	assert.Equal(t, ToastDefault, ToastVariantFor(unknown))
}

func TestUserFriendlyMessage(t *testing.T) {
	assert.Equal(t, "Audit complete! Found 2 citation issues.",
		UserFriendlyMessage(HandleSuccessfulScan([]Flag{{}, {}}, nil, nil)))
	assert.Equal(t, "Audit complete! No citation issues found.",
		UserFriendlyMessage(HandleSuccessfulScan(nil, nil, nil)))

	assert.Equal(t, HandleQuotaExceeded(QuotaPayload{}).ErrorMessage,
		UserFriendlyMessage(HandleQuotaExceeded(QuotaPayload{})))
	assert.Equal(t, "Usage limit exceeded. Please upgrade.",
		UserFriendlyMessage(Result{State: StateFailedQuotaExceeded}))
	assert.Equal(t, "Account verification required.",
		UserFriendlyMessage(Result{State: StateFailedSubscription}))
	assert.Equal(t, "Connection failed. Please try again.",
		UserFriendlyMessage(Result{State: StateFailedNetwork}))
}

func TestStateFailed(t *testing.T) {
	failed := 0
	for _, s := range States {
		if s.Failed() {
			failed++
		}
	}
	assert.Equal(t, 4, failed)
	assert.False(t, StateCompletedSuccess.Failed())
}
