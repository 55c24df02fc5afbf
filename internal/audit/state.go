// Package audit turns citation-audit outcomes into canonical results.
//
// The state machine is a classifier: each constructor builds an immutable
// Result for one outcome and the presentation helpers are pure functions of
// that Result. There is no long-lived machine and no current state.
package audit

// State is the outcome category of one audit invocation.
type State string

const (
	StateIdle                State = "IDLE"
	StateValidating          State = "VALIDATING"
	StateScanning            State = "SCANNING"
	StateCompletedSuccess    State = "COMPLETED_SUCCESS"
	StateCompletedNoIssues   State = "COMPLETED_NO_ISSUES"
	StateFailedQuotaExceeded State = "FAILED_QUOTA_EXCEEDED"
	StateFailedSubscription  State = "FAILED_SUBSCRIPTION_ERROR"
	StateFailedNetwork       State = "FAILED_NETWORK_ERROR"
	StateFailedScanAborted   State = "FAILED_SCAN_ABORTED"
)

// States lists every state in declaration order.
var States = []State{
	StateIdle,
	StateValidating,
	StateScanning,
	StateCompletedSuccess,
	StateCompletedNoIssues,
	StateFailedQuotaExceeded,
	StateFailedSubscription,
	StateFailedNetwork,
	StateFailedScanAborted,
}

// Failed reports whether s is one of the FAILED_* states.
func (s State) Failed() bool {
	switch s {
	case StateFailedQuotaExceeded, StateFailedSubscription, StateFailedNetwork, StateFailedScanAborted:
		return true
	}
	return false
}

const (
	msgQuotaExceeded = "Citation check usage limit reached. Please upgrade your plan or wait for quota reset."
	msgSubscription  = "Subscription verification failed. Please check your account status."
	msgNetwork       = "Network connection failed. Please check your internet connection."
	msgAbortedPrefix = "Audit processing failed"
)

// Anchor is a span of the document a flag points at.
type Anchor struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Flag is one violation reported by the audit backend or derived from a
// failed verification.
type Flag struct {
	Type     string  `json:"type"`
	RuleID   string  `json:"ruleId"`
	Message  string  `json:"message"`
	Anchor   *Anchor `json:"anchor,omitempty"`
	Section  string  `json:"section,omitempty"`
	Expected string  `json:"expected,omitempty"`
}

// VerificationResult reports whether an inline citation could be matched to
// a real source.
type VerificationResult struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	InlineLocation Anchor `json:"inlineLocation"`
}

// QuotaInfo describes the quota that stopped an audit.
type QuotaInfo struct {
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	ResetTime string `json:"resetTime,omitempty"`
	Code      string `json:"code,omitempty"`
}

// QuotaPayload is the quota detail attached to a quota failure. Missing
// fields stay zero.
type QuotaPayload struct {
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	ResetTime string `json:"resetTime,omitempty"`
}

// ProcessingStats summarises the work done for one audit.
type ProcessingStats struct {
	TotalChunks     int `json:"totalChunks"`
	TotalCharacters int `json:"totalCharacters"`
	CitationsFound  int `json:"citationsFound"`
	FlagsDetected   int `json:"flagsDetected"`
}

// Result is the canonical record of one audit outcome.
type Result struct {
	State               State                `json:"state"`
	Violations          []Flag               `json:"violations"`
	VerificationResults []VerificationResult `json:"verificationResults,omitempty"`
	ErrorMessage        string               `json:"errorMessage,omitempty"`
	QuotaInfo           *QuotaInfo           `json:"quotaInfo,omitempty"`
	ProcessingStats     *ProcessingStats     `json:"processingStats,omitempty"`
}

// ValidateInitialState is the result shown while a request is validated.
func ValidateInitialState() Result {
	return Result{State: StateValidating, Violations: []Flag{}}
}

// HandleSuccessfulScan classifies a completed audit by whether it found any
// violations. stats and verification are carried through untouched.
func HandleSuccessfulScan(violations []Flag, stats *ProcessingStats, verification []VerificationResult) Result {
	state := StateCompletedNoIssues
	if len(violations) > 0 {
		state = StateCompletedSuccess
	}
	if violations == nil {
		violations = []Flag{}
	}
	return Result{
		State:               state,
		Violations:          violations,
		VerificationResults: verification,
		ProcessingStats:     stats,
	}
}

// HandleQuotaExceeded builds the quota failure result.
func HandleQuotaExceeded(p QuotaPayload) Result {
	return Result{
		State:        StateFailedQuotaExceeded,
		Violations:   []Flag{},
		ErrorMessage: msgQuotaExceeded,
		QuotaInfo: &QuotaInfo{
			Used:      p.Used,
			Limit:     p.Limit,
			ResetTime: p.ResetTime,
		},
	}
}

// HandleSubscriptionError builds the subscription failure result. The error
// itself is not retained.
func HandleSubscriptionError(error) Result {
	return Result{
		State:        StateFailedSubscription,
		Violations:   []Flag{},
		ErrorMessage: msgSubscription,
	}
}

// HandleNetworkError builds the connectivity failure result. The error itself
// is not retained.
func HandleNetworkError(error) Result {
	return Result{
		State:        StateFailedNetwork,
		Violations:   []Flag{},
		ErrorMessage: msgNetwork,
	}
}

// HandleScanAborted builds the result for failures that fit no other
// category.
func HandleScanAborted(err error) Result {
	msg := msgAbortedPrefix
	if err != nil {
		msg += ": " + err.Error()
	}
	return Result{
		State:        StateFailedScanAborted,
		Violations:   []Flag{},
		ErrorMessage: msg,
	}
}
