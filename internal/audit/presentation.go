package audit

import "fmt"

// ToastVariant is the visual severity of a notification.
type ToastVariant string

const (
	ToastDefault     ToastVariant = "default"
	ToastDestructive ToastVariant = "destructive"
)

// UserFriendlyMessage returns the message shown for r.
func UserFriendlyMessage(r Result) string {
	switch r.State {
	case StateCompletedSuccess:
		return fmt.Sprintf("Audit complete! Found %d citation issues.", len(r.Violations))
	case StateCompletedNoIssues:
		return "Audit complete! No citation issues found."
	case StateFailedQuotaExceeded:
		return orDefault(r.ErrorMessage, "Usage limit exceeded. Please upgrade.")
	case StateFailedSubscription:
		return orDefault(r.ErrorMessage, "Account verification required.")
	case StateFailedNetwork:
		return orDefault(r.ErrorMessage, "Connection failed. Please try again.")
	case StateFailedScanAborted:
		return orDefault(r.ErrorMessage, "Audit could not be completed. Please try again.")
	case StateIdle:
		return "Ready to audit citations."
	case StateValidating:
		return "Validating document..."
	case StateScanning:
		return "Scanning citations..."
	}
	return "Audit completed."
}

// ShouldShowToast reports whether r warrants a notification. Network failures
// are left to the generic connectivity banner.
func ShouldShowToast(r Result) bool {
	switch r.State {
	case StateCompletedSuccess, StateCompletedNoIssues, StateFailedQuotaExceeded, StateFailedSubscription:
		return true
	}
	return false
}

// ToastVariantFor returns the severity of r's notification. Found issues are
// destructive even though the scan succeeded.
func ToastVariantFor(r Result) ToastVariant {
	if r.State == StateCompletedSuccess || r.State.Failed() {
		return ToastDestructive
	}
	return ToastDefault
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
