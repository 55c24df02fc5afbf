package audit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
)

// Classify maps any error raised while running an audit onto a failed
// Result. It never panics and accepts nil.
func Classify(err error) Result {
	var svc *ServiceError
	if errors.As(err, &svc) {
		return classifyService(svc)
	}
	if errors.Is(err, context.Canceled) {
		return HandleScanAborted(err)
	}
	if isNetworkError(err) {
		return HandleNetworkError(err)
	}
	return HandleScanAborted(err)
}

func classifyService(svc *ServiceError) Result {
	switch svc.Code {
	case CodePlanLimitReached, CodeInsufficientCredits:
		r := HandleQuotaExceeded(svc.Quota())
		if svc.Message != "" {
			r.ErrorMessage = svc.Message
		}
		r.QuotaInfo.Code = svc.Code
		return r
	case CodeFeatureNotAllowed:
		r := HandleSubscriptionError(svc)
		if svc.Message != "" {
			r.ErrorMessage = svc.Message
		}
		q := svc.Quota()
		r.QuotaInfo = &QuotaInfo{Used: q.Used, Limit: q.Limit, ResetTime: q.ResetTime, Code: svc.Code}
		return r
	}

	switch svc.Status {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return HandleQuotaExceeded(svc.Quota())
	case http.StatusUnauthorized, http.StatusPaymentRequired:
		return HandleSubscriptionError(svc)
	}
	return HandleScanAborted(svc)
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
