package app

import (
	"fmt"
	"net/http"
)

// DomainError is a failure the HTTP layer reports as is. Status becomes the
// response code and Code the stable identifier clients branch on, such as
// QUOTA_EXCEEDED or INVALID_DOCUMENT. Details, when set, is sent alongside
// the message (quota usage, parser reasons).
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// validationError reports a malformed request.
func validationError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}
