package auditboard

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	baseURLRequiredMessageConstant        = "base_url or AUDITBOARD_BASE_URL required"
	apiTokenRequiredMessageConstant       = "api_token or AUDITBOARD_API_TOKEN required"
	statusErrorTemplateConstant           = "%s %s returned status %d"
	statusErrorWithBodyTemplateConstant   = "%s %s returned status %d: %s"
	requestErrorTemplateConstant          = "%s %s failed: %s"
	retriesExhaustedTemplateConstant      = "%s %s failed after %d retries: %s"
	responseDecodingErrorTemplateConstant = "decoding %s response failed: %w"
)

// Configuration validation sentinels surfaced before any network call.
var (
	ErrBaseURLRequired  = errors.New(baseURLRequiredMessageConstant)
	ErrAPITokenRequired = errors.New(apiTokenRequiredMessageConstant)
)

// StatusError reports a non-success HTTP status that is not retried.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

// Error describes the failed request.
func (statusError *StatusError) Error() string {
	if len(statusError.Body) == 0 {
		return fmt.Sprintf(statusErrorTemplateConstant, statusError.Method, statusError.Endpoint, statusError.StatusCode)
	}
	return fmt.Sprintf(statusErrorWithBodyTemplateConstant, statusError.Method, statusError.Endpoint, statusError.StatusCode, statusError.Body)
}

// RequestError wraps a transport failure or an exhausted retry budget.
type RequestError struct {
	Method     string
	Endpoint   string
	RetryCount int
	Cause      error
}

// Error describes the request failure.
func (requestError *RequestError) Error() string {
	if requestError.RetryCount > 0 {
		return fmt.Sprintf(retriesExhaustedTemplateConstant, requestError.Method, requestError.Endpoint, requestError.RetryCount, requestError.Cause)
	}
	return fmt.Sprintf(requestErrorTemplateConstant, requestError.Method, requestError.Endpoint, requestError.Cause)
}

// Unwrap exposes the underlying transport error.
func (requestError *RequestError) Unwrap() error {
	return requestError.Cause
}

// IsNotFound reports whether the error is a 404 status response.
func IsNotFound(candidateError error) bool {
	var statusError *StatusError
	if errors.As(candidateError, &statusError) {
		return statusError.StatusCode == http.StatusNotFound
	}
	return false
}
