package errors

import "fmt"

// ErrorType classifies a failure for retry decisions
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeBadInput    ErrorType = "bad_input"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a typed error carrying the failure class and, for HTTP
// failures, the status code
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsRetryable reports whether an error type is transient. Malformed
// content and bad input are terminal: retrying cannot fix them.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeParsing, ErrorTypeNotFound, ErrorTypeBadInput:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a
// retryable error. Every non-2xx status counts as transient; terminal
// classification is reserved for parse and input errors.
func IsRetryableStatusCode(statusCode int) bool {
	if statusCode == 0 { // transport failure, no response
		return true
	}
	return statusCode < 200 || statusCode > 299
}
