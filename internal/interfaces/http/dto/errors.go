package dto

import "net/http"

// Error codes returned by the report API
const (
	// ErrCodeNotConfigured is used when the Magento connection is not configured
	ErrCodeNotConfigured = "NOT_CONFIGURED"
	// ErrCodeInvalidDate is used for malformed or inverted date ranges
	ErrCodeInvalidDate = "INVALID_DATE"
	// ErrCodeInvalidQuery is used for any other bad query parameter
	ErrCodeInvalidQuery = "INVALID_QUERY"
	// ErrCodeUpstreamAuthFailed is used when Magento rejects the credentials
	ErrCodeUpstreamAuthFailed = "UPSTREAM_AUTH_FAILED"
	// ErrCodeUpstreamError is used for any other Magento failure
	ErrCodeUpstreamError = "UPSTREAM_ERROR"
	// ErrCodeTimeout is used when the run did not finish in time
	ErrCodeTimeout = "TIMEOUT"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeNotConfigured:      http.StatusInternalServerError,
	ErrCodeInvalidDate:        http.StatusBadRequest,
	ErrCodeInvalidQuery:       http.StatusBadRequest,
	ErrCodeUpstreamAuthFailed: http.StatusUnauthorized,
	ErrCodeUpstreamError:      http.StatusBadGateway,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
