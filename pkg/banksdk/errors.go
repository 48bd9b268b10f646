package banksdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// OAuth2 error codes per RFC 6749.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeInvalidScope   = "invalid_scope"
	ErrorCodeServerError    = "server_error"
	ErrorCodeAccessDenied   = "access_denied"
)

// OAuth2Error represents a standard OAuth2 error response per RFC 6749,
// returned by the aggregator's token endpoint on a non-2xx response.
type OAuth2Error struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// IsInvalidGrant reports whether the server rejected the grant itself.
// During code exchange this means the code expired or was already used;
// during refresh it means the refresh token is no longer accepted.
func (e *OAuth2Error) IsInvalidGrant() bool { return e.Code == ErrorCodeInvalidGrant }

// IsInvalidRequest reports whether the request was malformed. During code
// exchange the usual cause is a redirect URI that does not byte-match the one
// used at authorization.
func (e *OAuth2Error) IsInvalidRequest() bool { return e.Code == ErrorCodeInvalidRequest }

// APIError represents a non-2xx response from a data endpoint: the server was
// reachable and answered, but refused or failed the request.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// DecodeError represents a 2xx response whose body could not be parsed into
// the expected shape: the server is reachable but the contract is broken.
// This is deliberately distinct from APIError so callers can tell
// "unreachable", "rejected" and "malformed" apart.
type DecodeError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.Endpoint, e.Err)
}

// Unwrap exposes the underlying decode failure.
func (e *DecodeError) Unwrap() error { return e.Err }

// parseTokenError turns a non-2xx token endpoint response into a typed error.
// Falls back to a generic server_error when the body is not an OAuth2 error.
func parseTokenError(resp *http.Response, body []byte) error {
	var errResp struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
