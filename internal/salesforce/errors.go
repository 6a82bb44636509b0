package salesforce

import "fmt"

// APIError is the generic error shape returned by the Salesforce REST API.
// The API reports errors as a JSON array of {message, errorCode} objects;
// only the first element is carried here.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("salesforce: %s (%s, http %d)", e.Message, e.ErrorCode, e.StatusCode)
}

// MalformedQueryError is raised when the service rejects a SOQL query.
// The message text is preserved verbatim: callers key capability detection
// off specific substrings (see export.DetectMultiCurrency).
type MalformedQueryError struct {
	APIError
}

// AuthError is raised when login fails or a session is rejected.
type AuthError struct {
	APIError
}

// malformed query and invalid field share the same caller-visible meaning:
// the query text referenced something this deployment cannot serve.
var malformedCodes = map[string]bool{
	"MALFORMED_QUERY": true,
	"INVALID_FIELD":   true,
	"INVALID_TYPE":    true,
}

var authCodes = map[string]bool{
	"INVALID_SESSION_ID":  true,
	"INVALID_LOGIN":       true,
	"INVALID_AUTH_HEADER": true,
}

// classifyAPIError wraps a raw API error into the typed taxonomy.
func classifyAPIError(status int, code, message string) error {
	base := APIError{StatusCode: status, ErrorCode: code, Message: message}
	switch {
	case malformedCodes[code]:
		return &MalformedQueryError{APIError: base}
	case authCodes[code] || status == 401:
		return &AuthError{APIError: base}
	default:
		return &base
	}
}
