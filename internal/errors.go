package internal

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorType classifies a failed service response
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrBadRequest
	ErrAuthRequired
	ErrForbidden
	ErrFileNotFound
	ErrRateLimit
	ErrServer
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// ServiceError is returned for every non-200 response. It carries the raw
// response body and status code exactly as received.
type ServiceError struct {
	StatusCode int                    `json:"status_code"`
	Body       string                 `json:"body"`
	Type       ErrorType              `json:"type"`
	Severity   ErrorSeverity          `json:"severity"`
	URL        string                 `json:"url,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	parts := []string{fmt.Sprintf("filestack error (status: %d, type: %s)", e.StatusCode, e.Type.String())}

	if body := strings.TrimSpace(e.Body); body != "" {
		parts = append(parts, body)
	}

	return strings.Join(parts, " - ")
}

// DetailedError returns a multi-line description including the redacted
// request URL, context and suggestion
func (e *ServiceError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s Error", e.Severity.String(), e.Type.String()))
	parts = append(parts, fmt.Sprintf("Status: %d", e.StatusCode))
	if e.Body != "" {
		parts = append(parts, fmt.Sprintf("Body: %s", e.Body))
	}

	if e.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s", redactSensitiveURL(e.URL)))
	}

	if len(e.Context) > 0 {
		parts = append(parts, fmt.Sprintf("Context: %s", formatContext(e.Context)))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrBadRequest:
		return "BadRequest"
	case ErrAuthRequired:
		return "AuthRequired"
	case ErrForbidden:
		return "Forbidden"
	case ErrFileNotFound:
		return "FileNotFound"
	case ErrRateLimit:
		return "RateLimit"
	case ErrServer:
		return "Server"
	default:
		return "Unknown"
	}
}

// String returns the string representation of ErrorSeverity
func (es ErrorSeverity) String() string {
	switch es {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NewServiceError builds a ServiceError from a response status and body
func NewServiceError(statusCode int, body string) *ServiceError {
	errorType := classifyStatus(statusCode)
	return &ServiceError{
		StatusCode: statusCode,
		Body:       body,
		Type:       errorType,
		Severity:   getDefaultSeverity(errorType),
		Suggestion: getDefaultSuggestion(errorType),
		Context:    make(map[string]interface{}),
	}
}

// WithURL records the request URL; it is redacted when rendered
func (e *ServiceError) WithURL(url string) *ServiceError {
	e.URL = url
	return e
}

// WithSuggestion overrides the default suggestion
func (e *ServiceError) WithSuggestion(suggestion string) *ServiceError {
	e.Suggestion = suggestion
	return e
}

// WithContext adds context information to the error
func (e *ServiceError) WithContext(key string, value interface{}) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsNotFound reports whether the service answered 404
func (e *ServiceError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsRetryable reports whether a caller may reasonably retry the request.
// The client itself never retries.
func (e *ServiceError) IsRetryable() bool {
	return e.Type == ErrRateLimit || e.Type == ErrServer
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field      string                 `json:"field"`
	Message    string                 `json:"message"`
	Value      interface{}            `json:"value,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := []string{fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, " - ")
}

// DetailedError returns a detailed validation error message
func (e *ValidationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Validation Error for field '%s'", e.Field))
	parts = append(parts, fmt.Sprintf("Message: %s", e.Message))

	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("Provided value: %v", e.Value))
	}

	if len(e.Context) > 0 {
		parts = append(parts, fmt.Sprintf("Context: %s", formatContext(e.Context)))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewValidationErrorWithValue creates a ValidationError with the invalid value
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	err := NewValidationError(field, message)
	err.Value = value
	return err
}

// WithSuggestion adds a suggestion to the validation error
func (e *ValidationError) WithSuggestion(suggestion string) *ValidationError {
	e.Suggestion = suggestion
	return e
}

// WithContext adds context to the validation error
func (e *ValidationError) WithContext(key string, value interface{}) *ValidationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func classifyStatus(statusCode int) ErrorType {
	switch {
	case statusCode == http.StatusBadRequest:
		return ErrBadRequest
	case statusCode == http.StatusUnauthorized:
		return ErrAuthRequired
	case statusCode == http.StatusForbidden:
		return ErrForbidden
	case statusCode == http.StatusNotFound:
		return ErrFileNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimit
	case statusCode >= 500:
		return ErrServer
	default:
		return ErrUnknown
	}
}

func getDefaultSuggestion(errorType ErrorType) string {
	switch errorType {
	case ErrBadRequest:
		return "Check the handle, requested fields and store options"
	case ErrAuthRequired:
		return "Provide a valid API key with --api-key or FILESTACK_API_KEY"
	case ErrForbidden:
		return "The file may require a security policy; pass --policy and --signature"
	case ErrFileNotFound:
		return "Verify the file handle exists and has not been deleted"
	case ErrRateLimit:
		return "Too many requests; wait before retrying"
	case ErrServer:
		return "The service reported an internal error; try again later"
	default:
		return "Please check the error details and try again"
	}
}

func getDefaultSeverity(errorType ErrorType) ErrorSeverity {
	switch errorType {
	case ErrRateLimit, ErrServer:
		return SeverityWarning
	case ErrAuthRequired, ErrForbidden:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// redactSensitiveURL drops the query string, which may hold the API key or
// a signed policy
func redactSensitiveURL(url string) string {
	if idx := strings.Index(url, "?"); idx != -1 {
		return url[:idx] + "?[REDACTED]"
	}
	return url
}

func formatContext(context map[string]interface{}) string {
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	contextParts := make([]string, 0, len(keys))
	for _, k := range keys {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, context[k]))
	}
	return strings.Join(contextParts, ", ")
}
