package envelope

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors.
var (
	ErrUnconvertiblePayload = errors.New("payload is not convertible to a mapping or sequence")
	ErrInvalidConfig        = errors.New("invalid envelope config")
	ErrNotAcceptable        = errors.New("no acceptable response encoding")
	ErrReservedKey          = errors.New("data key is reserved")

	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindBody   = errors.New("bind body")
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ErrorDetailer is implemented by errors that carry structured detail for
// the errors field of an error envelope.
type ErrorDetailer interface {
	ErrorDetail() any
}

// HTTPError is an error with an HTTP status code and optional detail.
type HTTPError struct {
	Status  int
	Message string
	Errors  any
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// ErrorDetail returns the structured detail, or nil.
func (e *HTTPError) ErrorDetail() any { return e.Errors }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorWithDetail returns an error whose detail is rendered in the errors field.
func ErrorWithDetail(status int, message string, detail any) error {
	return &HTTPError{Status: status, Message: message, Errors: detail}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors collects field failures. It renders as a 422 whose
// errors field maps each field to its messages:
//
//	{"email": ["is required", "must contain @"]}
type ValidationErrors []ValidationError

// Add appends a failure for field.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// Err returns v as an error, or nil when empty.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + ": " + e.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StatusCode returns 422.
func (v ValidationErrors) StatusCode() int { return http.StatusUnprocessableEntity }

// ErrorDetail groups messages by field.
func (v ValidationErrors) ErrorDetail() any {
	out := make(map[string][]string, len(v))
	for _, e := range v {
		out[e.Field] = append(out[e.Field], e.Message)
	}
	return out
}
