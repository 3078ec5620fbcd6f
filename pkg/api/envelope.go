package api

import (
	"fmt"
	"net/http"
)

// Envelope is embedded in every response type. Status carries the HTTP status
// of the response ($status in the wire envelope); Detail and Field describe
// the problem on error responses.
type Envelope struct {
	Status int    `json:"$status"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
}

// StatusCode returns the normalized response status
func (e Envelope) StatusCode() int {
	return e.Status
}

// IsError reports whether the response carries an error status
func (e Envelope) IsError() bool {
	return e.Status >= 400
}

// ErrorDetail returns the server-provided error description, if any
func (e Envelope) ErrorDetail() string {
	return e.Detail
}

// ErrorField returns the field a validation error refers to, if any
func (e Envelope) ErrorField() string {
	return e.Field
}

func (e *Envelope) setStatus(code int) {
	e.Status = code
}

func (e *Envelope) setDetail(detail string) {
	if e.Detail == "" {
		e.Detail = detail
	}
}

// envelopeHolder is satisfied by pointers to response structs embedding Envelope
type envelopeHolder interface {
	setStatus(code int)
	setDetail(detail string)
}

// Response is any normalized API response
type Response interface {
	StatusCode() int
	ErrorDetail() string
	ErrorField() string
}

// APIError is the error form of a non-2xx response
type APIError struct {
	Status int
	Detail string
	Field  string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Detail)
}

// IsNotFound reports whether the error is a 404
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsForbidden reports whether the error is a 403
func (e *APIError) IsForbidden() bool {
	return e.Status == http.StatusForbidden
}

// IsValidation reports whether the error is a 422 with a field attached
func (e *APIError) IsValidation() bool {
	return e.Status == http.StatusUnprocessableEntity && e.Field != ""
}

func errorFrom(resp Response) *APIError {
	return &APIError{
		Status: resp.StatusCode(),
		Detail: resp.ErrorDetail(),
		Field:  resp.ErrorField(),
	}
}

// Explode returns the response directly and converts error statuses into an
// error return. Meant for simple read paths that have no use for partial data.
func Explode[T Response](resp T, err error) (T, error) {
	if err != nil {
		return resp, err
	}
	if resp.StatusCode() >= 400 {
		return resp, errorFrom(resp)
	}
	return resp, nil
}

// Result is a discriminated response pair: exactly one of Data or Err is
// meaningful
type Result[T Response] struct {
	Data T
	Err  *APIError
}

// Ok reports whether the result holds data
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Expand converts a response into a Result and never raises. Transport-level
// errors (request construction, context cancellation) become a synthetic 500.
func Expand[T Response](resp T, err error) Result[T] {
	if err != nil {
		return Result[T]{Data: resp, Err: &APIError{Status: http.StatusInternalServerError, Detail: err.Error()}}
	}
	if resp.StatusCode() >= 400 {
		return Result[T]{Data: resp, Err: errorFrom(resp)}
	}
	return Result[T]{Data: resp}
}
