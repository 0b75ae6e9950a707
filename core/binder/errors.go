package binder

import "net/http"

// Error is a binding failure with the HTTP status it maps to.
type Error struct {
	Status  int
	Message string
}

func (e Error) Error() string   { return e.Message }
func (e Error) StatusCode() int { return e.Status }

var (
	ErrMissingContentType   = Error{http.StatusUnsupportedMediaType, "missing content type, expected application/json"}
	ErrUnsupportedMediaType = Error{http.StatusUnsupportedMediaType, "unsupported media type"}
	ErrFailedToParseJSON    = Error{http.StatusBadRequest, "failed to parse JSON request body"}
	ErrBodyTooLarge         = Error{http.StatusRequestEntityTooLarge, "request body too large"}
	ErrInvalidPathParam     = Error{http.StatusNotFound, "invalid path parameter"}
)
