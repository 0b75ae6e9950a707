package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/starter/core/handler"
)

var (
	ErrNoContextFactory = errors.New("no context factory provided")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrNotFound         = errors.New("not found")
	ErrNilResponse      = errors.New("nil response")
	ErrInvalidMethod    = errors.New("invalid http method")
	ErrInvalidPattern   = errors.New("invalid route path pattern")
	ErrNilSubrouter     = errors.New("nil subrouter")
)

type statusCode interface {
	StatusCode() int
}

// routingError attaches an HTTP status to the router's own errors.
type routingError struct {
	err    error
	status int
}

func (e routingError) Error() string   { return e.err.Error() }
func (e routingError) StatusCode() int { return e.status }
func (e routingError) Unwrap() error   { return e.err }

var (
	errNotFound         = routingError{err: ErrNotFound, status: http.StatusNotFound}
	errMethodNotAllowed = routingError{err: ErrMethodNotAllowed, status: http.StatusMethodNotAllowed}
)

// defaultErrorHandler writes err as plain text.
func defaultErrorHandler[C handler.Context](ctx C, err error) {
	w := ctx.ResponseWriter()
	if ww, ok := w.(*responseWriter); ok && ww.Written() {
		return
	}

	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	http.Error(w, err.Error(), status)
}

// PanicError is passed to the error handler when a handler panics.
type PanicError interface {
	error
	Value() any
	Stack() []byte
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Value() any {
	return e.value
}

func (e *panicError) Stack() []byte {
	return e.stack
}

// Unwrap allows errors.Is/As on panics with error values.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
