package response

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/starter/core/handler"
)

type statusCode interface {
	StatusCode() int
}

// fieldErrors is implemented by validator.ValidationErrors.
type fieldErrors interface {
	Fields() map[string][]string
	Order() []string
}

// AsHTTPError converts any error to an HTTPError.
// HTTPError values pass through, errors exposing StatusCode() map to the
// predefined error for that status, validation errors become a 422 with
// field messages, everything else becomes a 500.
func AsHTTPError(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var fe fieldErrors
	if errors.As(err, &fe) {
		return ValidationError(fe.Fields(), fe.Order()...)
	}

	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	base, ok := httpErrorsByStatus[status]
	if !ok {
		base = ErrInternalServerError
	}

	return base.WithError(err)
}

// JSONErrorHandler renders errors as JSON responses.
// Headers already set on the writer (Retry-After, Set-Cookie) are preserved.
func JSONErrorHandler[C handler.Context](ctx C, err error) {
	if ww, ok := ctx.ResponseWriter().(interface{ Written() bool }); ok && ww.Written() {
		return
	}
	httpErr := AsHTTPError(err)
	Render(ctx, JSONWithStatus(httpErr, httpErr.Status))
}
