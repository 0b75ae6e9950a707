// Package binder decodes request data into Go values.
//
// Bind decodes a JSON body, applies `sanitize` tags with core/sanitizer and
// validates the result with core/validator in one step:
//
//	req, err := binder.Bind[LoginRequest](ctx.Request())
//	if err != nil {
//		return response.Error(err)
//	}
//
// Binding failures carry their HTTP status, and validation failures render as
// 422 with field-keyed messages through response.AsHTTPError.
package binder

import (
	"net/http"

	"github.com/dmitrymomot/starter/core/sanitizer"
	"github.com/dmitrymomot/starter/core/validator"
)

// Binder binds request data to v.
type Binder func(r *http.Request, v any) error

// Bind decodes the JSON body of r into a new T, sanitizes and validates it.
func Bind[T any](r *http.Request) (T, error) {
	var v T
	if err := JSON()(r, &v); err != nil {
		return v, err
	}
	if err := sanitizer.SanitizeStruct(&v); err != nil {
		return v, err
	}
	if err := validator.ValidateStruct(&v); err != nil {
		return v, err
	}
	return v, nil
}
