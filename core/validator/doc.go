// Package validator checks structs against rules declared in `validate` tags.
//
// Rules are separated by semicolons, parameters follow a colon:
//
//	type LoginRequest struct {
//		Credential string `json:"login_credential" validate:"required;email;max:255"`
//		Password   string `json:"password" validate:"required"`
//	}
//
// Errors are keyed by the json name of the field, so they can be rendered
// as-is in a 422 response. Custom rules are added with RegisterValidator.
package validator
