// Package sanitizer normalizes user input before validation.
//
// Struct fields opt in with a `sanitize` tag listing sanitizers applied in
// order:
//
//	type UpdateRequest struct {
//		Name  string  `json:"name" sanitize:"single_line"`
//		Email string  `json:"email" sanitize:"trim,lower"`
//		Bio   *string `json:"bio" sanitize:"trim,no_control"`
//	}
//
//	if err := sanitizer.SanitizeStruct(&req); err != nil {
//		return err
//	}
//
// Strings, non-nil string pointers, string slices and nested structs are
// handled. Unknown sanitizer names fail with ErrUnknownSanitizer, so a typo
// in a tag is caught by the first request instead of silently ignored.
package sanitizer
