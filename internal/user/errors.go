package user

import "errors"

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailTaken     = errors.New("email is already registered")
	ErrInvalidRole    = errors.New("invalid role")
	ErrInvalidTheme   = errors.New("invalid theme")
	ErrForbidden      = errors.New("not allowed to manage this user")
	ErrRoleProhibited = errors.New("not allowed to modify roles")
	ErrWeakPassword   = errors.New("password must be at least 8 characters")
)
