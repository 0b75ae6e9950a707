package user

import "fmt"

// Role is the closed set of authorization roles.
// The zero value is not a valid role.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleAdmin, RoleSuperAdmin}

// ParseRole returns the role named s. Any other string fails with ErrInvalidRole.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r may manage other users.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return true
	case RoleUser:
		return false
	}
	return false
}

// Assignable reports whether r may be set through the API.
// Superadmins are created from the command line only.
func (r Role) Assignable() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	case RoleSuperAdmin:
		return false
	}
	return false
}

func (r Role) String() string { return string(r) }

// UnmarshalText rejects unknown roles, so decoded values are always valid.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
