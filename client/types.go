package client

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole converts s into a Role. Unknown values fail.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Profile holds optional personal details.
type Profile struct {
	Bio   *string `json:"bio"`
	Phone *string `json:"phone"`
	Theme string  `json:"theme"`
}

// User is an account as returned by the API.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRole reports whether u has any of roles.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Notification is an entry of the notification feed.
type Notification struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Type      string         `json:"type"`
	Subject   string         `json:"subject,omitempty"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	ActionURL string         `json:"action_url,omitempty"`
	IsRead    bool           `json:"is_read"`
	Status    string         `json:"status"`
	ReadAt    *time.Time     `json:"read_at"`
	SentAt    time.Time      `json:"sent_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Credential string `json:"login_credential"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// UpdateUserRequest is the body of PUT /users/{id}/update.
// Nil fields are omitted and leave the stored value unchanged.
type UpdateUserRequest struct {
	Name  string  `json:"name"`
	Bio   *string `json:"bio,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Role  *Role   `json:"role,omitempty"`
}
