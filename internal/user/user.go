package user

import (
	"strings"
	"time"
)

// Theme is the UI theme preference stored in the profile.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Profile holds the optional personal details of a user.
type Profile struct {
	Bio   *string `json:"bio"`
	Phone *string `json:"phone"`
	Theme Theme   `json:"theme"`
}

// User is an account that can sign in.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the user has any of roles.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// CanManage reports whether u may update or delete target.
// Everyone manages themself and admins manage regular users and admins.
// Only a superadmin manages another superadmin.
func (u User) CanManage(target User) bool {
	if u.ID == target.ID {
		return true
	}
	if target.Role == RoleSuperAdmin {
		return u.Role == RoleSuperAdmin
	}
	return u.Role.IsAdmin()
}

// NormalizeEmail trims and lower-cases an address. Emails are stored normalized.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
