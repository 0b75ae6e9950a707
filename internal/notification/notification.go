package notification

import (
	"fmt"
	"time"
)

// Type is the delivery channel a notification was created for.
type Type string

const (
	TypeSMS    Type = "sms"
	TypeEmail  Type = "email"
	TypeSystem Type = "system"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeSMS, TypeEmail, TypeSystem:
		return true
	}
	return false
}

// Status is the delivery state.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// Notification is a message addressed to one user.
type Notification struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Type      Type           `json:"type"`
	Subject   string         `json:"subject,omitempty"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	ActionURL string         `json:"action_url,omitempty"`
	IsRead    bool           `json:"is_read"`
	Status    Status         `json:"status"`
	ReadAt    *time.Time     `json:"read_at"`
	SentAt    time.Time      `json:"sent_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// markRead sets the read flag once; the first read time is kept.
func (n *Notification) markRead(at time.Time) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	n.ReadAt = &at
	n.UpdatedAt = at
}

func parseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func parseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}
