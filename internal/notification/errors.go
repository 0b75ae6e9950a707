package notification

import "errors"

var (
	ErrNotFound      = errors.New("notification not found")
	ErrInvalidType   = errors.New("invalid notification type")
	ErrInvalidStatus = errors.New("invalid notification status")
	ErrEmptyMessage  = errors.New("notification message is required")
)
