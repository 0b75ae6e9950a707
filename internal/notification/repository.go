package notification

import (
	"context"
	"time"
)

// Repository stores notifications. Every method except Create is scoped to
// userID; rows of other users behave as missing.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id int64, at time.Time) (Notification, error)
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	Delete(ctx context.Context, userID, id int64) error
}
