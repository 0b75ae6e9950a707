package user

import "context"

// Repository persists users together with their profiles.
type Repository interface {
	// Create inserts u and sets its ID and timestamps.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (User, error)
	// GetByEmail looks up a normalized email.
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	// Update writes name, role and profile.
	Update(ctx context.Context, u User) error
	Delete(ctx context.Context, id int64) error
}
