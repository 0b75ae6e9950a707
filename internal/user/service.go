package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrymomot/starter/core/logger"
)

// Notifier tells a user about changes made to their account by someone else.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, subject, message string) error
}

// Service implements user management on top of a Repository.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNotifier sends a notification when an admin changes another user's role.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a new account.
type CreateParams struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// Create registers a user. The email is normalized and the password hashed.
func (s *Service) Create(ctx context.Context, p CreateParams) (User, error) {
	if !p.Role.Valid() {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, p.Role)
	}
	hash, err := HashPassword(p.Password)
	if err != nil {
		return User{}, err
	}

	u := User{
		Name:         p.Name,
		Email:        NormalizeEmail(p.Email),
		PasswordHash: hash,
		Role:         p.Role,
		Profile:      Profile{Theme: ThemeSystem},
	}
	if err := s.repo.Create(ctx, &u); err != nil {
		return User{}, err
	}

	s.logger.InfoContext(ctx, "user created",
		logger.UserID(u.ID),
		logger.Email(u.Email),
		slog.String("role", u.Role.String()),
	)
	return u, nil
}

// Get returns the user with id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail looks up a user by email in any letter case.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

// List returns all users ordered by ID.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdateParams holds profile changes. Nil fields keep their current value.
type UpdateParams struct {
	Name  string
	Bio   *string
	Phone *string
	Role  *Role
}

// Update applies p to the user with id on behalf of actor.
// It reports whether anything changed; an unchanged user is not written.
func (s *Service) Update(ctx context.Context, actor User, id int64, p UpdateParams) (User, bool, error) {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, false, err
	}
	if !actor.CanManage(target) {
		return User{}, false, ErrForbidden
	}
	if p.Role != nil {
		if !actor.Role.IsAdmin() {
			return User{}, false, ErrRoleProhibited
		}
		if !p.Role.Assignable() {
			return User{}, false, fmt.Errorf("%w: %q", ErrInvalidRole, *p.Role)
		}
	}

	updated := target
	updated.Name = p.Name
	if p.Role != nil {
		updated.Role = *p.Role
	}
	if p.Bio != nil {
		updated.Profile.Bio = p.Bio
	}
	if p.Phone != nil {
		updated.Profile.Phone = p.Phone
	}

	if !changed(target, updated) {
		return target, false, nil
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return User{}, false, err
	}

	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, false, err
	}

	if result.Role != target.Role && actor.ID != target.ID {
		s.notifyRoleChange(ctx, result)
	}
	s.logger.InfoContext(ctx, "user updated",
		logger.UserID(result.ID),
		slog.Int64("actor_id", actor.ID),
	)
	return result, true, nil
}

// Delete removes the user with id on behalf of actor.
func (s *Service) Delete(ctx context.Context, actor User, id int64) error {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(target) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted",
		logger.UserID(id),
		slog.Int64("actor_id", actor.ID),
	)
	return nil
}

// Authenticate returns the user owning email when password matches.
// Unknown emails still spend a bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, bool, error) {
	u, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		CheckDummyPassword(password)
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return User{}, false, nil
	}
	return u, true, nil
}

func (s *Service) notifyRoleChange(ctx context.Context, u User) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyUser(ctx, u.ID,
		"Role updated",
		fmt.Sprintf("Your role was changed to %s.", u.Role),
	); err != nil {
		s.logger.WarnContext(ctx, "failed to send role change notification",
			logger.UserID(u.ID),
			logger.Error(err),
		)
	}
}

func changed(before, after User) bool {
	return before.Name != after.Name ||
		before.Role != after.Role ||
		!equalPtr(before.Profile.Bio, after.Profile.Bio) ||
		!equalPtr(before.Profile.Phone, after.Profile.Phone)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
