package notification

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/starter/core/logger"
	"github.com/dmitrymomot/starter/pkg/broadcast"
)

// Service stores notifications and publishes new ones to live streams.
type Service struct {
	repo   Repository
	events broadcast.Broadcaster[Notification]
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service. New notifications are broadcast on events.
func NewService(repo Repository, events broadcast.Broadcaster[Notification], opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		events: events,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewNotification describes a notification to create.
type NewNotification struct {
	UserID    int64
	Type      Type
	Subject   string
	Message   string
	Data      map[string]any
	ActionURL string
}

// Notify stores a notification and pushes it to the user's open streams.
// A failed broadcast is logged; the notification is still stored.
func (s *Service) Notify(ctx context.Context, p NewNotification) (Notification, error) {
	if p.Type == "" {
		p.Type = TypeSystem
	}
	if !p.Type.Valid() {
		return Notification{}, ErrInvalidType
	}
	if strings.TrimSpace(p.Message) == "" {
		return Notification{}, ErrEmptyMessage
	}

	n := Notification{
		UserID:    p.UserID,
		Type:      p.Type,
		Subject:   p.Subject,
		Message:   p.Message,
		Data:      p.Data,
		ActionURL: p.ActionURL,
		Status:    StatusSent,
		SentAt:    s.now(),
	}
	if err := s.repo.Create(ctx, &n); err != nil {
		return Notification{}, err
	}

	if s.events != nil {
		if err := s.events.Broadcast(ctx, broadcast.Message[Notification]{Data: n}); err != nil {
			s.logger.WarnContext(ctx, "failed to broadcast notification",
				logger.UserID(n.UserID),
				logger.Error(err),
			)
		}
	}
	return n, nil
}

// NotifyUser creates a system notification.
func (s *Service) NotifyUser(ctx context.Context, userID int64, subject, message string) error {
	_, err := s.Notify(ctx, NewNotification{
		UserID:  userID,
		Type:    TypeSystem,
		Subject: subject,
		Message: message,
	})
	return err
}

// List returns the notifications of userID, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]Notification, error) {
	return s.repo.List(ctx, userID, false)
}

// Unread returns the unread notifications of userID, newest first.
func (s *Service) Unread(ctx context.Context, userID int64) ([]Notification, error) {
	return s.repo.List(ctx, userID, true)
}

// MarkRead marks one notification of userID as read.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) (Notification, error) {
	return s.repo.MarkRead(ctx, userID, id, s.now())
}

// MarkAllRead marks every unread notification of userID and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

// Delete removes one notification of userID.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

// Stream calls fn for every notification created for userID until ctx is
// done, the broadcaster closes or fn returns an error.
func (s *Service) Stream(ctx context.Context, userID int64, fn func(Notification) error) error {
	if s.events == nil {
		<-ctx.Done()
		return nil
	}
	sub := s.events.Subscribe(ctx)
	defer sub.Close()

	for msg := range sub.Receive(ctx) {
		if msg.Data.UserID != userID {
			continue
		}
		if err := fn(msg.Data); err != nil {
			return err
		}
	}
	return nil
}
