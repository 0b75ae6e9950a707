package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/internal/notification"
	"github.com/dmitrymomot/starter/pkg/broadcast"
)

func newService(t *testing.T) (*notification.Service, *broadcast.MemoryBroadcaster[notification.Notification]) {
	t.Helper()
	events := broadcast.NewMemoryBroadcaster[notification.Notification](8)
	t.Cleanup(func() { _ = events.Close() })
	return notification.NewService(notification.NewMemoryRepository(), events), events
}

func TestService_Notify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)

	n, err := svc.Notify(ctx, notification.NewNotification{
		UserID:    1,
		Subject:   "Welcome",
		Message:   "Hello there",
		Data:      map[string]any{"source": "signup"},
		ActionURL: "/profile",
	})
	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.Equal(t, notification.TypeSystem, n.Type)
	assert.Equal(t, notification.StatusSent, n.Status)
	assert.False(t, n.IsRead)
	assert.False(t, n.SentAt.IsZero())

	_, err = svc.Notify(ctx, notification.NewNotification{UserID: 1, Type: "pigeon", Message: "x"})
	assert.ErrorIs(t, err, notification.ErrInvalidType)

	_, err = svc.Notify(ctx, notification.NewNotification{UserID: 1, Message: "  "})
	assert.ErrorIs(t, err, notification.ErrEmptyMessage)
}

func TestService_ReadState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)

	first, err := svc.Notify(ctx, notification.NewNotification{UserID: 1, Message: "first"})
	require.NoError(t, err)
	_, err = svc.Notify(ctx, notification.NewNotification{UserID: 1, Message: "second", Type: notification.TypeEmail})
	require.NoError(t, err)
	foreign, err := svc.Notify(ctx, notification.NewNotification{UserID: 2, Message: "not yours"})
	require.NoError(t, err)

	all, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Message, "newest first")

	read, err := svc.MarkRead(ctx, 1, first.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	again, err := svc.MarkRead(ctx, 1, first.ID)
	require.NoError(t, err)
	assert.Equal(t, *read.ReadAt, *again.ReadAt)

	unread, err := svc.Unread(ctx, 1)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "second", unread[0].Message)

	_, err = svc.MarkRead(ctx, 1, foreign.ID)
	assert.ErrorIs(t, err, notification.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 1, foreign.ID), notification.ErrNotFound)

	updated, err := svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	unread, err = svc.Unread(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, unread, 1, "other users are untouched")

	require.NoError(t, svc.Delete(ctx, 1, first.ID))
	all, err = svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_Stream(t *testing.T) {
	t.Parallel()
	svc, events := newService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan notification.Notification, 4)
	done := make(chan error, 1)
	go func() {
		done <- svc.Stream(ctx, 1, func(n notification.Notification) error {
			got <- n
			return nil
		})
	}()
	require.Eventually(t, func() bool { return events.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	_, err := svc.Notify(context.Background(), notification.NewNotification{UserID: 2, Message: "for someone else"})
	require.NoError(t, err)
	_, err = svc.Notify(context.Background(), notification.NewNotification{UserID: 1, Message: "for you"})
	require.NoError(t, err)

	select {
	case n := <-got:
		assert.Equal(t, "for you", n.Message)
	case <-time.After(time.Second):
		t.Fatal("notification was not streamed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stream did not stop")
	}
	assert.Empty(t, got)
}

func TestService_StreamCallbackError(t *testing.T) {
	t.Parallel()
	svc, events := newService(t)
	boom := errors.New("write failed")

	done := make(chan error, 1)
	go func() {
		done <- svc.Stream(context.Background(), 1, func(notification.Notification) error { return boom })
	}()
	require.Eventually(t, func() bool { return events.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	_, err := svc.Notify(context.Background(), notification.NewNotification{UserID: 1, Message: "hi"})
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("stream did not stop")
	}
	assert.Eventually(t, func() bool { return events.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
