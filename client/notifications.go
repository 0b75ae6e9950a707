package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

type notificationList struct {
	Notifications []Notification `json:"notifications"`
}

// Notifications returns the feed of the session user, newest first.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var out notificationList
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &out, "Failed to fetch notifications."); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// UnreadNotifications returns the unread part of the feed.
func (c *Client) UnreadNotifications(ctx context.Context) ([]Notification, error) {
	var out notificationList
	if err := c.do(ctx, http.MethodGet, "/notifications/unread", nil, &out, "Failed to fetch unread alerts."); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// MarkNotificationRead marks notification id as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) (Notification, error) {
	var out struct {
		Notification Notification `json:"notification"`
	}
	path := "/notifications/" + strconv.FormatInt(id, 10) + "/read"
	if err := c.do(ctx, http.MethodPatch, path, nil, &out, "Failed to update notification."); err != nil {
		return Notification{}, err
	}
	return out.Notification, nil
}

// MarkAllNotificationsRead marks the whole feed as read and returns how many
// notifications changed.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/notifications/read-all", nil, &out, "Failed to clear notifications."); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// DeleteNotification removes notification id.
func (c *Client) DeleteNotification(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/notifications/"+strconv.FormatInt(id, 10), nil, nil, "Failed to remove notification.")
}

// StreamNotifications receives new notifications over a WebSocket and calls
// fn for each one until ctx is done, fn fails, or the server closes the
// stream. A clean end returns nil.
func (c *Client) StreamNotifications(ctx context.Context, fn func(Notification) error) error {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/notifications/stream"

	header := http.Header{}
	header.Set("X-Requested-With", "XMLHttpRequest")
	dialer := websocket.Dialer{Jar: c.http.Jar, Proxy: http.ProxyFromEnvironment}

	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return c.fail(ctx, http.MethodGet, "/notifications/stream", parseError(resp), "Failed to open notification stream.")
		}
		return fmt.Errorf("client: dial notification stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var n Notification
		if err := conn.ReadJSON(&n); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("client: read notification: %w", err)
		}
		if err := fn(n); err != nil {
			if errors.Is(err, ErrStopStream) {
				return nil
			}
			return err
		}
	}
}
