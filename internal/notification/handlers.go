package notification

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/starter/core/binder"
	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/response"
	"github.com/dmitrymomot/starter/internal/user"
	"github.com/dmitrymomot/starter/middleware"
)

const writeWait = 10 * time.Second

// ListResponse carries a list of notifications.
type ListResponse struct {
	Message       string         `json:"message"`
	Notifications []Notification `json:"notifications"`
}

// ItemResponse carries a single notification.
type ItemResponse struct {
	Message      string       `json:"message"`
	Notification Notification `json:"notification"`
}

// ReadAllResponse is returned by POST /notifications/read-all.
type ReadAllResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

// Handlers serves the notification endpoints. All of them must run behind
// RequireAuth and act on the session user only.
type Handlers[C handler.Context] struct {
	svc       *Service
	wsOptions []response.WebSocketOption
}

// NewHandlers creates the notification endpoints. wsOptions configure the
// stream upgrade, for example the allowed origins.
func NewHandlers[C handler.Context](svc *Service, wsOptions ...response.WebSocketOption) *Handlers[C] {
	return &Handlers[C]{svc: svc, wsOptions: wsOptions}
}

// List handles GET /notifications.
func (h *Handlers[C]) List(ctx C) handler.Response {
	return h.list(ctx, false)
}

// Unread handles GET /notifications/unread.
func (h *Handlers[C]) Unread(ctx C) handler.Response {
	return h.list(ctx, true)
}

func (h *Handlers[C]) list(ctx C, unread bool) handler.Response {
	u, ok := middleware.GetUser[user.User](ctx)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}

	var (
		items []Notification
		err   error
		msg   = "Notifications retrieved successfully."
	)
	if unread {
		items, err = h.svc.Unread(ctx, u.ID)
		msg = "Unread notifications retrieved."
	} else {
		items, err = h.svc.List(ctx, u.ID)
	}
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(ListResponse{Message: msg, Notifications: items})
}

// MarkRead handles PATCH /notifications/{id}/read.
func (h *Handlers[C]) MarkRead(ctx C) handler.Response {
	u, ok := middleware.GetUser[user.User](ctx)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	id, err := binder.PathInt64(ctx.Request(), "id")
	if err != nil {
		return response.Error(err)
	}

	n, err := h.svc.MarkRead(ctx, u.ID, id)
	if err != nil {
		return response.Error(httpError(err))
	}
	return response.JSON(ItemResponse{Message: "Notification marked as read.", Notification: n})
}

// MarkAllRead handles POST /notifications/read-all.
func (h *Handlers[C]) MarkAllRead(ctx C) handler.Response {
	u, ok := middleware.GetUser[user.User](ctx)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}

	n, err := h.svc.MarkAllRead(ctx, u.ID)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(ReadAllResponse{Message: "All notifications marked as read.", Updated: n})
}

// Delete handles DELETE /notifications/{id}.
func (h *Handlers[C]) Delete(ctx C) handler.Response {
	u, ok := middleware.GetUser[user.User](ctx)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	id, err := binder.PathInt64(ctx.Request(), "id")
	if err != nil {
		return response.Error(err)
	}

	if err := h.svc.Delete(ctx, u.ID, id); err != nil {
		return response.Error(httpError(err))
	}
	return response.Message("Notification deleted.")
}

// Stream handles GET /notifications/stream. New notifications of the session
// user are written as JSON text frames until the client goes away.
func (h *Handlers[C]) Stream(ctx C) handler.Response {
	u, ok := middleware.GetUser[user.User](ctx)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}

	return response.WebSocket(func(connCtx context.Context, conn *websocket.Conn) error {
		connCtx, cancel := context.WithCancel(connCtx)
		defer cancel()

		// The read loop only notices the close frame or a dropped peer.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		err := h.svc.Stream(connCtx, u.ID, func(n Notification) error {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			return conn.WriteJSON(n)
		})
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil
		}
		return err
	}, h.wsOptions...)
}

func httpError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return response.ErrNotFound
	}
	return err
}
