package broadcast

import "context"

// Message wraps broadcast data.
type Message[T any] struct {
	Data T
}

// Broadcaster sends messages to all current subscribers.
type Broadcaster[T any] interface {
	Subscribe(ctx context.Context) Subscriber[T]
	Broadcast(ctx context.Context, msg Message[T]) error
	Close() error
}

// Subscriber receives broadcast messages.
type Subscriber[T any] interface {
	// Receive returns a channel closed when the subscription ends.
	Receive(ctx context.Context) <-chan Message[T]
	Close() error
}
