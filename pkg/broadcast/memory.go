package broadcast

import (
	"context"
	"sync"
)

// MemoryBroadcaster delivers messages in process.
// Delivery never blocks: a subscriber whose buffer is full misses the message.
type MemoryBroadcaster[T any] struct {
	mu          sync.RWMutex
	subscribers map[*memorySubscriber[T]]struct{}
	bufferSize  int
	closed      bool
}

// NewMemoryBroadcaster creates a broadcaster with bufferSize messages per subscriber.
func NewMemoryBroadcaster[T any](bufferSize int) *MemoryBroadcaster[T] {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &MemoryBroadcaster[T]{
		subscribers: make(map[*memorySubscriber[T]]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a subscriber that lives until ctx is done or Close is called.
// Subscribing to a closed broadcaster returns an already closed subscriber.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	sub := &memorySubscriber[T]{
		ch:          make(chan Message[T], b.bufferSize),
		done:        make(chan struct{}),
		broadcaster: b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.closeOnce.Do(func() {
			close(sub.done)
			close(sub.ch)
		})
		return sub
	}
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub
}

// Broadcast sends msg to every subscriber with room in its buffer.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBroadcasterClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for sub := range b.subscribers {
		select {
		case sub.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of active subscribers.
func (b *MemoryBroadcaster[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close ends all subscriptions. It is safe to call more than once.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subscribers
	b.subscribers = make(map[*memorySubscriber[T]]struct{})
	b.mu.Unlock()

	for sub := range subs {
		sub.shutdown()
	}
	return nil
}

func (b *MemoryBroadcaster[T]) remove(sub *memorySubscriber[T]) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
}

type memorySubscriber[T any] struct {
	ch          chan Message[T]
	done        chan struct{}
	closeOnce   sync.Once
	broadcaster *MemoryBroadcaster[T]
}

// Receive returns the message channel. It is closed when the subscriber is closed.
// The ctx argument stops the returned channel early when it is done.
func (s *memorySubscriber[T]) Receive(ctx context.Context) <-chan Message[T] {
	out := make(chan Message[T])
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-s.ch:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				case <-s.done:
					return
				}
			}
		}
	}()
	return out
}

func (s *memorySubscriber[T]) Close() error {
	s.broadcaster.remove(s)
	s.shutdown()
	return nil
}

// shutdown closes the channels. The caller must have removed s from the
// broadcaster first, so no Broadcast can be sending on s.ch.
func (s *memorySubscriber[T]) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		close(s.ch)
	})
}
