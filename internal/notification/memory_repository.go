package notification

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryRepository keeps notifications in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	items  map[int64]Notification
	nextID int64
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[int64]Notification),
		now:   time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.now()
	n.ID = r.nextID
	n.CreatedAt, n.UpdatedAt = now, now
	if n.SentAt.IsZero() {
		n.SentAt = now
	}
	n.Data = maps.Clone(n.Data)
	r.items[n.ID] = *n
	return nil
}

// List returns newest first.
func (r *MemoryRepository) List(_ context.Context, userID int64, unreadOnly bool) ([]Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Notification, 0)
	for _, n := range r.items {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *MemoryRepository) MarkRead(_ context.Context, userID, id int64, at time.Time) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return Notification{}, ErrNotFound
	}
	n.markRead(at)
	r.items[id] = n
	return n, nil
}

func (r *MemoryRepository) MarkAllRead(_ context.Context, userID int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for id, n := range r.items {
		if n.UserID != userID || n.IsRead {
			continue
		}
		n.markRead(at)
		r.items[id] = n
		updated++
	}
	return updated, nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}
