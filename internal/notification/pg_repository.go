package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/starter/integration/database/pg"
)

const columns = `id, user_id, type, COALESCE(subject, ''), message, data,
	COALESCE(action_url, ''), is_read, status, read_at, sent_at, created_at, updated_at`

// PgRepository keeps notifications in the notifications table.
type PgRepository struct {
	db pg.DBTX
}

func NewPgRepository(db pg.DBTX) *PgRepository {
	return &PgRepository{db: db}
}

func scanNotification(row pgx.Row) (Notification, error) {
	var (
		n           Notification
		typ, status string
	)
	if err := row.Scan(
		&n.ID, &n.UserID, &typ, &n.Subject, &n.Message, &n.Data,
		&n.ActionURL, &n.IsRead, &status, &n.ReadAt, &n.SentAt, &n.CreatedAt, &n.UpdatedAt,
	); err != nil {
		return Notification{}, err
	}
	var err error
	if n.Type, err = parseType(typ); err != nil {
		return Notification{}, err
	}
	if n.Status, err = parseStatus(status); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (r *PgRepository) Create(ctx context.Context, n *Notification) error {
	sentAt := n.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	err := pg.Querier(ctx, r.db).QueryRow(ctx,
		`INSERT INTO notifications (user_id, type, subject, message, data, action_url, status, sent_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8)
		RETURNING id, created_at, updated_at`,
		n.UserID, string(n.Type), n.Subject, n.Message, n.Data, n.ActionURL, string(n.Status), sentAt,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("notification: insert: %w", err)
	}
	n.SentAt = sentAt
	return nil
}

func (r *PgRepository) List(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error) {
	query := `SELECT ` + columns + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := pg.Querier(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("notification: list: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("notification: scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification: list: %w", err)
	}
	return out, nil
}

func (r *PgRepository) MarkRead(ctx context.Context, userID, id int64, at time.Time) (Notification, error) {
	n, err := scanNotification(pg.Querier(ctx, r.db).QueryRow(ctx,
		`UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, $3), updated_at = $3
		WHERE id = $1 AND user_id = $2
		RETURNING `+columns,
		id, userID, at,
	))
	if pg.IsNotFoundError(err) {
		return Notification{}, ErrNotFound
	}
	if err != nil {
		return Notification{}, fmt.Errorf("notification: mark read: %w", err)
	}
	return n, nil
}

func (r *PgRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	tag, err := pg.Querier(ctx, r.db).Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $2, updated_at = $2
		WHERE user_id = $1 AND NOT is_read`,
		userID, at,
	)
	if err != nil {
		return 0, fmt.Errorf("notification: mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := pg.Querier(ctx, r.db).Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("notification: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
