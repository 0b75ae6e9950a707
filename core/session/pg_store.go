package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/starter/integration/database/pg"
)

const sessionColumns = `id, token, user_id, csrf_token, remember, ip, user_agent, expires_at, created_at, updated_at`

// PgStore keeps sessions in the "sessions" table.
type PgStore struct {
	db pg.DBTX
}

// NewPgStore creates a store on db.
func NewPgStore(db pg.DBTX) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) GetByToken(ctx context.Context, token string) (*Session, error) {
	var (
		sess   Session
		userID *int64
	)
	err := pg.Querier(ctx, s.db).QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token,
	).Scan(
		&sess.ID, &sess.Token, &userID, &sess.CSRFToken, &sess.Remember,
		&sess.IP, &sess.UserAgent, &sess.ExpiresAt, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: select: %w", err)
	}
	if userID != nil {
		sess.UserID = *userID
	}
	sess.stored()
	return &sess, nil
}

func (s *PgStore) Save(ctx context.Context, sess *Session) error {
	var userID *int64
	if sess.UserID > 0 {
		userID = &sess.UserID
	}

	if !sess.IsStored() {
		_, err := pg.Querier(ctx, s.db).Exec(ctx,
			`INSERT INTO sessions (`+sessionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			sess.ID, sess.Token, userID, sess.CSRFToken, sess.Remember,
			sess.IP, sess.UserAgent, sess.ExpiresAt, sess.CreatedAt, sess.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("session: insert: %w", err)
		}
		sess.stored()
		return nil
	}

	tag, err := pg.Querier(ctx, s.db).Exec(ctx,
		`UPDATE sessions SET
			token = $2, user_id = $3, csrf_token = $4, remember = $5,
			ip = $6, user_agent = $7, expires_at = $8, updated_at = $9
		WHERE id = $1 AND token = $10`,
		sess.ID, sess.Token, userID, sess.CSRFToken, sess.Remember,
		sess.IP, sess.UserAgent, sess.ExpiresAt, sess.UpdatedAt, sess.loadedToken,
	)
	if err != nil {
		return fmt.Errorf("session: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionChanged
	}
	sess.stored()
	return nil
}

func (s *PgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := pg.Querier(ctx, s.db).Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := pg.Querier(ctx, s.db).Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("session: delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
