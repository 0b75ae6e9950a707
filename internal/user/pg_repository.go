package user

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/starter/integration/database/pg"
)

const selectUser = `SELECT u.id, u.name, u.email, u.password_hash, u.role,
	p.bio, p.phone, COALESCE(p.theme, 'system'), u.created_at, u.updated_at
FROM users u
LEFT JOIN user_profiles p ON p.user_id = u.id`

// PgRepository keeps users in the users and user_profiles tables.
type PgRepository struct {
	db pg.DBTX
}

// NewPgRepository creates a repository on db.
func NewPgRepository(db pg.DBTX) *PgRepository {
	return &PgRepository{db: db}
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u           User
		role, theme string
	)
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&u.Profile.Bio, &u.Profile.Phone, &theme, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return User{}, err
	}
	r, err := ParseRole(role)
	if err != nil {
		return User{}, err
	}
	u.Role = r
	u.Profile.Theme = Theme(theme)
	return u, nil
}

func (r *PgRepository) Create(ctx context.Context, u *User) error {
	err := pg.Querier(ctx, r.db).QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.PasswordHash, u.Role.String(),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("user: insert: %w", err)
	}
	if u.Profile.Theme == "" {
		u.Profile.Theme = ThemeSystem
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (User, error) {
	return r.getOne(ctx, selectUser+` WHERE u.id = $1`, id)
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, selectUser+` WHERE u.email = $1`, email)
}

func (r *PgRepository) getOne(ctx context.Context, query string, arg any) (User, error) {
	u, err := scanUser(pg.Querier(ctx, r.db).QueryRow(ctx, query, arg))
	if pg.IsNotFoundError(err) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("user: select: %w", err)
	}
	return u, nil
}

func (r *PgRepository) List(ctx context.Context) ([]User, error) {
	rows, err := pg.Querier(ctx, r.db).Query(ctx, selectUser+` ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("user: list: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("user: scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user: list: %w", err)
	}
	return users, nil
}

// Update writes the user row and upserts the profile in one statement.
func (r *PgRepository) Update(ctx context.Context, u User) error {
	theme := u.Profile.Theme
	if theme == "" {
		theme = ThemeSystem
	}
	tag, err := pg.Querier(ctx, r.db).Exec(ctx,
		`WITH updated AS (
			UPDATE users SET name = $2, role = $3, updated_at = $4
			WHERE id = $1
			RETURNING id
		)
		INSERT INTO user_profiles (user_id, bio, phone, theme, updated_at)
		SELECT id, $5, $6, $7, $4 FROM updated
		ON CONFLICT (user_id) DO UPDATE SET
			bio = EXCLUDED.bio,
			phone = EXCLUDED.phone,
			theme = EXCLUDED.theme,
			updated_at = EXCLUDED.updated_at`,
		u.ID, u.Name, u.Role.String(), time.Now(), u.Profile.Bio, u.Profile.Phone, string(theme),
	)
	if err != nil {
		return fmt.Errorf("user: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := pg.Querier(ctx, r.db).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("user: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

