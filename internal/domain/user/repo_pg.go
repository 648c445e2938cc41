package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartcare/heartcare/internal/platform/db"
	"github.com/heartcare/heartcare/pkg/apperr"
	"github.com/heartcare/heartcare/pkg/pagination"
)

const userColumns = `id, username, email, password_hash, full_name, role, is_active,
	last_login, created_at, updated_at`

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName,
		&u.Role, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *pgRepository) Insert(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, u.IsActive)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("username or email already exists")
		}
		return apperr.Storage("insert user", err)
	}
	return nil
}

func (r *pgRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Storage("get user", err)
	}
	return u, nil
}

func (r *pgRepository) GetActiveByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1 AND is_active", username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Storage("get user by username", err)
	}
	return u, nil
}

func (r *pgRepository) Update(ctx context.Context, u *User) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE users SET
			email = $2, password_hash = $3, full_name = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.IsActive)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("user not found")
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("email already exists")
		}
		return apperr.Storage("update user", err)
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return apperr.Storage("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *pgRepository) List(ctx context.Context, p pagination.Params) ([]User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count users", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, apperr.Storage("list users", err)
	}
	defer rows.Close()

	users := make([]User, 0, p.PerPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, apperr.Storage("scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("iterate users", err)
	}
	return users, total, nil
}

func (r *pgRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, "UPDATE users SET last_login = NOW() WHERE id = $1", id)
	if err != nil {
		return apperr.Storage("update last login", err)
	}
	return nil
}
