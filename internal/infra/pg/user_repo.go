// Package pg implements the user repository on PostgreSQL through pgx.
package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
)

// UsernameConstraint is the unique constraint Postgres names for
// users.username when declared inline as UNIQUE.
const UsernameConstraint = "users_username_key"

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepo struct {
	q Querier
}

func NewUserRepo(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

func (r *UserRepo) scanOne(row pgx.Row) (*domain.User, error) {
	var (
		id int64
		u  domain.User
	)
	err := row.Scan(&id, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.ID = domain.UserID(id)
	return &u, nil
}

func (r *UserRepo) FindByName(ctx context.Context, name string) (*domain.User, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1
	`, name)
	u, err := r.scanOne(row)
	if err != nil {
		return nil, oops.Code("USER_GET_BY_NAME_FAILED").With("username", name).Wrap(err)
	}
	return u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, int64(id))
	u, err := r.scanOne(row)
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").With("id", id).Wrap(err)
	}
	return u, nil
}

// Create relies on the database for created_at/updated_at defaults and,
// when u.ID is zero, for the id sequence.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	var row pgx.Row
	if u.ID == 0 {
		row = r.q.QueryRow(ctx, `
			INSERT INTO users (username, password_hash)
			VALUES ($1, $2)
			RETURNING id, created_at, updated_at
		`, u.Username, u.PasswordHash)
	} else {
		row = r.q.QueryRow(ctx, `
			INSERT INTO users (id, username, password_hash)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`, int64(u.ID), u.Username, u.PasswordHash)
	}

	var id int64
	err := row.Scan(&id, &u.CreatedAt, &u.UpdatedAt)
	if isDupUsername(err) {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", u.Username).
			Wrap(err)
	}
	u.ID = domain.UserID(id)
	return nil
}

func isDupUsername(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == UsernameConstraint
}
