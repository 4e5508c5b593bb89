package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
)

var fixed = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

const (
	qByName   = `SELECT id, username, password_hash, created_at, updated_at\s+FROM users\s+WHERE username = \$1`
	qByID     = `SELECT id, username, password_hash, created_at, updated_at\s+FROM users\s+WHERE id = \$1`
	qInsert   = `INSERT INTO users \(id, username, password_hash\)\s+VALUES \(\$1, \$2, \$3\)\s+RETURNING id, created_at, updated_at`
	qInsertAI = `INSERT INTO users \(username, password_hash\)\s+VALUES \(\$1, \$2\)\s+RETURNING id, created_at, updated_at`
)

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "username", "password_hash", "created_at", "updated_at"})
}

func TestUserRepo_Find(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		call      func(r *UserRepo) (*domain.User, error)
		want      *domain.User
		wantErr   string
	}{
		{
			name: "by name found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(qByName).
					WithArgs("alice").
					WillReturnRows(userRows().AddRow(int64(5), "alice", "hash", fixed, fixed))
			},
			call: func(r *UserRepo) (*domain.User, error) { return r.FindByName(context.Background(), "alice") },
			want: &domain.User{ID: 5, Username: "alice", PasswordHash: "hash", CreatedAt: fixed, UpdatedAt: fixed},
		},
		{
			name: "by name missing",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(qByName).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)
			},
			call: func(r *UserRepo) (*domain.User, error) { return r.FindByName(context.Background(), "ghost") },
		},
		{
			name: "by id found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(qByID).
					WithArgs(int64(5)).
					WillReturnRows(userRows().AddRow(int64(5), "alice", "hash", fixed, fixed))
			},
			call: func(r *UserRepo) (*domain.User, error) { return r.FindByID(context.Background(), 5) },
			want: &domain.User{ID: 5, Username: "alice", PasswordHash: "hash", CreatedAt: fixed, UpdatedAt: fixed},
		},
		{
			name: "by id database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(qByID).WithArgs(int64(5)).WillReturnError(errors.New("connection refused"))
			},
			call:    func(r *UserRepo) (*domain.User, error) { return r.FindByID(context.Background(), 5) },
			wantErr: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			got, err := tt.call(NewUserRepo(mock))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepo_Create(t *testing.T) {
	t.Run("caller id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(qInsert).
			WithArgs(int64(3), "alice", "hash").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(3), fixed, fixed))

		u := &domain.User{ID: 3, Username: "alice", PasswordHash: "hash"}
		require.NoError(t, NewUserRepo(mock).Create(context.Background(), u))
		assert.Equal(t, domain.UserID(3), u.ID)
		assert.Equal(t, fixed, u.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("generated id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(qInsertAI).
			WithArgs("alice", "hash").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), fixed, fixed))

		u := &domain.User{Username: "alice", PasswordHash: "hash"}
		require.NoError(t, NewUserRepo(mock).Create(context.Background(), u))
		assert.Equal(t, domain.UserID(11), u.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepo_CreateErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantDup bool
	}{
		{
			name:    "username unique violation",
			err:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: UsernameConstraint},
			wantDup: true,
		},
		{
			name: "primary key violation",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_pkey"},
		},
		{
			name: "other postgres error",
			err:  &pgconn.PgError{Code: pgerrcode.NotNullViolation, ConstraintName: UsernameConstraint},
		},
		{
			name: "connection error",
			err:  errors.New("connection reset"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(qInsert).
				WithArgs(int64(3), "alice", "hash").
				WillReturnError(tt.err)

			err = NewUserRepo(mock).Create(context.Background(), &domain.User{ID: 3, Username: "alice", PasswordHash: "hash"})
			require.Error(t, err)
			assert.Equal(t, tt.wantDup, errors.Is(err, domain.ErrUsernameTaken))
		})
	}
}
