package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/oops"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
)

const errDupEntry = 1062

type UserRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{
		db:  db,
		now: time.Now,
	}
}

func (r *UserRepo) scanOne(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByName(ctx context.Context, name string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = ?", name)
	u, err := r.scanOne(row)
	if err != nil {
		return nil, oops.Code("USER_GET_BY_NAME_FAILED").With("username", name).Wrap(err)
	}
	return u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id, username, password_hash, created_at, updated_at FROM users WHERE id = ?", id)
	u, err := r.scanOne(row)
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").With("id", id).Wrap(err)
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	ts := r.now().UTC().Truncate(time.Microsecond)

	var res sql.Result
	var err error
	if u.ID == 0 {
		res, err = r.db.ExecContext(ctx, "INSERT INTO users (username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)", u.Username, u.PasswordHash, ts, ts)
	} else {
		res, err = r.db.ExecContext(ctx, "INSERT INTO users (id, username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)", u.ID, u.Username, u.PasswordHash, ts, ts)
	}
	if isDupUsername(err) {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").With("username", u.Username).Wrap(err)
	}

	if u.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return oops.Code("USER_CREATE_FAILED").With("operation", "last insert id").Wrap(err)
		}
		u.ID = domain.UserID(id)
	}
	u.CreatedAt = ts
	u.UpdatedAt = ts
	return nil
}

// isDupUsername reports a 1062 on the username key. A duplicate primary
// key is left to the caller as an ordinary failure.
func isDupUsername(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errDupEntry {
		return false
	}
	i := strings.LastIndex(me.Message, "for key '")
	if i < 0 {
		return false
	}
	key := strings.TrimSuffix(me.Message[i+len("for key '"):], "'")
	return key == "username" || strings.HasSuffix(key, ".username")
}
