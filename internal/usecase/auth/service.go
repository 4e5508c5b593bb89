package auth

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
)

const (
	minUsernameLen = 3
	minPasswordLen = 4
)

const (
	msgUsernameShort = "username length should be greater than 2"
	msgPasswordShort = "password length should be greater than 3"
	msgUsernameTaken = "username already exists."
	msgUserNotFound  = "user not found"
	msgBadPassword   = "Incorrect password"
)

// UserRepo returns (nil, nil) from the Find methods when nothing matches.
// Create must enforce username uniqueness atomically and report a
// collision as domain.ErrUsernameTaken. A zero u.ID asks the repo to
// assign one.
type UserRepo interface {
	FindByName(ctx context.Context, name string) (*domain.User, error)
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

type SessionID string

type SessionRepo interface {
	FindUserID(ctx context.Context, id SessionID) (domain.UserID, bool, error)
	Save(ctx context.Context, id SessionID, uid domain.UserID) error
}

// Session is the current request's view of its session.
type Session interface {
	UserID(ctx context.Context) (domain.UserID, bool, error)
	SetUserID(ctx context.Context, uid domain.UserID) error
}

type Service struct {
	users  UserRepo
	hasher Hasher
	log    *slog.Logger
}

func NewService(u UserRepo, h Hasher, l *slog.Logger) *Service {
	if l == nil {
		l = slog.Default()
	}
	return &Service{
		users:  u,
		hasher: h,
		log:    l,
	}
}

// validate counts characters, not bytes.
func validate(in domain.UsernamePasswordInput) *domain.UserResponse {
	if utf8.RuneCountInString(in.Username) < minUsernameLen {
		return domain.Fail("username", msgUsernameShort)
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		return domain.Fail("password", msgPasswordShort)
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in domain.UsernamePasswordInput, id domain.UserID) (*domain.UserResponse, error) {
	if r := validate(in); r != nil {
		return r, nil
	}

	h, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("HASH_FAILED").Wrap(err)
	}

	u := &domain.User{
		ID:           id,
		Username:     in.Username,
		PasswordHash: h,
	}
	err = s.users.Create(ctx, u)
	if errors.Is(err, domain.ErrUsernameTaken) {
		s.log.InfoContext(ctx, "register rejected", "username", in.Username, "reason", "duplicate")
		return domain.Fail("username", msgUsernameTaken), nil
	}
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").With("username", in.Username).Wrap(err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID, "username", u.Username)
	return domain.Ok(u), nil
}

func (s *Service) Login(ctx context.Context, sess Session, in domain.UsernamePasswordInput) (*domain.UserResponse, error) {
	u, err := s.users.FindByName(ctx, in.Username)
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("username", in.Username).Wrap(err)
	}
	if u == nil {
		return domain.Fail("username", msgUserNotFound), nil
	}

	ok, err := s.hasher.Verify(in.Password, u.PasswordHash)
	if err != nil {
		return nil, oops.Code("HASH_VERIFY_FAILED").With("user_id", u.ID).Wrap(err)
	}
	if !ok {
		s.log.WarnContext(ctx, "login rejected", "user_id", u.ID)
		return domain.Fail("username", msgBadPassword), nil
	}

	if err := sess.SetUserID(ctx, u.ID); err != nil {
		return nil, oops.Code("SESSION_BIND_FAILED").With("user_id", u.ID).Wrap(err)
	}

	s.log.InfoContext(ctx, "user logged in", "user_id", u.ID)
	return domain.Ok(u), nil
}

// Me returns nil without error when the session is anonymous or its
// user no longer exists.
func (s *Service) Me(ctx context.Context, sess Session) (*domain.User, error) {
	id, ok, err := sess.UserID(ctx)
	if err != nil {
		return nil, oops.Code("SESSION_READ_FAILED").Wrap(err)
	}
	if !ok {
		return nil, nil
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("user_id", id).Wrap(err)
	}
	return u, nil
}
