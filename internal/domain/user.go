package domain

import (
	"errors"
	"time"
)

// ErrUsernameTaken is returned by user repositories when a username
// collides with an existing one at persist time.
var ErrUsernameTaken = errors.New("username already taken")

type UserID int64

type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UsernamePasswordInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// UserResponse carries either a user or the field errors that prevented
// the operation. Never both.
type UserResponse struct {
	Errors []FieldError `json:"errors,omitempty"`
	User   *User        `json:"user,omitempty"`
}

func Fail(field, msg string) *UserResponse {
	return &UserResponse{
		Errors: []FieldError{{Field: field, Message: msg}},
	}
}

func Ok(u *User) *UserResponse {
	return &UserResponse{User: u}
}
