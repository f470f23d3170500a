package auth

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrWrongPassword      = errors.New("wrong username or password")
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no session")
)

const (
	minPasswordLen = 6
	maxUsernameLen = 64
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the credentials used for registration.
func (c Credentials) Validate() error {
	username := strings.TrimSpace(c.Username)
	if username == "" || len(username) > maxUsernameLen {
		return ErrInvalidCredentials
	}
	if strings.ContainsAny(username, " \t\n|") {
		return ErrInvalidCredentials
	}
	if len(c.Password) < minPasswordLen {
		return ErrInvalidCredentials
	}
	return nil
}

type Account struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is what a valid token resolves to.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) expired(ttl time.Duration) bool {
	return time.Since(s.CreatedAt) > ttl
}

func accountKey(username string) string {
	return accountKeyPrefix + strings.ToLower(strings.TrimSpace(username))
}
