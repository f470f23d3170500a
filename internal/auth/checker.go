package auth

import "context"

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

type Checker interface {
	Session(ctx context.Context, token string) (*Session, error)
}

// LoginTestChecker serves sessions from a map, used in handler and middleware tests.
type LoginTestChecker struct {
	Sessions map[string]*Session
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		Sessions: map[string]*Session{},
	}
}

func (c *LoginTestChecker) Session(_ context.Context, token string) (*Session, error) {
	if s, ok := c.Sessions[token]; ok {
		return s, nil
	}
	return nil, ErrNoSession
}
