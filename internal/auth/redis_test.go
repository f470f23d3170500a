//go:build integration_test || all_tests

package auth

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgtesting "github.com/2beens/gymplanner/pkg/testing"
)

func TestAuthService_Redis(t *testing.T) {
	ctx, rdb := pkgtesting.GetRedisClientAndCtx(t)

	authService := NewAuthService([]string{"boss"}, time.Hour, rdb)
	checker := NewLoginChecker(time.Hour, rdb)

	creds := Credentials{
		Username: "user-" + gofakeit.LetterN(10),
		Password: gofakeit.Password(true, true, true, false, false, 10),
	}
	t.Cleanup(func() {
		rdb.Del(ctx, accountKey(creds.Username))
	})

	account, err := authService.Register(ctx, creds, time.Now())
	require.NoError(t, err)
	_, err = authService.Register(ctx, creds, time.Now())
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = authService.Login(ctx, Credentials{Username: creds.Username, Password: "nope-nope"}, time.Now())
	assert.ErrorIs(t, err, ErrWrongPassword)

	session, err := authService.Login(ctx, creds, time.Now())
	require.NoError(t, err)
	assert.Equal(t, account.UserID, session.UserID)
	assert.False(t, session.Admin)

	resolved, err := checker.Session(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, creds.Username, resolved.Username)

	loggedOut, err := authService.Logout(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, loggedOut)
	checker.Forget(session.Token)

	_, err = checker.Session(ctx, session.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	isMember, err := rdb.SIsMember(ctx, tokensSetKey, session.Token).Result()
	require.NoError(t, err)
	assert.False(t, isMember)
}
