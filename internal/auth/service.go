package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/pkg"
)

const (
	DefaultTTL       = 24 * 30 * time.Hour
	accountKeyPrefix = "gymplanner-account||"
	sessionKeyPrefix = "gymplanner-session||"
	tokensSetKey     = "gymplanner-sessions"
	tokenLength      = 35
)

type Service struct {
	redisClient *redis.Client
	ttl         time.Duration
	admins      map[string]bool
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc   func(s int) (string, error)
	HashPasswordFunc func(password string) (string, error)
	NewUserIDFunc    func() string
}

func NewAuthService(
	adminUsernames []string,
	ttl time.Duration,
	redisClient *redis.Client,
) *Service {
	admins := make(map[string]bool, len(adminUsernames))
	for _, u := range adminUsernames {
		admins[strings.ToLower(strings.TrimSpace(u))] = true
	}
	return &Service{
		ttl:              ttl,
		redisClient:      redisClient,
		admins:           admins,
		RandStringFunc:   pkg.GenerateRandomString,
		HashPasswordFunc: pkg.HashPassword,
		NewUserIDFunc:    uuid.NewString,
	}
}

func (as *Service) IsAdmin(username string) bool {
	return as.admins[strings.ToLower(strings.TrimSpace(username))]
}

// Register creates a new account. Usernames are unique, case-insensitive.
func (as *Service) Register(ctx context.Context, creds Credentials, createdAt time.Time) (*Account, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := as.HashPasswordFunc(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &Account{
		UserID:       as.NewUserIDFunc(),
		Username:     strings.TrimSpace(creds.Username),
		PasswordHash: passwordHash,
		CreatedAt:    createdAt.UTC(),
	}
	accountJson, err := json.Marshal(account)
	if err != nil {
		return nil, err
	}

	created, err := as.redisClient.SetNX(ctx, accountKey(creds.Username), string(accountJson), 0).Result()
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrUsernameTaken
	}

	log.Debugf("auth service: registered account %s [%s]", account.Username, account.UserID)
	return account, nil
}

func (as *Service) account(ctx context.Context, username string) (*Account, error) {
	accountJson, err := as.redisClient.Get(ctx, accountKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrWrongPassword
		}
		return nil, err
	}

	var account Account
	if err := json.Unmarshal([]byte(accountJson), &account); err != nil {
		return nil, fmt.Errorf("unmarshal account %s: %w", username, err)
	}
	return &account, nil
}

func (as *Service) Login(ctx context.Context, creds Credentials, createdAt time.Time) (*Session, error) {
	account, err := as.account(ctx, creds.Username)
	if err != nil {
		return nil, err
	}
	if !pkg.CheckPasswordHash(creds.Password, account.PasswordHash) {
		return nil, ErrWrongPassword
	}

	token, err := as.RandStringFunc(tokenLength)
	if err != nil {
		return nil, err
	}

	session := &Session{
		Token:     token,
		UserID:    account.UserID,
		Username:  account.Username,
		Admin:     as.IsAdmin(account.Username),
		CreatedAt: createdAt.UTC(),
	}
	sessionJson, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	sessionKey := sessionKeyPrefix + token
	cmdSet := as.redisClient.Set(ctx, sessionKey, string(sessionJson), 0)
	if err := cmdSet.Err(); err != nil {
		return nil, err
	}

	// add token to list of sessions
	cmdSAdd := as.redisClient.SAdd(ctx, tokensSetKey, token)
	if err := cmdSAdd.Err(); err != nil {
		return nil, err
	}

	return session, nil
}

// Logout removes the session. It reports false when the token was not logged in.
func (as *Service) Logout(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	deleted, err := as.redisClient.Del(ctx, sessionKey).Result()
	if err != nil {
		return false, err
	}

	// remove token from the list of sessions
	cmdSRem := as.redisClient.SRem(ctx, tokensSetKey, token)
	if err := cmdSRem.Err(); err != nil {
		return false, err
	}

	return deleted > 0, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (as *Service) ScanAndClean(ctx context.Context) {
	cmd := as.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Debugln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Infof("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		sessionJson, err := as.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
		if errors.Is(err, redis.Nil) {
			toRemove = append(toRemove, token)
			continue
		}
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		var session Session
		if err := json.Unmarshal([]byte(sessionJson), &session); err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			toRemove = append(toRemove, token)
			continue
		}

		if session.expired(as.ttl) {
			log.Debugf("=>\twill clean the session of user: %s", session.Username)
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		if _, err := as.Logout(ctx, token); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
		}
	}
}
