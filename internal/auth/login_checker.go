package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	megabyte               = 1024 * 1024
	sessionCacheSize       = 8 * megabyte
	sessionCacheTTLSeconds = 30
)

// LoginChecker resolves tokens to sessions, keeping a short-lived in-process
// cache above redis.
type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	cache       *freecache.Cache
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		cache:       freecache.NewCache(sessionCacheSize),
	}
}

func (lc *LoginChecker) Session(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	sessionJson, err := lc.cache.Get([]byte(token))
	if err != nil {
		val, redisErr := lc.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
		if redisErr != nil {
			if errors.Is(redisErr, redis.Nil) {
				return nil, ErrNoSession
			}
			return nil, redisErr
		}
		sessionJson = []byte(val)
		if err := lc.cache.Set([]byte(token), sessionJson, sessionCacheTTLSeconds); err != nil {
			log.Errorf("login checker: cache session: %s", err)
		}
	}

	var session Session
	if err := json.Unmarshal(sessionJson, &session); err != nil {
		lc.Forget(token)
		return nil, err
	}
	if session.expired(lc.ttl) {
		lc.Forget(token)
		return nil, ErrNoSession
	}
	session.Token = token

	return &session, nil
}

// Forget drops a token from the in-process cache, e.g. after logout.
func (lc *LoginChecker) Forget(token string) {
	lc.cache.Del([]byte(token))
}
