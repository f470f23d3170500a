package testing

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// envOr returns the value of the env var key, or def when unset.
// The value "<remove>" stands for an explicitly empty setting.
func envOr(key, def string) string {
	v := os.Getenv(key)
	switch v {
	case "":
		return def
	case "<remove>":
		return ""
	}
	return v
}

// GetRedisClientAndCtx connects to the redis given by REDIS_HOST/REDIS_PORT/REDIS_PASS
// and flushes nothing; tests are expected to use their own keys.
func GetRedisClientAndCtx(t *testing.T) (context.Context, *redis.Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	redisHost := envOr("REDIS_HOST", "localhost")
	t.Logf("using redis host: [%s]", redisHost)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(redisHost, envOr("REDIS_PORT", "6379")),
		Password: envOr("REDIS_PASS", ""),
		DB:       0, // use default DB
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	pingRes, err := rdb.Ping(ctx).Result()
	require.NoError(t, err)
	t.Logf("redis ping res: %s", pingRes)

	return ctx, rdb
}
