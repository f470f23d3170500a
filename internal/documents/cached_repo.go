package documents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal/remote"
)

const docCacheKeyPrefix = "gymplanner-doc||"

// Store is implemented by PsqlRepo, MysqlRepo and CachedRepo.
type Store interface {
	Get(ctx context.Context, userID string) (*remote.Document, error)
	Put(ctx context.Context, userID string, doc remote.Document) error
	ListPending(ctx context.Context) ([]PendingExercise, error)
}

var (
	_ Store = (*PsqlRepo)(nil)
	_ Store = (*MysqlRepo)(nil)
	_ Store = (*CachedRepo)(nil)
)

// cacheWriteScript stores ARGV[2] under KEYS[1] unless the cached entry
// already carries a newer syncedAt than ARGV[1].
var cacheWriteScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local ok, cached = pcall(cjson.decode, current)
	if ok and type(cached) == 'table' then
		local cachedAt = tonumber(cached['syncedAt'])
		if cachedAt and cachedAt > tonumber(ARGV[1]) then
			return 0
		end
	end
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type cachedDocument struct {
	SyncedAt int64           `json:"syncedAt"`
	Document remote.Document `json:"document"`
}

// CachedRepo keeps documents in redis in front of the database.
// Entries are versioned by lastSynced and never replaced by an older one,
// so a slow read cannot put back a document a later push superseded.
// Cache failures are logged and fall through to the database.
type CachedRepo struct {
	store       Store
	redisClient *redis.Client
	ttl         time.Duration
}

func NewCachedRepo(store Store, redisClient *redis.Client, ttl time.Duration) *CachedRepo {
	return &CachedRepo{
		store:       store,
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (r *CachedRepo) Get(ctx context.Context, userID string) (*remote.Document, error) {
	key := docCacheKeyPrefix + userID

	cachedJson, err := r.redisClient.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedDocument
		unmarshalErr := json.Unmarshal(cachedJson, &cached)
		switch {
		case unmarshalErr != nil:
			log.Errorf("documents cache: unmarshal %s: %s", userID, unmarshalErr)
		case cached.SyncedAt == 0:
			log.Debugf("documents cache: unversioned entry for %s, reloading", userID)
		default:
			log.Tracef("documents cache: hit for %s", userID)
			return &cached.Document, nil
		}
	case !errors.Is(err, redis.Nil):
		log.Errorf("documents cache: get %s: %s", userID, err)
	}

	doc, err := r.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	storedAt, err := doc.SyncedAt()
	if err != nil {
		log.Warnf("documents cache: not caching %s: %s", userID, err)
		return doc, nil
	}
	r.cache(ctx, userID, *doc, storedAt)
	return doc, nil
}

// Put writes through: a stored document replaces the cached one.
func (r *CachedRepo) Put(ctx context.Context, userID string, doc remote.Document) error {
	if err := r.store.Put(ctx, userID, doc); err != nil {
		return err
	}

	pushedAt, err := syncedAt(doc)
	if err != nil {
		r.invalidate(ctx, userID)
		return nil
	}
	if !r.cache(ctx, userID, remote.NewDocument(doc.Collections(), pushedAt), pushedAt) {
		r.invalidate(ctx, userID)
	}
	return nil
}

// cache reports false only when redis could not be updated.
func (r *CachedRepo) cache(ctx context.Context, userID string, doc remote.Document, syncedAt int64) bool {
	cachedJson, err := json.Marshal(cachedDocument{SyncedAt: syncedAt, Document: doc})
	if err != nil {
		log.Errorf("documents cache: marshal %s: %s", userID, err)
		return false
	}

	written, err := cacheWriteScript.Run(
		ctx, r.redisClient,
		[]string{docCacheKeyPrefix + userID},
		syncedAt, string(cachedJson), r.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		log.Errorf("documents cache: set %s: %s", userID, err)
		return false
	}
	if written == 0 {
		log.Tracef("documents cache: kept newer entry for %s", userID)
	}
	return true
}

func (r *CachedRepo) invalidate(ctx context.Context, userID string) {
	if err := r.redisClient.Del(ctx, docCacheKeyPrefix+userID).Err(); err != nil {
		log.Errorf("documents cache: invalidate %s: %s", userID, err)
	}
}

func (r *CachedRepo) ListPending(ctx context.Context) ([]PendingExercise, error) {
	return r.store.ListPending(ctx)
}
