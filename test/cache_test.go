//go:build integration_test || all_tests

package test

import (
	"context"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-redis/redis/v8"

	"github.com/2beens/gymplanner/internal/documents"
	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/remote"
)

// gatedStore hands out reads, then holds them until released.
type gatedStore struct {
	mu       sync.Mutex
	docs     map[string]remote.Document
	reads    int
	once     sync.Once
	readDone chan struct{}
	release  chan struct{}
}

func (g *gatedStore) Get(_ context.Context, userID string) (*remote.Document, error) {
	g.mu.Lock()
	doc, ok := g.docs[userID]
	g.reads++
	g.mu.Unlock()

	g.once.Do(func() { close(g.readDone) })
	<-g.release
	if !ok {
		return nil, documents.ErrNotFound
	}
	return &doc, nil
}

func (g *gatedStore) Put(_ context.Context, userID string, doc remote.Document) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.docs[userID] = doc
	return nil
}

func (g *gatedStore) ListPending(_ context.Context) ([]documents.PendingExercise, error) {
	return nil, nil
}

func (s *IntegrationTestSuite) TestDocumentCache_LateReadKeepsPushedDocument() {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: s.redisAddr})
	defer rdb.Close()

	userID := "cache-" + gofakeit.LetterN(8)
	older := remote.NewDocument(plan.Collections{Favorites: plan.Favorites{"old"}}, 1_700_000_000_000)
	newer := remote.NewDocument(plan.Collections{Favorites: plan.Favorites{"new"}}, 1_700_000_000_500)
	store := &gatedStore{
		docs:     map[string]remote.Document{userID: older},
		readDone: make(chan struct{}),
		release:  make(chan struct{}),
	}
	repo := documents.NewCachedRepo(store, rdb, time.Minute)

	type result struct {
		doc *remote.Document
		err error
	}
	readResult := make(chan result, 1)
	go func() {
		doc, err := repo.Get(ctx, userID)
		readResult <- result{doc, err}
	}()

	// the read holds the old document when the push lands and is cached
	<-store.readDone
	s.Require().NoError(repo.Put(ctx, userID, newer))
	close(store.release)

	res := <-readResult
	s.Require().NoError(res.err)
	s.Equal(plan.Favorites{"old"}, res.doc.Favorites)

	// served from redis: the late fill did not put the old document back
	got, err := repo.Get(ctx, userID)
	s.Require().NoError(err)
	s.Equal(plan.Favorites{"new"}, got.Favorites)
	s.Equal(newer.LastSynced, got.LastSynced)
	store.mu.Lock()
	defer store.mu.Unlock()
	s.Equal(1, store.reads)
}
