//go:build integration_test || all_tests

package documents_test

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/gymplanner/internal/db"
	"github.com/2beens/gymplanner/internal/documents"
	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/remote"
	pkgtesting "github.com/2beens/gymplanner/pkg/testing"
)

type migratingStore interface {
	documents.Store
	Migrate(ctx context.Context) error
}

func getPsqlRepo(t *testing.T) migratingStore {
	t.Helper()
	params := pkgtesting.PostgresParams()
	dbPool, err := db.NewDBPool(context.Background(), db.NewDBPoolParams{
		DBHost:     params.Host,
		DBPort:     params.Port,
		DBName:     params.Name,
		DBUser:     params.User,
		DBPassword: params.Password,
	})
	require.NoError(t, err)
	require.NotNil(t, dbPool)
	t.Cleanup(dbPool.Close)
	return documents.NewPsqlRepo(dbPool)
}

func getMysqlRepo(t *testing.T) migratingStore {
	t.Helper()
	params := pkgtesting.MysqlParams()
	mysqlDB, err := documents.OpenMysql(documents.MysqlParams{
		Host:     params.Host,
		Port:     params.Port,
		DBName:   params.Name,
		User:     params.User,
		Password: params.Password,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mysqlDB.Close()
	})
	return documents.NewMysqlRepo(mysqlDB)
}

func TestRepos(t *testing.T) {
	repos := map[string]func(t *testing.T) migratingStore{
		"Psql":  getPsqlRepo,
		"Mysql": getMysqlRepo,
	}
	for name, getRepo := range repos {
		t.Run(name, func(t *testing.T) {
			repo := getRepo(t)
			require.NoError(t, repo.Migrate(context.Background()))
			// twice, schema creation must be idempotent
			require.NoError(t, repo.Migrate(context.Background()))

			t.Run("GetPut", func(t *testing.T) { testGetPut(t, repo) })
			t.Run("ListPending", func(t *testing.T) { testListPending(t, repo) })
		})
	}
}

func testGetPut(t *testing.T, repo documents.Store) {
	ctx := context.Background()
	userID := gofakeit.UUID()

	_, err := repo.Get(ctx, userID)
	assert.ErrorIs(t, err, documents.ErrNotFound)

	now := time.Now().UnixMilli()
	data := plan.Collections{
		Templates: []plan.Template{plan.DefaultTemplate()},
		Favorites: plan.Favorites{"0025", "c1"},
	}
	require.NoError(t, repo.Put(ctx, userID, remote.NewDocument(data, now)))

	doc, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	syncedAt, err := doc.SyncedAt()
	require.NoError(t, err)
	assert.Equal(t, now, syncedAt)
	assert.Equal(t, plan.Favorites{"0025", "c1"}, doc.Favorites)
	require.Len(t, doc.Templates, 1)
	assert.Equal(t, "Default Plan", doc.Templates[0].Name)

	// same stamp is accepted, an older one is not
	data.Favorites = plan.Favorites{"0025"}
	require.NoError(t, repo.Put(ctx, userID, remote.NewDocument(data, now)))
	err = repo.Put(ctx, userID, remote.NewDocument(plan.Collections{}, now-1))
	assert.ErrorIs(t, err, documents.ErrStalePush)

	doc, err = repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, plan.Favorites{"0025"}, doc.Favorites)

	err = repo.Put(ctx, userID, remote.Document{LastSynced: "not a time"})
	assert.ErrorIs(t, err, documents.ErrInvalidDocument)
}

func testListPending(t *testing.T, repo documents.Store) {
	ctx := context.Background()
	userID := gofakeit.UUID()

	data := plan.Collections{
		CustomExercises: []plan.CustomExercise{
			{ID: "c1", Name: "Landmine press", IsCustom: true, PendingGlobalApproval: true, SubmittedBy: "lifter"},
			{ID: "c2", Name: "Sled push", IsCustom: true},
		},
	}
	require.NoError(t, repo.Put(ctx, userID, remote.NewDocument(data, time.Now().UnixMilli())))

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)

	var mine []documents.PendingExercise
	for _, p := range pending {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	require.Len(t, mine, 1)
	assert.Equal(t, "c1", mine[0].ID)
	assert.Equal(t, "lifter", mine[0].SubmittedBy)
}
