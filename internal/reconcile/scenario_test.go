package reconcile_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/gymplanner/internal/localstore"
	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/reconcile"
	"github.com/2beens/gymplanner/internal/remote"
	"github.com/2beens/gymplanner/internal/stamp"
)

// cloudFake keeps one document per user and rejects pushes older than the stored one.
type cloudFake struct {
	mu   sync.Mutex
	docs map[string]remote.Document
}

func newCloudFake() *cloudFake {
	return &cloudFake{docs: map[string]remote.Document{}}
}

func (c *cloudFake) Fetch(_ context.Context, id remote.Identity) (*remote.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id.UserID]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (c *cloudFake) Push(_ context.Context, id remote.Identity, doc remote.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stored, ok := c.docs[id.UserID]; ok {
		storedAt, _ := stored.SyncedAt()
		pushedAt, _ := doc.SyncedAt()
		if pushedAt < storedAt {
			return remote.ErrStalePush
		}
	}
	c.docs[id.UserID] = doc
	return nil
}

func (c *cloudFake) doc(userID string) remote.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docs[userID]
}

func newDevice(t *testing.T, cloud *cloudFake, now time.Time) (*reconcile.Reconciler, *localstore.DiskStore) {
	t.Helper()
	clock := stamp.NewClockWithNow(func() time.Time { return now })
	local, err := localstore.NewDiskStore(t.TempDir(), clock, 0)
	require.NoError(t, err)
	return reconcile.New(reconcile.Params{Local: local, Remote: cloud, Clock: clock}), local
}

func waitPushes(t *testing.T, r *reconcile.Reconciler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
}

func TestScenario_BootstrapThenSecondDeviceWins(t *testing.T) {
	cloud := newCloudFake()
	u1 := remote.Identity{UserID: "u1", Username: "u1", Token: "t1"}
	now := time.UnixMilli(baseTime)

	// first device, no local data, nobody signed in
	deviceA, _ := newDevice(t, cloud, now)
	model := deviceA.Open()

	snap := model.Snapshot()
	require.Len(t, snap.Templates, 1)
	assert.True(t, snap.Templates[0].Active)
	for _, day := range snap.Templates[0].Schedule {
		assert.False(t, day.IsRest)
		assert.Empty(t, day.Exercises)
	}

	require.NoError(t, model.AddExercise(0, 0, "e1", "Bench Press"))
	monday := model.Snapshot().Templates[0].Schedule[0]
	require.Len(t, monday.Exercises, 1)
	assert.Equal(t, []plan.SetEntry{{}, {}, {}}, monday.Exercises[0].SetsData)

	stored, err := model.UpdateSet(0, 0, 0, 0, plan.FieldWeight, "-10")
	require.NoError(t, err)
	assert.Zero(t, stored)

	// sign in, the account has no document yet
	outcome, err := deviceA.Start(context.Background(), u1)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeBootstrapPush, outcome)
	waitPushes(t, deviceA)

	doc := cloud.doc("u1")
	require.Len(t, doc.Templates, 1)
	assert.Equal(t, model.Snapshot().Templates, doc.Templates)
	remoteTime, err := doc.SyncedAt()
	require.NoError(t, err)

	// second device edited later (T+10) and starred e2
	deviceB, localB := newDevice(t, cloud, now)
	later := plan.Collections{
		Templates: doc.Collections().Templates,
		Favorites: plan.Favorites{"e2"},
	}
	for _, key := range plan.Keys {
		require.NoError(t, localB.SaveStamped(key, later.Collection(key), remoteTime+10))
	}
	modelB := deviceB.Open()

	outcome, err = deviceB.Start(context.Background(), u1)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeLocalPushed, outcome)
	waitPushes(t, deviceB)

	doc = cloud.doc("u1")
	assert.Equal(t, plan.Favorites{"e2"}, doc.Favorites)
	assert.Equal(t, modelB.Snapshot(), doc.Collections())

	// a fresh install adopts the newest document
	deviceA2, _ := newDevice(t, cloud, now)
	modelA2 := deviceA2.Open()
	outcome, err = deviceA2.Start(context.Background(), u1)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeRemoteAdopted, outcome)
	assert.Equal(t, plan.Favorites{"e2"}, modelA2.Snapshot().Favorites)
}

func TestScenario_EmptyRemoteAheadOfDeviceClock(t *testing.T) {
	cloud := newCloudFake()
	u1 := remote.Identity{UserID: "u1", Username: "u1", Token: "t1"}
	// another device cleared the plan a second ahead of this device's clock
	cloud.docs["u1"] = remote.NewDocument(plan.Collections{}, baseTime+1_000)

	device, local := newDevice(t, cloud, time.UnixMilli(baseTime))
	mine := plan.Collections{Templates: []plan.Template{remoteTemplate("p-mine", "Mine")}}
	for _, key := range plan.Keys {
		require.NoError(t, local.SaveStamped(key, mine.Collection(key), baseTime-5_000))
	}
	model := device.Open()

	outcome, err := device.Start(context.Background(), u1)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeEmptyRemotePush, outcome)

	doc := cloud.doc("u1")
	require.Len(t, doc.Templates, 1)
	assert.Equal(t, "Mine", doc.Templates[0].Name)
	syncedAt, err := doc.SyncedAt()
	require.NoError(t, err)
	assert.Greater(t, syncedAt, baseTime+1_000)

	// edits made right after still land
	require.NoError(t, model.RenameTemplate(0, "Mine v2"))
	waitPushes(t, device)
	assert.Equal(t, "Mine v2", cloud.doc("u1").Templates[0].Name)
}

func TestScenario_CorruptFavoritesDoNotWipeCloud(t *testing.T) {
	cloud := newCloudFake()
	u1 := remote.Identity{UserID: "u1", Username: "u1", Token: "t1"}
	cloud.docs["u1"] = remote.NewDocument(plan.Collections{
		Templates: []plan.Template{remoteTemplate("p-mine", "Mine")},
		Favorites: plan.Favorites{"0025"},
	}, baseTime-100)

	device, local := newDevice(t, cloud, time.UnixMilli(baseTime))
	mine := plan.Collections{Templates: []plan.Template{remoteTemplate("p-mine", "Mine")}}
	require.NoError(t, local.SaveStamped(plan.KeyTemplates, mine.Templates, baseTime-10))
	require.NoError(t, os.WriteFile(filepath.Join(local.Dir(), "exercise_favorites.json"), []byte("{garbage"), 0o644))

	model := device.Open()
	require.Len(t, model.Snapshot().Templates, 1)
	assert.Equal(t, "Mine", model.Snapshot().Templates[0].Name)

	outcome, err := device.Start(context.Background(), u1)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeLocalPushed, outcome)

	doc := cloud.doc("u1")
	require.Len(t, doc.Templates, 1)
	assert.Equal(t, "Mine", doc.Templates[0].Name)
	assert.Equal(t, model.Snapshot().Templates, doc.Templates)
}
