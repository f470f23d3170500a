//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/2beens/gymplanner/internal/documents"
	"github.com/2beens/gymplanner/internal/localstore"
	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/reconcile"
	"github.com/2beens/gymplanner/internal/remote"
	"github.com/2beens/gymplanner/internal/stamp"
)

const testGif = "data:image/gif;base64,R0lGODlh"

// device is one planner installation with its own data dir.
type device struct {
	reconciler *reconcile.Reconciler
	model      *plan.Model
}

func (s *IntegrationTestSuite) newDevice() *device {
	clock := stamp.NewClock()
	store, err := localstore.NewDiskStore(s.T().TempDir(), clock, 0)
	s.Require().NoError(err)

	r := reconcile.New(reconcile.Params{
		Local:       store,
		Remote:      remote.NewClient(serverEndpoint, nil),
		Clock:       clock,
		PushTimeout: 5 * time.Second,
	})
	return &device{reconciler: r, model: r.Open()}
}

func (d *device) wait(s *IntegrationTestSuite) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Require().NoError(d.reconciler.Wait(ctx))
}

func (s *IntegrationTestSuite) newAccount(username string) remote.Identity {
	ctx := context.Background()
	client := remote.NewClient(serverEndpoint, nil)
	password := gofakeit.Password(true, true, true, false, false, 12)

	s.Require().NoError(client.Register(ctx, username, password))
	s.ErrorIs(client.Register(ctx, username, password), remote.ErrUsernameTaken)

	_, err := client.Login(ctx, username, "wrong-"+password)
	s.ErrorIs(err, remote.ErrUnauthorized)

	id, err := client.Login(ctx, username, password)
	s.Require().NoError(err)
	s.Require().True(id.Present())
	s.Equal(username, id.Username)
	return id
}

func (s *IntegrationTestSuite) doRequest(method, path, token string, body io.Reader) *http.Response {
	req, err := http.NewRequest(method, serverEndpoint+path, body)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", remote.UserAgent)
	if token != "" {
		req.Header.Set(remote.TokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *IntegrationTestSuite) TestSync_TwoDevices() {
	ctx := context.Background()
	id := s.newAccount("lifter-" + gofakeit.LetterN(8))

	phone := s.newDevice()
	outcome, err := phone.reconciler.Start(ctx, id)
	s.Require().NoError(err)
	s.Equal(reconcile.OutcomeBootstrapPush, outcome)

	_, err = phone.model.AddTemplate("Push Pull Legs")
	s.Require().NoError(err)
	s.Require().NoError(phone.model.AddExercise(1, 0, "0025", "barbell bench press"))
	s.Require().NoError(phone.model.AddSet(1, 0, 0))
	_, err = phone.model.UpdateSet(1, 0, 0, 0, plan.FieldWeight, "80")
	s.Require().NoError(err)
	s.Require().NoError(phone.model.AddFavorite("0025"))
	phone.wait(s)

	laptop := s.newDevice()
	outcome, err = laptop.reconciler.Start(ctx, id)
	s.Require().NoError(err)
	s.Equal(reconcile.OutcomeRemoteAdopted, outcome)
	phoneJson, err := json.Marshal(phone.model.Snapshot())
	s.Require().NoError(err)
	laptopJson, err := json.Marshal(laptop.model.Snapshot())
	s.Require().NoError(err)
	s.JSONEq(string(phoneJson), string(laptopJson))

	// a change on the second device reaches the first one on its next start
	s.Require().NoError(laptop.model.SetDayName(1, 2, "Legs"))
	laptop.wait(s)

	phoneAgain := s.newDevice()
	outcome, err = phoneAgain.reconciler.Start(ctx, id)
	s.Require().NoError(err)
	s.Equal(reconcile.OutcomeRemoteAdopted, outcome)
	snapshot := phoneAgain.model.Snapshot()
	s.Require().Len(snapshot.Templates, 2)
	s.Equal("Legs", snapshot.Templates[1].Schedule[2].Name)
	s.Equal(plan.Favorites{"0025"}, snapshot.Favorites)
}

func (s *IntegrationTestSuite) TestSync_StalePushRejected() {
	ctx := context.Background()
	id := s.newAccount("stale-" + gofakeit.LetterN(8))
	client := remote.NewClient(serverEndpoint, nil)

	data := plan.Collections{Templates: []plan.Template{plan.DefaultTemplate()}}
	now := time.Now().UnixMilli()
	s.Require().NoError(client.Push(ctx, id, remote.NewDocument(data, now)))
	s.ErrorIs(client.Push(ctx, id, remote.NewDocument(data, now-1000)), remote.ErrStalePush)

	doc, err := client.Fetch(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(doc)
	syncedAt, err := doc.SyncedAt()
	s.Require().NoError(err)
	s.Equal(now, syncedAt)

	var stored int64
	s.Require().NoError(s.DB.QueryRow(
		`SELECT last_synced FROM planner_document WHERE user_id = $1`, id.UserID,
	).Scan(&stored))
	s.Equal(now, stored)
}

func (s *IntegrationTestSuite) TestSync_DocumentTooLarge() {
	id := s.newAccount("big-" + gofakeit.LetterN(8))

	name := strings.Repeat("x", 100*1024)
	body := fmt.Sprintf(`{"workout_templates":[],"custom_exercises":[{"id":"c1","name":%q}],"exercise_favorites":[],"lastSynced":"2024-01-01T00:00:00.000Z"}`, name)
	resp := s.doRequest(http.MethodPut, remote.DocumentPath, id.Token, strings.NewReader(body))
	defer resp.Body.Close()
	s.Equal(http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = s.doRequest(http.MethodGet, remote.DocumentPath, id.Token, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestSync_Unauthorized() {
	resp := s.doRequest(http.MethodGet, remote.DocumentPath, "", nil)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.doRequest(http.MethodPut, remote.DocumentPath, "not-a-token", bytes.NewReader([]byte(`{}`)))
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestAdmin_PendingExercises() {
	ctx := context.Background()
	id := s.newAccount("submitter-" + gofakeit.LetterN(8))

	d := s.newDevice()
	_, err := d.reconciler.Start(ctx, id)
	s.Require().NoError(err)
	added, err := d.model.AddCustomExercise(plan.CustomExerciseFields{
		Name:     "landmine press",
		BodyPart: "shoulders",
		GifURL:   testGif,
	})
	s.Require().NoError(err)
	s.Require().NoError(d.model.SubmitCustomExercise(added.ID, id.Username))
	d.wait(s)

	// regular users cannot see the queue
	resp := s.doRequest(http.MethodGet, "/admin/pending", id.Token, nil)
	resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)

	client := remote.NewClient(serverEndpoint, nil)
	_ = client.Register(ctx, adminUsername, adminPassword)
	admin, err := client.Login(ctx, adminUsername, adminPassword)
	s.Require().NoError(err)

	resp = s.doRequest(http.MethodGet, "/admin/pending", admin.Token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var pending []documents.PendingExercise
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&pending))
	resp.Body.Close()

	var found *documents.PendingExercise
	for i := range pending {
		if pending[i].UserID == id.UserID && pending[i].ID == added.ID {
			found = &pending[i]
		}
	}
	s.Require().NotNil(found)
	s.Equal("Landmine press", found.Name)
	s.Equal(id.Username, found.SubmittedBy)

	resp = s.doRequest(http.MethodGet, fmt.Sprintf("/admin/pending/%s/%s/gif", id.UserID, added.ID), admin.Token, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(`attachment; filename="Landmine_press.gif"`, resp.Header.Get("Content-Disposition"))
	gif, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal("GIF89a", string(gif))

	s.Require().NoError(client.Logout(ctx, admin))
	resp = s.doRequest(http.MethodGet, "/admin/pending", admin.Token, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
