package stores_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querydesk/internal/apitest"
	"querydesk/internal/models"
	"querydesk/internal/stores"
	"querydesk/pkg/api"
)

func newAuthedClient(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL(), 5*time.Second)
	srv.AddUser("alice", "secret-pw")
	token, err := client.Login(context.Background(), "alice", "secret-pw")
	require.NoError(t, err)
	client.SetToken(token)
	return client, srv
}

func ds(id, name string) models.DataSource {
	return models.DataSource{
		ID:           id,
		Name:         name,
		DatabaseType: "POSTGRESQL",
		Host:         "db.internal",
		Port:         "5432",
		DatabaseName: "app",
	}
}

func TestFetchLoadsOwnedAndShared(t *testing.T) {
	client, srv := newAuthedClient(t)
	srv.SetOwned([]models.DataSource{ds("1", "A")})
	srv.SetShared([]models.DataSource{ds("9", "S")})

	store := stores.NewDataSourceStore(client)
	require.NoError(t, store.Fetch(context.Background()))

	require.Len(t, store.Owned(), 1)
	require.Len(t, store.Shared(), 1)
	assert.Equal(t, "A", store.Owned()[0].Name)
	assert.False(t, store.Loading())
	assert.Empty(t, store.Err())
}

func TestFetchFallsBackToFirstOwnedWhenSelectionVanishes(t *testing.T) {
	client, srv := newAuthedClient(t)
	srv.SetOwned([]models.DataSource{ds("1", "A"), ds("2", "B")})

	store := stores.NewDataSourceStore(client)
	ctx := context.Background()
	require.NoError(t, store.Fetch(ctx))
	require.NoError(t, store.Select("2"))

	// Source "2" disappears server-side; the selection must move to
	// the first owned source rather than dangle.
	srv.SetOwned([]models.DataSource{ds("1", "A")})
	require.NoError(t, store.Fetch(ctx))

	selected := store.Selected()
	require.NotNil(t, selected)
	assert.Equal(t, "1", selected.ID)
}

func TestFetchClearsSelectionWhenNothingRemains(t *testing.T) {
	client, srv := newAuthedClient(t)
	srv.SetOwned([]models.DataSource{ds("1", "A")})

	store := stores.NewDataSourceStore(client)
	ctx := context.Background()
	require.NoError(t, store.Fetch(ctx))
	require.NoError(t, store.Select("1"))

	srv.SetOwned(nil)
	require.NoError(t, store.Fetch(ctx))
	assert.Nil(t, store.Selected())
}

func TestFetchFailureEmptiesBothCollections(t *testing.T) {
	client, srv := newAuthedClient(t)
	srv.SetOwned([]models.DataSource{ds("1", "A")})
	srv.SetShared([]models.DataSource{ds("9", "S")})

	store := stores.NewDataSourceStore(client)
	ctx := context.Background()
	require.NoError(t, store.Fetch(ctx))
	require.Len(t, store.Owned(), 1)

	// Invalidate the session so both reads fail.
	client.SetToken("bogus")
	require.Error(t, store.Fetch(ctx))

	assert.Empty(t, store.Owned())
	assert.Empty(t, store.Shared())
	assert.Equal(t, "invalid token", store.Err())
	assert.False(t, store.Loading())
}

func TestOverlappingFetchesResolveLastWriterWins(t *testing.T) {
	client, srv := newAuthedClient(t)
	srv.SetOwned([]models.DataSource{ds("1", "A")})

	store := stores.NewDataSourceStore(client)
	ctx := context.Background()

	gate := &apitest.ListGate{
		Entered: make(chan struct{}),
		Release: make(chan struct{}),
	}
	srv.SetListGate(gate)

	done := make(chan error, 1)
	go func() { done <- store.Fetch(ctx) }()
	<-gate.Entered // first fetch is now held open with snapshot [A]

	srv.SetOwned([]models.DataSource{ds("2", "B")})
	require.NoError(t, store.Fetch(ctx))
	require.Len(t, store.Owned(), 1)
	require.Equal(t, "B", store.Owned()[0].Name)

	close(gate.Release)
	require.NoError(t, <-done)

	// The first fetch resolved last but was issued first; its stale
	// snapshot must be discarded.
	require.Len(t, store.Owned(), 1)
	assert.Equal(t, "B", store.Owned()[0].Name)
	assert.False(t, store.Loading())
}

func TestCreateSendsIntegerPortAndRefetches(t *testing.T) {
	client, srv := newAuthedClient(t)
	store := stores.NewDataSourceStore(client)
	ctx := context.Background()

	created := store.Create(ctx, models.DataSource{
		Name:         "warehouse",
		DatabaseType: "MYSQL",
		Host:         "db.internal",
		Port:         "3306",
		DatabaseName: "sales",
	})
	require.True(t, created)
	assert.Empty(t, store.Err())

	// The wire payload carries the port as a JSON number, not a string.
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(srv.LastCreateBody(), &payload))
	assert.Equal(t, float64(3306), payload["port"])

	// The server-assigned id is visible without an explicit Fetch.
	owned := store.Owned()
	require.Len(t, owned, 1)
	assert.NotEmpty(t, owned[0].ID)
	assert.Equal(t, "warehouse", owned[0].Name)
}

func TestCreateRejectsUnparseablePort(t *testing.T) {
	client, _ := newAuthedClient(t)
	store := stores.NewDataSourceStore(client)

	created := store.Create(context.Background(), models.DataSource{
		Name:         "warehouse",
		DatabaseType: "MYSQL",
		Host:         "db.internal",
		Port:         "not-a-port",
		DatabaseName: "sales",
	})
	assert.False(t, created)
	assert.Contains(t, store.Err(), "Invalid data source")
	assert.Empty(t, store.Owned())
}

func TestUpdatePushesRemoteAndMergesResult(t *testing.T) {
	client, srv := newAuthedClient(t)
	srv.SetOwned([]models.DataSource{ds("1", "A")})

	store := stores.NewDataSourceStore(client)
	ctx := context.Background()
	require.NoError(t, store.Fetch(ctx))

	changed := ds("1", "A-renamed")
	require.NoError(t, store.Update(ctx, changed))

	owned := store.Owned()
	require.Len(t, owned, 1)
	assert.Equal(t, "A-renamed", owned[0].Name)

	// The server saw the update too.
	remote, err := client.DataSource(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "A-renamed", remote.Name)
}

func TestUpdateWithLocalUpdatesSkipsRemote(t *testing.T) {
	client, srv := newAuthedClient(t)
	srv.SetOwned([]models.DataSource{ds("1", "A")})

	store := stores.NewDataSourceStore(client, stores.WithLocalUpdates())
	ctx := context.Background()
	require.NoError(t, store.Fetch(ctx))

	require.NoError(t, store.Update(ctx, ds("1", "A-local")))
	assert.Equal(t, "A-local", store.Owned()[0].Name)

	remote, err := client.DataSource(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "A", remote.Name, "remote copy must be untouched")
}

func TestDeleteIsRemoteConfirmed(t *testing.T) {
	client, srv := newAuthedClient(t)
	srv.SetOwned([]models.DataSource{ds("1", "A"), ds("2", "B")})

	store := stores.NewDataSourceStore(client)
	ctx := context.Background()
	require.NoError(t, store.Fetch(ctx))
	require.NoError(t, store.Select("1"))

	require.NoError(t, store.Delete(ctx, "1"))
	assert.Nil(t, store.Selected(), "deleting the selected source clears the selection")
	require.Len(t, store.Owned(), 1)
	assert.Equal(t, "2", store.Owned()[0].ID)

	// A failed remote delete leaves local state alone.
	err := store.Delete(ctx, "missing")
	require.Error(t, err)
	assert.Len(t, store.Owned(), 1)
	assert.Equal(t, "data source not found", store.Err())
}

func TestSelectRequiresMembership(t *testing.T) {
	client, srv := newAuthedClient(t)
	srv.SetOwned([]models.DataSource{ds("1", "A")})
	srv.SetShared([]models.DataSource{ds("9", "S")})

	store := stores.NewDataSourceStore(client)
	require.NoError(t, store.Fetch(context.Background()))

	require.NoError(t, store.Select("9"), "shared sources are selectable")
	require.Error(t, store.Select("42"))
	assert.Equal(t, "9", store.Selected().ID, "failed select leaves the selection alone")

	require.NoError(t, store.Select(""))
	assert.Nil(t, store.Selected())
}
