package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querydesk/internal/apitest"
	"querydesk/internal/auth"
	"querydesk/internal/constants"
	"querydesk/internal/localstore"
	"querydesk/pkg/api"
)

func newMachine(t *testing.T) (*auth.Machine, *apitest.Server, localstore.Store) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("alice", "secret-pw")

	client := api.NewClient(srv.URL(), 5*time.Second)
	store := localstore.NewMemoryStore()
	return auth.NewMachine(client, store), srv, store
}

func TestMachineStartsLoading(t *testing.T) {
	m, _, _ := newMachine(t)
	assert.Equal(t, auth.StateLoading, m.State())
}

func TestRestoreWithoutTokenIsUnauthenticated(t *testing.T) {
	m, _, _ := newMachine(t)
	assert.Equal(t, auth.StateUnauthenticated, m.Restore(context.Background()))
}

func TestRestoreWithValidToken(t *testing.T) {
	m, srv, store := newMachine(t)
	ctx := context.Background()

	token := srv.IssueToken("alice", time.Hour)
	require.NoError(t, store.Set(ctx, constants.StorageKeyAccessToken, []byte(token)))

	assert.Equal(t, auth.StateAuthenticated, m.Restore(ctx))
	assert.Equal(t, "alice", m.User().Username)
}

func TestRestoreDiscardsExpiredToken(t *testing.T) {
	m, srv, store := newMachine(t)
	ctx := context.Background()

	token := srv.IssueToken("alice", -time.Hour)
	require.NoError(t, store.Set(ctx, constants.StorageKeyAccessToken, []byte(token)))

	assert.Equal(t, auth.StateUnauthenticated, m.Restore(ctx))
	_, err := store.Get(ctx, constants.StorageKeyAccessToken)
	assert.ErrorIs(t, err, localstore.ErrKeyNotFound, "expired token must be purged")
}

func TestRestoreWithGarbageTokenIsUnauthenticated(t *testing.T) {
	m, _, store := newMachine(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, constants.StorageKeyAccessToken, []byte("not-a-jwt")))

	assert.Equal(t, auth.StateUnauthenticated, m.Restore(ctx))
}

func TestRestoreWithServerRejectedToken(t *testing.T) {
	m, _, store := newMachine(t)
	ctx := context.Background()

	// Well-formed and unexpired, but the server never issued it.
	foreign := srvIssuedElsewhere(t)
	require.NoError(t, store.Set(ctx, constants.StorageKeyAccessToken, []byte(foreign)))

	assert.Equal(t, auth.StateUnauthenticated, m.Restore(ctx))
}

// srvIssuedElsewhere returns a token signed by a different server, so
// the expiry check passes but the session lookup fails.
func srvIssuedElsewhere(t *testing.T) string {
	t.Helper()
	other := apitest.NewServer()
	defer other.Close()
	return other.IssueToken("mallory", time.Hour)
}

func TestLoginPersistsTokenAndAuthenticates(t *testing.T) {
	m, _, store := newMachine(t)
	ctx := context.Background()
	m.Restore(ctx)

	require.NoError(t, m.Login(ctx, "alice", "secret-pw"))
	assert.Equal(t, auth.StateAuthenticated, m.State())
	assert.Equal(t, "alice", m.User().Username)

	token, err := store.Get(ctx, constants.StorageKeyAccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLoginWithBadCredentials(t *testing.T) {
	m, _, _ := newMachine(t)
	ctx := context.Background()
	m.Restore(ctx)

	err := m.Login(ctx, "alice", "wrong-pw")
	require.Error(t, err)
	assert.Equal(t, auth.StateUnauthenticated, m.State())
}

func TestLoginWhileAuthenticatedIsIllegal(t *testing.T) {
	m, _, _ := newMachine(t)
	ctx := context.Background()
	m.Restore(ctx)
	require.NoError(t, m.Login(ctx, "alice", "secret-pw"))

	err := m.Login(ctx, "alice", "secret-pw")
	assert.ErrorIs(t, err, auth.ErrAlreadyAuthenticated)
}

func TestLogoutIsIdempotent(t *testing.T) {
	m, _, store := newMachine(t)
	ctx := context.Background()
	m.Restore(ctx)
	require.NoError(t, m.Login(ctx, "alice", "secret-pw"))

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, auth.StateUnauthenticated, m.State())
	assert.Empty(t, m.User().Username)
	_, err := store.Get(ctx, constants.StorageKeyAccessToken)
	assert.ErrorIs(t, err, localstore.ErrKeyNotFound)

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, auth.StateUnauthenticated, m.State())
}

func TestLogoutThenLoginAgain(t *testing.T) {
	m, _, _ := newMachine(t)
	ctx := context.Background()
	m.Restore(ctx)

	require.NoError(t, m.Login(ctx, "alice", "secret-pw"))
	require.NoError(t, m.Logout(ctx))
	require.NoError(t, m.Login(ctx, "alice", "secret-pw"))
	assert.Equal(t, auth.StateAuthenticated, m.State())
}
