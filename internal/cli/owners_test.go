package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querydesk/internal/apitest"
	"querydesk/internal/models"
	"querydesk/pkg/api"
)

func newOwnersClient(t *testing.T) (*api.Client, *apitest.Server) {
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

func TestAddOwnerCheckedRejectsDuplicateWithoutCreateCall(t *testing.T) {
	client, srv := newOwnersClient(t)
	srv.SetOwners("ds-1", []models.Owner{{ID: 1, Username: "bob"}})

	_, err := addOwnerChecked(context.Background(), client, "ds-1", "bob")
	require.EqualError(t, err, "User is already an owner")
	assert.Zero(t, srv.AddOwnerCalls(), "duplicate must be rejected before any create call")
}

func TestAddOwnerCheckedAddsNewOwner(t *testing.T) {
	client, srv := newOwnersClient(t)
	srv.SetOwners("ds-1", []models.Owner{{ID: 1, Username: "bob"}})
	ctx := context.Background()

	owner, err := addOwnerChecked(ctx, client, "ds-1", "carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", owner.Username)
	assert.Equal(t, 1, srv.AddOwnerCalls())

	owners, err := client.Owners(ctx, "ds-1")
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, "carol", owners[1].Username)
}
