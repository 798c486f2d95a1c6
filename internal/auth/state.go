// Package auth tracks the session as an explicit state machine with
// three states: loading (token being restored), unauthenticated and
// authenticated. Transitions happen only through Restore, Login and
// Logout; an illegal transition is an error, not a silent overwrite.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"querydesk/internal/constants"
	"querydesk/internal/localstore"
	"querydesk/internal/models"
	"querydesk/pkg/api"
)

type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var ErrAlreadyAuthenticated = errors.New("already authenticated")

type Machine struct {
	client *api.Client
	store  localstore.Store

	mu    sync.Mutex
	state State
	user  models.User
}

func NewMachine(client *api.Client, store localstore.Store) *Machine {
	return &Machine{client: client, store: store, state: StateLoading}
}

// Restore moves the machine out of the loading state by revalidating a
// persisted token. The token's expiry is read from its claims without
// signature verification; the server remains authoritative and gets
// the final say through the /users/me call.
func (m *Machine) Restore(ctx context.Context) State {
	token, err := m.store.Get(ctx, constants.StorageKeyAccessToken)
	if err != nil {
		if !errors.Is(err, localstore.ErrKeyNotFound) {
			log.Printf("Error reading stored token: %v", err)
		}
		return m.become(StateUnauthenticated)
	}

	if tokenExpired(string(token)) {
		if err := m.store.Del(ctx, constants.StorageKeyAccessToken); err != nil {
			log.Printf("Error discarding expired token: %v", err)
		}
		return m.become(StateUnauthenticated)
	}

	m.client.SetToken(string(token))
	user, err := m.client.Me(ctx)
	if err != nil {
		log.Printf("Stored token rejected: %v", err)
		m.client.SetToken("")
		return m.become(StateUnauthenticated)
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return m.become(StateAuthenticated)
}

// Login exchanges credentials for a token, persists it and installs it
// on the api client. Logging in while already authenticated is an
// illegal transition.
func (m *Machine) Login(ctx context.Context, username, password string) error {
	m.mu.Lock()
	if m.state == StateAuthenticated {
		m.mu.Unlock()
		return ErrAlreadyAuthenticated
	}
	m.mu.Unlock()

	token, err := m.client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	if err := m.store.Set(ctx, constants.StorageKeyAccessToken, []byte(token)); err != nil {
		log.Printf("Warning: failed to persist token: %v", err)
	}
	m.client.SetToken(token)

	user, err := m.client.Me(ctx)
	if err != nil {
		// The session is valid even if the profile read failed.
		log.Printf("Warning: failed to load current user: %v", err)
	}

	m.mu.Lock()
	m.user = user
	m.state = StateAuthenticated
	m.mu.Unlock()
	return nil
}

// Logout clears the persisted token and returns the machine to the
// unauthenticated state. It is idempotent.
func (m *Machine) Logout(ctx context.Context) error {
	if err := m.store.Del(ctx, constants.StorageKeyAccessToken); err != nil {
		return err
	}
	m.client.SetToken("")
	m.mu.Lock()
	m.user = models.User{}
	m.state = StateUnauthenticated
	m.mu.Unlock()
	return nil
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) User() models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

func (m *Machine) become(state State) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return state
}

// tokenExpired reports whether the token carries an exp claim in the
// past. Unparseable tokens count as expired.
func tokenExpired(tokenString string) bool {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.Before(time.Now())
}
