// Package stores holds the client-side state of the application: the
// data sources visible to the user, the chat conversations, and the
// schema annotation state. Stores own their data behind a mutex and
// synchronize with the platform through the api client; callers read
// snapshots, never live references.
package stores

import (
	"context"
	"errors"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"querydesk/internal/apis/dtos"
	"querydesk/internal/models"
	"querydesk/pkg/api"
)

// DataSourceStore is the single source of truth for which data sources
// exist (owned vs shared with the user) and which one is active.
type DataSourceStore struct {
	client *api.Client

	mu           sync.Mutex
	owned        []models.DataSource
	shared       []models.DataSource
	selectedID   string
	loading      bool
	errMsg       string
	fetchToken   uint64 // last issued fetch, guarded by mu
	localUpdates bool
}

type DataSourceStoreOption func(*DataSourceStore)

// WithLocalUpdates makes Update merge locally without a remote call,
// matching the older template's behavior. Production wiring does not
// use it.
func WithLocalUpdates() DataSourceStoreOption {
	return func(s *DataSourceStore) { s.localUpdates = true }
}

func NewDataSourceStore(client *api.Client, opts ...DataSourceStoreOption) *DataSourceStore {
	s := &DataSourceStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch reloads the owned and shared collections with two concurrent
// reads. Fetches are fenced: each call takes a token, and a response
// belonging to an older token than the latest issued one is discarded,
// so overlapping fetches resolve last-writer-wins by issue order.
// Failure of either read empties both collections.
func (s *DataSourceStore) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.fetchToken++
	token := s.fetchToken
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	var owned, shared []models.DataSource
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owned, err = s.client.OwnedDataSources(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		shared, err = s.client.AvailableDataSources(gctx)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if token == s.fetchToken {
		s.loading = false
	}
	if token != s.fetchToken {
		log.Printf("Discarding stale data source fetch (token %d < %d)", token, s.fetchToken)
		return nil
	}

	if err != nil {
		log.Printf("Error fetching data sources: %v", err)
		s.owned, s.shared = nil, nil
		s.errMsg = displayMessage(err, "Failed to load data sources")
		s.reconcileSelectionLocked()
		return err
	}

	s.owned, s.shared = owned, shared
	s.reconcileSelectionLocked()
	return nil
}

// reconcileSelectionLocked keeps the selection invariant: after a
// fetch the selected id is either empty or a member of owned∪shared.
// A vanished selection falls back to the first owned source.
func (s *DataSourceStore) reconcileSelectionLocked() {
	if s.selectedID == "" {
		return
	}
	if s.findLocked(s.selectedID) != nil {
		return
	}
	if len(s.owned) > 0 {
		s.selectedID = s.owned[0].ID
		return
	}
	s.selectedID = ""
}

func (s *DataSourceStore) findLocked(id string) *models.DataSource {
	for i := range s.owned {
		if s.owned[i].ID == id {
			return &s.owned[i]
		}
	}
	for i := range s.shared {
		if s.shared[i].ID == id {
			return &s.shared[i]
		}
	}
	return nil
}

// Create posts a new data source and, on success, refreshes the whole
// collection so the server-assigned id becomes visible. It reports
// success as a boolean and never propagates an error to the caller;
// failures surface through Err.
func (s *DataSourceStore) Create(ctx context.Context, source models.DataSource) bool {
	req, err := dtos.NewCreateDataSourceRequest(source)
	if err != nil {
		s.setError("Invalid data source: " + err.Error())
		return false
	}

	s.setLoading(true)
	defer s.setLoading(false)

	if _, err := s.client.CreateDataSource(ctx, req); err != nil {
		log.Printf("Error creating data source: %v", err)
		s.setError(displayMessage(err, "Failed to create data source"))
		return false
	}

	if err := s.Fetch(ctx); err != nil {
		// The source was created; a failed refresh only delays its
		// appearance until the next fetch.
		log.Printf("Error refreshing data sources after create: %v", err)
	}
	return true
}

// Update pushes the changed fields to the server and merges the result
// into local state by id. With WithLocalUpdates it skips the remote
// call entirely.
func (s *DataSourceStore) Update(ctx context.Context, source models.DataSource) error {
	if source.ID == "" {
		return errors.New("data source id is required")
	}

	if s.localUpdates {
		s.mergeLocal(source)
		return nil
	}

	req, err := dtos.NewCreateDataSourceRequest(source)
	if err != nil {
		s.setError("Invalid data source: " + err.Error())
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	updated, err := s.client.UpdateDataSource(ctx, source.ID, req)
	if err != nil {
		log.Printf("Error updating data source %s: %v", source.ID, err)
		s.setError(displayMessage(err, "Failed to update data source"))
		return err
	}
	if updated.ID == "" {
		updated = source
	}
	s.mergeLocal(updated)
	return nil
}

func (s *DataSourceStore) mergeLocal(source models.DataSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.owned {
		if s.owned[i].ID == source.ID {
			s.owned[i] = source
			return
		}
	}
	for i := range s.shared {
		if s.shared[i].ID == source.ID {
			s.shared[i] = source
			return
		}
	}
}

// Delete removes the data source on the server first; local state only
// changes once the server confirms. Deleting the selected source
// clears the selection.
func (s *DataSourceStore) Delete(ctx context.Context, id string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.client.DeleteDataSource(ctx, id); err != nil {
		log.Printf("Error deleting data source %s: %v", id, err)
		s.setError(displayMessage(err, "Failed to delete data source"))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned = removeByID(s.owned, id)
	s.shared = removeByID(s.shared, id)
	if s.selectedID == id {
		s.selectedID = ""
	}
	return nil
}

func removeByID(sources []models.DataSource, id string) []models.DataSource {
	out := sources[:0]
	for _, src := range sources {
		if src.ID != id {
			out = append(out, src)
		}
	}
	return out
}

// Select marks a data source as active. The id must be a member of the
// current owned or shared collection.
func (s *DataSourceStore) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.selectedID = ""
		return nil
	}
	if s.findLocked(id) == nil {
		return errors.New("unknown data source: " + id)
	}
	s.selectedID = id
	return nil
}

// Selected returns a copy of the active data source, or nil.
func (s *DataSourceStore) Selected() *models.DataSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := s.findLocked(s.selectedID)
	if found == nil {
		return nil
	}
	cp := *found
	return &cp
}

func (s *DataSourceStore) Owned() []models.DataSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DataSource(nil), s.owned...)
}

func (s *DataSourceStore) Shared() []models.DataSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DataSource(nil), s.shared...)
}

func (s *DataSourceStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the display message of the most recent failure, empty
// when the last operation succeeded.
func (s *DataSourceStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *DataSourceStore) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
	if v {
		s.errMsg = ""
	}
}

func (s *DataSourceStore) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
}

// displayMessage prefers the server-reported message over the generic
// fallback. Callers never see structured error codes.
func displayMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
