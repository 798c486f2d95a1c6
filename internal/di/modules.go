package di

import (
	"fmt"
	"log"
	"time"

	"go.uber.org/dig"

	"querydesk/config"
	"querydesk/internal/auth"
	"querydesk/internal/localstore"
	"querydesk/internal/stores"
	"querydesk/pkg/api"
)

var DiContainer *dig.Container

func Initialize() {
	DiContainer = dig.New()

	if err := DiContainer.Provide(newLocalStore); err != nil {
		log.Fatalf("Failed to provide local store: %v", err)
	}

	if err := DiContainer.Provide(func() *api.Client {
		return api.NewClient(config.Env.APIBaseURL, time.Duration(config.Env.RequestTimeoutSeconds)*time.Second)
	}); err != nil {
		log.Fatalf("Failed to provide api client: %v", err)
	}

	if err := DiContainer.Provide(func(client *api.Client, store localstore.Store) *auth.Machine {
		return auth.NewMachine(client, store)
	}); err != nil {
		log.Fatalf("Failed to provide auth machine: %v", err)
	}

	if err := DiContainer.Provide(func(client *api.Client) *stores.DataSourceStore {
		return stores.NewDataSourceStore(client)
	}); err != nil {
		log.Fatalf("Failed to provide data source store: %v", err)
	}

	if err := DiContainer.Provide(stores.NewConversationStore); err != nil {
		log.Fatalf("Failed to provide conversation store: %v", err)
	}

	if err := DiContainer.Provide(func(client *api.Client, store localstore.Store) *stores.SchemaEditor {
		return stores.NewSchemaEditor(client, store)
	}); err != nil {
		log.Fatalf("Failed to provide schema editor: %v", err)
	}

	if err := DiContainer.Provide(func(store localstore.Store) *stores.TableSchema {
		return stores.NewTableSchema(store)
	}); err != nil {
		log.Fatalf("Failed to provide table schema: %v", err)
	}
}

func newLocalStore() (localstore.Store, error) {
	switch config.Env.StorageBackend {
	case "file":
		return localstore.NewFileStore(config.Env.StorageDir, config.Env.StoragePassphrase)
	case "redis":
		return localstore.NewRedisStore(config.Env.RedisHost, config.Env.RedisPort, config.Env.RedisUsername, config.Env.RedisPassword)
	case "memory":
		return localstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", config.Env.StorageBackend)
	}
}

// App bundles everything a command needs.
type App struct {
	dig.In

	Client       *api.Client
	Auth         *auth.Machine
	DataSources  *stores.DataSourceStore
	Conversation *stores.ConversationStore
	SchemaEditor *stores.SchemaEditor
	TableSchema  *stores.TableSchema
}

// Invoke runs fn with an App resolved from the container.
func Invoke(fn func(App) error) error {
	return DiContainer.Invoke(func(app App) error {
		return fn(app)
	})
}
