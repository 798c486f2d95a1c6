package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"querydesk/internal/apis/dtos"
	"querydesk/internal/constants"
	"querydesk/internal/localstore"
	"querydesk/internal/models"
	"querydesk/pkg/api"
)

// SchemaEditor holds the schema fetched through the legacy
// connect-and-describe flow and lets the user annotate column
// descriptions. Every change rewrites the whole document in the local
// store under the dbSchema key; the data is one human-annotated schema,
// so full rewrites are deliberate simplicity, not a performance path.
type SchemaEditor struct {
	client *api.Client
	store  localstore.Store

	mu      sync.Mutex
	schema  *models.Schema
	loading bool
	errMsg  string
}

func NewSchemaEditor(client *api.Client, store localstore.Store) *SchemaEditor {
	return &SchemaEditor{client: client, store: store}
}

// Connect sends credentials to the connect endpoint and, on success,
// holds the returned schema and persists it verbatim.
func (s *SchemaEditor) Connect(ctx context.Context, req dtos.ConnectRequest) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	schema, err := s.client.Connect(ctx, req)
	if err != nil {
		log.Printf("Error connecting to database: %v", err)
		s.mu.Lock()
		s.errMsg = displayMessage(err, "Failed to connect to database")
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.schema = schema
	s.mu.Unlock()

	if err := s.persist(ctx, schema); err != nil {
		log.Printf("Warning: failed to persist schema: %v", err)
	}
	return nil
}

// Load hydrates the editor from the local store, so annotations made
// in an earlier session are editable without reconnecting.
func (s *SchemaEditor) Load(ctx context.Context) error {
	data, err := s.store.Get(ctx, constants.StorageKeyDBSchema)
	if errors.Is(err, localstore.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var schema models.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return fmt.Errorf("stored schema is corrupt: %w", err)
	}

	s.mu.Lock()
	s.schema = &schema
	s.mu.Unlock()
	return nil
}

// SetColumnDescription annotates a column. Table and column are looked
// up by first match; the whole schema document is re-persisted after
// every change.
func (s *SchemaEditor) SetColumnDescription(ctx context.Context, tableName, columnName, text string) error {
	s.mu.Lock()
	if s.schema == nil {
		s.mu.Unlock()
		return errors.New("no schema loaded")
	}

	clone := s.schema.Clone()
	table := clone.FindTable(tableName)
	if table == nil {
		s.mu.Unlock()
		return fmt.Errorf("table not found: %s", tableName)
	}
	column := table.FindColumn(columnName)
	if column == nil {
		s.mu.Unlock()
		return fmt.Errorf("column not found: %s.%s", tableName, columnName)
	}
	column.Description = text
	s.schema = clone
	s.mu.Unlock()

	return s.persist(ctx, clone)
}

func (s *SchemaEditor) persist(ctx context.Context, schema *models.Schema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, constants.StorageKeyDBSchema, data)
}

// Schema returns a deep copy of the current schema, or nil.
func (s *SchemaEditor) Schema() *models.Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Clone()
}

func (s *SchemaEditor) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *SchemaEditor) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// TableSchema is the second annotation flow: a flat map of column
// descriptions keyed "<table>.<column>", saved as a whole by an
// explicit user action instead of on every change. It owns the
// tableData key, independent of the SchemaEditor's dbSchema key; the
// two documents do not reconcile with each other.
type TableSchema struct {
	store localstore.Store

	mu           sync.Mutex
	descriptions map[string]string
}

func NewTableSchema(store localstore.Store) *TableSchema {
	return &TableSchema{store: store, descriptions: make(map[string]string)}
}

func columnKey(tableName, columnName string) string {
	return tableName + "." + columnName
}

// Init seeds each column's description from the local store when an
// entry for that column exists, else from the fetched schema's own
// description. The fallback is per key: a column the stored document
// has never seen, such as one discovered after a reconnect, keeps its
// schema-provided description.
func (s *TableSchema) Init(ctx context.Context, schema *models.Schema) error {
	seeded := make(map[string]string)
	if schema != nil {
		for _, table := range schema.Tables {
			for _, column := range table.Columns {
				seeded[columnKey(table.Name, column.Name)] = column.Description
			}
		}
	}

	data, err := s.store.Get(ctx, constants.StorageKeyTableData)
	if err != nil && !errors.Is(err, localstore.ErrKeyNotFound) {
		return err
	}
	if err == nil {
		var stored map[string]string
		if jsonErr := json.Unmarshal(data, &stored); jsonErr != nil {
			return fmt.Errorf("stored table data is corrupt: %w", jsonErr)
		}
		for key, text := range stored {
			seeded[key] = text
		}
	}

	s.mu.Lock()
	s.descriptions = seeded
	s.mu.Unlock()
	return nil
}

func (s *TableSchema) SetDescription(tableName, columnName, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descriptions[columnKey(tableName, columnName)] = text
}

func (s *TableSchema) Description(tableName, columnName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.descriptions[columnKey(tableName, columnName)]
}

// Save persists the whole edited map at once.
func (s *TableSchema) Save(ctx context.Context) error {
	s.mu.Lock()
	data, err := json.Marshal(s.descriptions)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.store.Set(ctx, constants.StorageKeyTableData, data)
}
