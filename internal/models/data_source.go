package models

// TableRelation links a column to a column of another table.
type TableRelation struct {
	TableIdentifier string `json:"table_identifier"`
	ToColumn        string `json:"to_column"`
	Type            string `json:"type"` // OTM, MTO, OTO or MTM
}

type ColumnDefinition struct {
	ColumnIdentifier  string          `json:"column_identifier"`
	ColumnType        string          `json:"column_type"`
	ColumnDescription string          `json:"column_description,omitempty"`
	IsPrimaryKey      bool            `json:"is_primary_key"`
	Relations         []TableRelation `json:"relations,omitempty"`
}

type TableDefinition struct {
	TableIdentifier string             `json:"table_identifier"`
	Columns         []ColumnDefinition `json:"columns"`
}

// DataSource is a configured connection to an external relational
// database. Owned sources carry full connection fields; sources shared
// with the current user carry only ID, DatabaseType and Name.
type DataSource struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	DatabaseType     string            `json:"database_type"`
	Host             string            `json:"host,omitempty"`
	Port             string            `json:"port,omitempty"`
	DatabaseName     string            `json:"database_name,omitempty"`
	Username         string            `json:"username,omitempty"`
	Password         string            `json:"password,omitempty"`
	TableDefinitions []TableDefinition `json:"table_definitions,omitempty"`
}
