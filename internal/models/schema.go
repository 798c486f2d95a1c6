package models

// Schema is the raw structure returned by the connect-and-describe flow.
// It keeps the legacy wire naming of that endpoint.
type Schema struct {
	Tables []Table `json:"tables"`
}

type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primary_keys"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

type ForeignKey struct {
	Column     string `json:"column"`
	References string `json:"references"`
}

type Column struct {
	Name        string   `json:"name"`
	Dtype       string   `json:"dtype"`
	Constraints []string `json:"constraints"`
	Description string   `json:"description"`
}

// FindTable returns the first table with the given name, or nil.
func (s *Schema) FindTable(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{Tables: make([]Table, len(s.Tables))}
	for i, t := range s.Tables {
		ct := Table{
			Name:        t.Name,
			Columns:     make([]Column, len(t.Columns)),
			PrimaryKeys: append([]string(nil), t.PrimaryKeys...),
			ForeignKeys: append([]ForeignKey(nil), t.ForeignKeys...),
		}
		for j, c := range t.Columns {
			cc := c
			cc.Constraints = append([]string(nil), c.Constraints...)
			ct.Columns[j] = cc
		}
		out.Tables[i] = ct
	}
	return out
}

// FindColumn returns the first column with the given name, or nil.
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsPrimaryKey reports whether the column name is one of the table's
// primary keys.
func (t *Table) IsPrimaryKey(column string) bool {
	for _, pk := range t.PrimaryKeys {
		if pk == column {
			return true
		}
	}
	return false
}

// ForeignKeyFor returns the first foreign key whose column matches, or
// nil. A column listed in several foreign keys resolves to the first.
func (t *Table) ForeignKeyFor(column string) *ForeignKey {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].Column == column {
			return &t.ForeignKeys[i]
		}
	}
	return nil
}
