package schema

// ForeignKey is the target of a foreign key column.
type ForeignKey struct {
	RefTable  string
	RefColumn string
}

// Table describes a loaded table. Tables returned by a Catalog are shared
// and must not be modified.
type Table struct {
	Name    string // Table name without schema
	Schema  string // Schema name, empty when the backend has no schemas
	Catalog string // Database name of SQL Server three-part names
	RawName string // Quoted, schema-qualified name
	// ColumnNames holds the column names in table order.
	ColumnNames []string
	Columns     map[string]*Column
	// PrimaryKey is nil for tables without primary key and has more than
	// one element for composite keys.
	PrimaryKey []string
	// ForeignKeys maps local column names to their targets.
	ForeignKeys map[string]ForeignKey
	// SequenceName is nil when the table has no sequence or identity. An
	// empty name means the backend manages the identity implicitly.
	SequenceName *string
}

// NewTable returns a new table with the given name.
func NewTable(name string) *Table {
	return &Table{
		Name:        name,
		Columns:     make(map[string]*Column),
		ForeignKeys: make(map[string]ForeignKey),
	}
}

// AddColumn appends a column to the table. A column with the same name is
// replaced in place.
func (t *Table) AddColumn(c *Column) *Table {
	if t.Columns == nil {
		t.Columns = make(map[string]*Column)
	}
	if _, ok := t.Columns[c.Name]; !ok {
		t.ColumnNames = append(t.ColumnNames, c.Name)
	}
	t.Columns[c.Name] = c
	return t
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.Columns[name]
	return c, ok
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Columns[name]
	return ok
}

// OrderedColumns returns the columns in table order.
func (t *Table) OrderedColumns() []*Column {
	cols := make([]*Column, 0, len(t.ColumnNames))
	for _, name := range t.ColumnNames {
		if c, ok := t.Columns[name]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// HasSequence reports whether the table has a sequence or identity column.
func (t *Table) HasSequence() bool { return t.SequenceName != nil }

// IsCompositeKey reports whether the primary key spans several columns.
func (t *Table) IsCompositeKey() bool { return len(t.PrimaryKey) > 1 }

// SinglePrimaryKey returns the primary key column of a table with a
// scalar key.
func (t *Table) SinglePrimaryKey() (*Column, bool) {
	if len(t.PrimaryKey) != 1 {
		return nil, false
	}
	return t.Column(t.PrimaryKey[0])
}

// addPrimaryKey records a primary key column, keeping the key order and
// ignoring duplicates.
func (t *Table) addPrimaryKey(name string) {
	for _, pk := range t.PrimaryKey {
		if pk == name {
			return
		}
	}
	t.PrimaryKey = append(t.PrimaryKey, name)
}

// setSequence marks the table as having a sequence unless one was already
// found; the first one wins.
func (t *Table) setSequence(name string) {
	if t.SequenceName == nil {
		t.SequenceName = strp(name)
	}
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := *t
	c.ColumnNames = append([]string(nil), t.ColumnNames...)
	c.PrimaryKey = append([]string(nil), t.PrimaryKey...)
	if t.PrimaryKey == nil {
		c.PrimaryKey = nil
	}
	c.Columns = make(map[string]*Column, len(t.Columns))
	for k, col := range t.Columns {
		cc := *col
		c.Columns[k] = &cc
	}
	c.ForeignKeys = make(map[string]ForeignKey, len(t.ForeignKeys))
	for k, fk := range t.ForeignKeys {
		c.ForeignKeys[k] = fk
	}
	if t.SequenceName != nil {
		c.SequenceName = strp(*t.SequenceName)
	}
	return &c
}
