// Package schema holds the in-memory model of a relational snapshot: tables
// with typed columns, positional rows, and single-column foreign keys.
//
// A Snapshot is built once by a source loader and treated as read-only by
// everything downstream.
package schema

// Column describes one column of a table.
type Column struct {
	Name string

	// DBType is the database type name as reported by the driver
	// (e.g. "NUMERIC", "varchar", "DECIMAL(10,2)").
	DBType string

	Kind Kind
}

// Row is a positional row aligned with its table's Columns.
//
// Values are canonical Go types: nil, string, int64, float64, bool,
// decimal.Decimal, time.Time, uuid.UUID or []byte. Loaders may leave values
// they cannot classify as-is; the normalizer rejects those at output time.
type Row []any

// ForeignKey is a directed single-column edge: ChildTable.ChildColumn
// references ParentTable.ParentColumn.
type ForeignKey struct {
	Name         string
	ChildTable   string
	ChildColumn  string
	ParentTable  string
	ParentColumn string
}

// IsSelfRef reports whether the key references its own table.
func (fk ForeignKey) IsSelfRef() bool {
	return fk.ChildTable == fk.ParentTable
}

// SkippedConstraint records a foreign key constraint the loader did not turn
// into an edge.
type SkippedConstraint struct {
	Name        string
	Table       string
	Columns     []string
	ParentTable string
	Reason      SkipReason
}

// SkipReason explains why a constraint was skipped.
type SkipReason string

const (
	// SkipComposite marks a constraint spanning more than one column.
	SkipComposite SkipReason = "composite key"
	// SkipExcludedParent marks a constraint whose parent table was filtered out.
	SkipExcludedParent SkipReason = "parent table excluded"
)

// Table is a named table with its columns and all of its rows.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	Rows        []Row
	ForeignKeys []ForeignKey

	colIndex map[string]int
}

// NewTable creates a table with the given columns.
func NewTable(name string, columns []Column) *Table {
	t := &Table{Name: name, Columns: columns}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.colIndex = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.colIndex[c.Name] = i
	}
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.colIndex == nil || len(t.colIndex) != len(t.Columns) {
		t.reindex()
	}
	i, ok := t.colIndex[name]
	return i, ok
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// ColumnNames returns all column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Value returns the value of the named column in row, or nil when the
// column does not exist or the row is short.
func (t *Table) Value(row Row, column string) any {
	i, ok := t.ColumnIndex(column)
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

// AddRow appends a row. The row must be aligned with Columns.
func (t *Table) AddRow(values ...any) {
	t.Rows = append(t.Rows, Row(values))
}

// Snapshot is the complete set of tables loaded from a source, in
// enumeration order.
type Snapshot struct {
	Tables  []*Table
	Skipped []SkippedConstraint

	byName map[string]*Table
}

// NewSnapshot builds a snapshot over tables in the given order.
func NewSnapshot(tables ...*Table) *Snapshot {
	s := &Snapshot{}
	for _, t := range tables {
		s.Add(t)
	}
	return s
}

// Add appends a table to the snapshot.
func (s *Snapshot) Add(t *Table) {
	if s.byName == nil {
		s.byName = make(map[string]*Table)
	}
	s.Tables = append(s.Tables, t)
	s.byName[t.Name] = t
}

// Table returns the named table.
func (s *Snapshot) Table(name string) (*Table, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// TableNames returns the table names in enumeration order.
func (s *Snapshot) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// ForeignKeys returns every edge across all tables, in table order and then
// constraint order within each table.
func (s *Snapshot) ForeignKeys() []ForeignKey {
	var fks []ForeignKey
	for _, t := range s.Tables {
		fks = append(fks, t.ForeignKeys...)
	}
	return fks
}

// RowCount returns the total number of rows across all tables.
func (s *Snapshot) RowCount() int {
	n := 0
	for _, t := range s.Tables {
		n += len(t.Rows)
	}
	return n
}
