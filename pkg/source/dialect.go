package source

// Dialect supplies the catalog queries and identifier quoting of one
// database engine.
//
// Every query returns rows of a fixed shape:
//   - TablesQuery: (table_name), ordered.
//   - ForeignKeysQuery: (constraint_name, column_name, parent_table,
//     parent_column, position), ordered by constraint then position. An
//     empty parent_column means the parent's primary key.
//   - PrimaryKeyQuery: (column_name), ordered by key position.
type Dialect interface {
	Name() string
	TablesQuery() (string, []any)
	ForeignKeysQuery(table string) (string, []any)
	PrimaryKeyQuery(table string) (string, []any)

	// QuoteTable returns the table reference used in SELECT statements.
	QuoteTable(table string) string
	QuoteColumn(column string) string
}
