package source

import "strings"

// SQLite reads the main database of a SQLite file.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) TablesQuery() (string, []any) {
	return `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
			AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`, nil
}

// ForeignKeysQuery reports a NULL target column as empty; SQLite allows
// omitting it when the parent's primary key is meant.
func (SQLite) ForeignKeysQuery(table string) (string, []any) {
	return `
		SELECT 'fk_' || id, "from", "table", COALESCE("to", ''), seq
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq
	`, []any{table}
}

func (SQLite) PrimaryKeyQuery(table string) (string, []any) {
	return `
		SELECT name
		FROM pragma_table_info(?)
		WHERE pk > 0
		ORDER BY pk
	`, []any{table}
}

func (SQLite) QuoteTable(table string) string {
	return doubleQuote(table)
}

func (SQLite) QuoteColumn(column string) string {
	return doubleQuote(column)
}

func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
