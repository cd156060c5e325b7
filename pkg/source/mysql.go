package source

import "strings"

// MySQL reads one database of a MySQL server. An empty Schema means the
// connection's current database.
type MySQL struct {
	Schema string
}

func (MySQL) Name() string { return "mysql" }

func (d MySQL) TablesQuery() (string, []any) {
	return `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
			AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`, []any{d.Schema}
}

func (d MySQL) ForeignKeysQuery(table string) (string, []any) {
	return `
		SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME, ORDINAL_POSITION
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
			AND TABLE_NAME = ?
			AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION
	`, []any{d.Schema, table}
}

func (d MySQL) PrimaryKeyQuery(table string) (string, []any) {
	return `
		SELECT COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
			AND TABLE_NAME = ?
			AND CONSTRAINT_NAME = 'PRIMARY'
		ORDER BY ORDINAL_POSITION
	`, []any{d.Schema, table}
}

func (d MySQL) QuoteTable(table string) string {
	if d.Schema == "" {
		return backtick(table)
	}
	return backtick(d.Schema) + "." + backtick(table)
}

func (MySQL) QuoteColumn(column string) string {
	return backtick(column)
}

func backtick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
