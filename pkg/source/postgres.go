package source

import "github.com/jackc/pgx/v5"

// DefaultPostgresSchema is the schema read when none is configured.
const DefaultPostgresSchema = "public"

// Postgres reads one schema of a PostgreSQL database.
type Postgres struct {
	Schema string
}

func (d Postgres) schema() string {
	if d.Schema == "" {
		return DefaultPostgresSchema
	}
	return d.Schema
}

func (Postgres) Name() string { return "postgres" }

func (d Postgres) TablesQuery() (string, []any) {
	return `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
			AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, []any{d.schema()}
}

// ForeignKeysQuery pairs each referencing column with the referenced column
// at the same position of the unique constraint.
func (d Postgres) ForeignKeysQuery(table string) (string, []any) {
	return `
		SELECT DISTINCT
			kcu.constraint_name,
			kcu.column_name,
			ref.table_name,
			ref.column_name,
			kcu.ordinal_position
		FROM information_schema.referential_constraints AS rc
		JOIN information_schema.key_column_usage AS kcu
			ON kcu.constraint_schema = rc.constraint_schema
			AND kcu.constraint_name = rc.constraint_name
		JOIN information_schema.key_column_usage AS ref
			ON ref.constraint_schema = rc.unique_constraint_schema
			AND ref.constraint_name = rc.unique_constraint_name
			AND ref.ordinal_position = kcu.position_in_unique_constraint
		WHERE kcu.table_schema = $1
			AND kcu.table_name = $2
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`, []any{d.schema(), table}
}

func (d Postgres) PrimaryKeyQuery(table string) (string, []any) {
	return `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`, []any{d.schema(), table}
}

func (d Postgres) QuoteTable(table string) string {
	return pgx.Identifier{d.schema(), table}.Sanitize()
}

func (Postgres) QuoteColumn(column string) string {
	return pgx.Identifier{column}.Sanitize()
}
