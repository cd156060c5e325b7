package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/pthm/nestdump/pkg/schema"
)

// Options tunes how a Database reads tables.
type Options struct {
	// OrderByPrimaryKey sorts rows by the primary key when the table has
	// one. Without it rows come back in whatever order the engine returns.
	OrderByPrimaryKey bool
}

// Database is a Source backed by a SQL connection and a dialect.
type Database struct {
	q       Querier
	dialect Dialect
	opts    Options
	pks     map[string][]string
}

// NewDatabase creates a Source reading q through dialect.
// The Querier is typically *sql.DB but can be *sql.Tx for a consistent read.
func NewDatabase(q Querier, dialect Dialect, opts Options) *Database {
	return &Database{
		q:       q,
		dialect: dialect,
		opts:    opts,
		pks:     make(map[string][]string),
	}
}

// Dialect returns the dialect the database was created with.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// TableNames implements Source.
func (d *Database) TableNames(ctx context.Context) ([]string, error) {
	query, args := d.dialect.TablesQuery()
	return d.queryStrings(ctx, query, args...)
}

type fkColumn struct {
	constraint   string
	column       string
	parentTable  string
	parentColumn string
}

// ForeignKeys implements Source. Constraints spanning several columns are
// returned as skipped; a missing target column resolves to the parent's
// single-column primary key.
func (d *Database) ForeignKeys(ctx context.Context, table string) ([]schema.ForeignKey, []schema.SkippedConstraint, error) {
	query, args := d.dialect.ForeignKeysQuery(table)
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		order  []string
		groups = make(map[string][]fkColumn)
	)
	for rows.Next() {
		var (
			c   fkColumn
			pos int64
		)
		if err := rows.Scan(&c.constraint, &c.column, &c.parentTable, &c.parentColumn, &pos); err != nil {
			return nil, nil, fmt.Errorf("scan foreign key: %w", err)
		}
		if _, ok := groups[c.constraint]; !ok {
			order = append(order, c.constraint)
		}
		groups[c.constraint] = append(groups[c.constraint], c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read foreign keys: %w", err)
	}
	_ = rows.Close()

	var (
		fks     []schema.ForeignKey
		skipped []schema.SkippedConstraint
	)
	for _, name := range order {
		cols := groups[name]
		if len(cols) != 1 {
			names := make([]string, len(cols))
			for i, c := range cols {
				names[i] = c.column
			}
			skipped = append(skipped, schema.SkippedConstraint{
				Name:        name,
				Table:       table,
				Columns:     names,
				ParentTable: cols[0].parentTable,
				Reason:      schema.SkipComposite,
			})
			continue
		}

		c := cols[0]
		if c.parentColumn == "" {
			pk, err := d.primaryKey(ctx, c.parentTable)
			if err != nil {
				return nil, nil, err
			}
			if len(pk) != 1 {
				skipped = append(skipped, schema.SkippedConstraint{
					Name:        name,
					Table:       table,
					Columns:     []string{c.column},
					ParentTable: c.parentTable,
					Reason:      schema.SkipComposite,
				})
				continue
			}
			c.parentColumn = pk[0]
		}

		fks = append(fks, schema.ForeignKey{
			Name:         name,
			ChildTable:   table,
			ChildColumn:  c.column,
			ParentTable:  c.parentTable,
			ParentColumn: c.parentColumn,
		})
	}

	return fks, skipped, nil
}

// LoadTable implements Source.
func (d *Database) LoadTable(ctx context.Context, table string) (*schema.Table, error) {
	pk, err := d.primaryKey(ctx, table)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + d.dialect.QuoteTable(table)
	if d.opts.OrderByPrimaryKey && len(pk) > 0 {
		quoted := make([]string, len(pk))
		for i, c := range pk {
			quoted[i] = d.dialect.QuoteColumn(c)
		}
		query += " ORDER BY " + strings.Join(quoted, ", ")
	}

	rows, err := d.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}
	cols := make([]schema.Column, len(types))
	for i, ct := range types {
		dbType := ct.DatabaseTypeName()
		cols[i] = schema.Column{Name: ct.Name(), DBType: dbType, Kind: schema.KindOf(dbType)}
	}

	t := schema.NewTable(table, cols)
	t.PrimaryKey = pk

	for rows.Next() {
		raw := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, c := range cols {
			v, err := Canonicalize(c.Kind, raw[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c.Name, err)
			}
			raw[i] = v
		}
		t.AddRow(raw...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	return t, nil
}

func (d *Database) primaryKey(ctx context.Context, table string) ([]string, error) {
	if pk, ok := d.pks[table]; ok {
		return pk, nil
	}
	query, args := d.dialect.PrimaryKeyQuery(table)
	pk, err := d.queryStrings(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query primary key of %s: %w", table, err)
	}
	d.pks[table] = pk
	return pk, nil
}

func (d *Database) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
