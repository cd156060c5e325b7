// Package source loads a relational database into a schema.Snapshot.
//
// Loading is sequential: tables are enumerated, then each table's rows and
// foreign keys are read in enumeration order. Everything downstream works on
// the in-memory snapshot and never touches the database again.
package source

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/pthm/nestdump/pkg/schema"
)

// Source enumerates and reads the tables of one database.
type Source interface {
	// TableNames returns the base tables in a stable order.
	TableNames(ctx context.Context) ([]string, error)

	// ForeignKeys returns the single-column foreign keys declared on table,
	// plus the constraints that could not be represented as one edge.
	ForeignKeys(ctx context.Context, table string) ([]schema.ForeignKey, []schema.SkippedConstraint, error)

	// LoadTable reads the columns and every row of table.
	LoadTable(ctx context.Context, table string) (*schema.Table, error)
}

// Filter selects which tables are loaded.
type Filter struct {
	// Exclude holds glob patterns; a table matching any of them is skipped.
	Exclude []string
}

type compiledFilter []glob.Glob

func (f Filter) compile() (compiledFilter, error) {
	globs := make(compiledFilter, 0, len(f.Exclude))
	for _, p := range f.Exclude {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrBadPattern, p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func (c compiledFilter) excluded(table string) bool {
	for _, g := range c {
		if g.Match(table) {
			return true
		}
	}
	return false
}

// Load reads every table src enumerates, minus those the filter excludes.
// Foreign keys pointing at an excluded table are dropped and recorded in
// Snapshot.Skipped alongside the constraints the source skipped itself.
func Load(ctx context.Context, src Source, filter Filter) (*schema.Snapshot, error) {
	excl, err := filter.compile()
	if err != nil {
		return nil, err
	}

	names, err := src.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	included := make(map[string]bool, len(names))
	var tables []string
	for _, name := range names {
		if excl.excluded(name) {
			continue
		}
		included[name] = true
		tables = append(tables, name)
	}

	snap := schema.NewSnapshot()
	for _, name := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t, err := src.LoadTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load table %s: %w", name, err)
		}

		fks, skipped, err := src.ForeignKeys(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read foreign keys of %s: %w", name, err)
		}
		snap.Skipped = append(snap.Skipped, skipped...)

		t.ForeignKeys = t.ForeignKeys[:0]
		for _, fk := range fks {
			if !included[fk.ParentTable] {
				snap.Skipped = append(snap.Skipped, schema.SkippedConstraint{
					Name:        fk.Name,
					Table:       fk.ChildTable,
					Columns:     []string{fk.ChildColumn},
					ParentTable: fk.ParentTable,
					Reason:      schema.SkipExcludedParent,
				})
				continue
			}
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}

		snap.Add(t)
	}

	return snap, nil
}
