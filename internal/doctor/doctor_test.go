package doctor

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/nestdump/pkg/nest"
	"github.com/pthm/nestdump/pkg/schema"
)

func table(name string, columns ...string) *schema.Table {
	cols := make([]schema.Column, len(columns))
	for i, c := range columns {
		cols[i] = schema.Column{Name: c, Kind: schema.KindInt}
	}
	return schema.NewTable(name, cols)
}

func fk(child, childCol, parent, parentCol string) schema.ForeignKey {
	return schema.ForeignKey{ChildTable: child, ChildColumn: childCol, ParentTable: parent, ParentColumn: parentCol}
}

func healthySnapshot() *schema.Snapshot {
	customers := table("customers", "id")
	customers.AddRow(int64(1))
	customers.AddRow(int64(2))

	orders := table("orders", "id", "customer_id")
	orders.AddRow(int64(10), int64(1))
	orders.ForeignKeys = []schema.ForeignKey{fk("orders", "customer_id", "customers", "id")}

	return schema.NewSnapshot(customers, orders)
}

func requireCheck(t *testing.T, r *Report, category, name string) CheckResult {
	t.Helper()
	c, ok := r.Check(category, name)
	require.True(t, ok, "missing check %s/%s", category, name)
	return c
}

func TestRun_Healthy(t *testing.T) {
	report := New(healthySnapshot(), nest.Independent{}).Run()

	assert.False(t, report.HasErrors())
	assert.Equal(t, 0, report.Warnings)
	assert.Equal(t, "Loaded 2 tables (3 rows)", requireCheck(t, report, CategorySource, "tables").Message)
	assert.Equal(t, StatusPass, requireCheck(t, report, CategoryRoots, "reachability").Status)
	assert.Equal(t, StatusPass, requireCheck(t, report, CategoryGraph, "cycles").Status)
	assert.Equal(t, StatusPass, requireCheck(t, report, CategoryValues, "serializable").Status)
}

func TestRun_DefaultStrategyLeavesParentsUnreachable(t *testing.T) {
	report := New(healthySnapshot(), nil).Run()

	c := requireCheck(t, report, CategoryRoots, "reachability")
	assert.Equal(t, StatusWarn, c.Status)
	assert.Equal(t, "customers", c.Details)
	assert.False(t, report.HasErrors())
}

func TestRun_EmptySnapshot(t *testing.T) {
	report := New(schema.NewSnapshot(), nil).Run()

	assert.Equal(t, StatusWarn, requireCheck(t, report, CategorySource, "tables").Status)
	assert.Equal(t, StatusWarn, requireCheck(t, report, CategoryRoots, "selection").Status)
}

func TestRun_InconsistentForeignKeyStops(t *testing.T) {
	s := healthySnapshot()
	orders, _ := s.Table("orders")
	orders.ForeignKeys[0].ParentTable = "clients"

	report := New(s, nil).Run()

	assert.True(t, report.HasErrors())
	assert.Equal(t, StatusFail, requireCheck(t, report, CategoryForeignKeys, "consistency").Status)
	_, ok := report.Check(CategoryRoots, "selection")
	assert.False(t, ok, "root checks need a consistent graph")
}

func TestRun_SkippedAndSelfReferences(t *testing.T) {
	categories := table("categories", "id", "parent_id")
	categories.ForeignKeys = []schema.ForeignKey{fk("categories", "parent_id", "categories", "id")}
	s := schema.NewSnapshot(categories)
	s.Skipped = []schema.SkippedConstraint{{
		Name: "fk_lines", Table: "shipments", Columns: []string{"order_id", "line_no"},
		ParentTable: "order_lines", Reason: schema.SkipComposite,
	}}

	report := New(s, nest.Independent{}).Run()

	skipped := requireCheck(t, report, CategoryForeignKeys, "skipped")
	assert.Equal(t, StatusWarn, skipped.Status)
	assert.Equal(t, "shipments(order_id, line_no) -> order_lines: composite key", skipped.Details)

	self := requireCheck(t, report, CategoryForeignKeys, "self_references")
	assert.Equal(t, StatusWarn, self.Status)
	assert.Equal(t, "categories.parent_id -> id", self.Details)

	assert.Equal(t, StatusPass, requireCheck(t, report, CategoryGraph, "cycles").Status)
}

func TestRun_Cycle(t *testing.T) {
	a := table("a", "id", "b_id")
	b := table("b", "id", "a_id")
	a.ForeignKeys = []schema.ForeignKey{fk("a", "b_id", "b", "id")}
	b.ForeignKeys = []schema.ForeignKey{fk("b", "a_id", "a", "id")}

	report := New(schema.NewSnapshot(a, b), nil).Run()

	assert.Equal(t, StatusWarn, requireCheck(t, report, CategoryRoots, "selection").Status)
	c := requireCheck(t, report, CategoryGraph, "cycles")
	assert.Equal(t, StatusWarn, c.Status)
	assert.Equal(t, "Foreign key cycle: a -> b -> a", c.Message)
}

func TestRun_UnknownExplicitRoot(t *testing.T) {
	report := New(healthySnapshot(), nest.Explicit{Tables: []string{"clients"}}).Run()

	assert.True(t, report.HasErrors())
	assert.Equal(t, StatusFail, requireCheck(t, report, CategoryRoots, "selection").Status)
}

func TestRun_UnserializableValues(t *testing.T) {
	s := healthySnapshot()
	customers, _ := s.Table("customers")
	customers.Columns = append(customers.Columns,
		schema.Column{Name: "avatar", Kind: schema.KindBytes},
		schema.Column{Name: "score", Kind: schema.KindFloat},
	)
	customers.Rows[0] = append(customers.Rows[0], []byte{0x89}, 1.5)
	customers.Rows[1] = append(customers.Rows[1], nil, math.NaN())

	report := New(s, nest.Independent{}).Run()

	c := requireCheck(t, report, CategoryValues, "serializable")
	assert.Equal(t, StatusFail, c.Status)
	assert.Equal(t, "customers.avatar: []uint8\ncustomers.score: float64 NaN", c.Details)
	assert.True(t, report.HasErrors())
}

func TestRun_UnreachableValuesIgnored(t *testing.T) {
	s := healthySnapshot()
	customers, _ := s.Table("customers")
	customers.Columns = append(customers.Columns, schema.Column{Name: "avatar", Kind: schema.KindBytes})
	customers.Rows[0] = append(customers.Rows[0], []byte{0x89})
	customers.Rows[1] = append(customers.Rows[1], nil)

	// Unreferenced picks orders only; customers is never written.
	report := New(s, nil).Run()

	assert.Equal(t, StatusPass, requireCheck(t, report, CategoryValues, "serializable").Status)
}

func TestReport_Print(t *testing.T) {
	r := &Report{}
	r.AddCheck(CheckResult{Category: "Roots", Name: "selection", Status: StatusPass, Message: "2 root tables"})
	r.AddCheck(CheckResult{
		Category: "Roots", Name: "reachability", Status: StatusWarn,
		Message: "1 table unreachable", Details: "audit_log", FixHint: "Use --include-unreachable",
	})

	var quiet, verbose bytes.Buffer
	r.Print(&quiet, false)
	r.Print(&verbose, true)

	assert.Contains(t, quiet.String(), "✓ 2 root tables")
	assert.Contains(t, quiet.String(), "⚠ 1 table unreachable")
	assert.Contains(t, quiet.String(), "Fix: Use --include-unreachable")
	assert.NotContains(t, quiet.String(), "audit_log")
	assert.Contains(t, verbose.String(), "      audit_log")
	assert.Contains(t, quiet.String(), "Summary: 1 passed, 1 warnings, 0 errors")
}
