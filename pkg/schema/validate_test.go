package schema_test

import (
	"strings"
	"testing"

	"github.com/pthm/nestdump/pkg/schema"
)

func shopSnapshot() *schema.Snapshot {
	customers := schema.NewTable("customers", []schema.Column{
		{Name: "id", Kind: schema.KindInt},
		{Name: "name", Kind: schema.KindText},
	})
	orders := schema.NewTable("orders", []schema.Column{
		{Name: "id", Kind: schema.KindInt},
		{Name: "customer_id", Kind: schema.KindInt},
	})
	orders.ForeignKeys = []schema.ForeignKey{
		{Name: "orders_customer_fk", ChildTable: "orders", ChildColumn: "customer_id", ParentTable: "customers", ParentColumn: "id"},
	}
	return schema.NewSnapshot(customers, orders)
}

func TestValidate_ConsistentSchema(t *testing.T) {
	if err := schema.Validate(shopSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EmptySnapshot(t *testing.T) {
	if err := schema.Validate(schema.NewSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_IgnoresEmptyParentTable(t *testing.T) {
	s := shopSnapshot()
	orders, _ := s.Table("orders")
	orders.ForeignKeys = append(orders.ForeignKeys, schema.ForeignKey{ChildTable: "orders", ChildColumn: "id"})

	if err := schema.Validate(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name    string
		fk      schema.ForeignKey
		mention string
	}{
		{
			name:    "unknown parent table",
			fk:      schema.ForeignKey{ChildTable: "orders", ChildColumn: "customer_id", ParentTable: "clients", ParentColumn: "id"},
			mention: `referenced table "clients"`,
		},
		{
			name:    "unknown parent column",
			fk:      schema.ForeignKey{ChildTable: "orders", ChildColumn: "customer_id", ParentTable: "customers", ParentColumn: "uuid"},
			mention: `referenced column "uuid"`,
		},
		{
			name:    "unknown child column",
			fk:      schema.ForeignKey{ChildTable: "orders", ChildColumn: "client_id", ParentTable: "customers", ParentColumn: "id"},
			mention: `column "client_id"`,
		},
		{
			name:    "unknown child table",
			fk:      schema.ForeignKey{ChildTable: "invoices", ChildColumn: "customer_id", ParentTable: "customers", ParentColumn: "id"},
			mention: `child table "invoices"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := shopSnapshot()
			orders, _ := s.Table("orders")
			orders.ForeignKeys = []schema.ForeignKey{tt.fk}

			err := schema.Validate(s)
			if err == nil {
				t.Fatal("expected error")
			}
			if !schema.IsInconsistentSchemaErr(err) {
				t.Errorf("expected IsInconsistentSchemaErr to return true, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error should mention %s, got: %s", tt.mention, err.Error())
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		dbType string
		want   schema.Kind
	}{
		{"INT4", schema.KindInt},
		{"bigint", schema.KindInt},
		{"UNSIGNED INT", schema.KindInt},
		{"NUMERIC", schema.KindDecimal},
		{"DECIMAL(10,2)", schema.KindDecimal},
		{"decimal(10, 2) unsigned", schema.KindDecimal},
		{"DOUBLE PRECISION", schema.KindFloat},
		{"BOOLEAN", schema.KindBool},
		{"DATE", schema.KindDate},
		{"TIMESTAMPTZ", schema.KindDateTime},
		{"DATETIME", schema.KindDateTime},
		{"UUID", schema.KindUUID},
		{"BYTEA", schema.KindBytes},
		{"VARCHAR", schema.KindText},
		{"JSON", schema.KindText},
		{"", schema.KindText},
	}

	for _, tt := range tests {
		if got := schema.KindOf(tt.dbType); got != tt.want {
			t.Errorf("KindOf(%q) = %s, want %s", tt.dbType, got, tt.want)
		}
	}
}

func TestTable_Value(t *testing.T) {
	s := shopSnapshot()
	customers, _ := s.Table("customers")
	customers.AddRow(int64(1), "A")

	if got := customers.Value(customers.Rows[0], "name"); got != "A" {
		t.Errorf("Value(name) = %v, want A", got)
	}
	if got := customers.Value(customers.Rows[0], "missing"); got != nil {
		t.Errorf("Value(missing) = %v, want nil", got)
	}
	if got := s.RowCount(); got != 1 {
		t.Errorf("RowCount() = %d, want 1", got)
	}
}
