package nest_test

import (
	"github.com/pthm/nestdump/pkg/nest"
	"github.com/pthm/nestdump/pkg/schema"
)

// newTable builds a table whose columns are ints unless kinds says otherwise.
func newTable(name string, columns []string, kinds map[string]schema.Kind, rows ...[]any) *schema.Table {
	cols := make([]schema.Column, len(columns))
	for i, c := range columns {
		k, ok := kinds[c]
		if !ok {
			k = schema.KindInt
		}
		cols[i] = schema.Column{Name: c, Kind: k}
	}
	t := schema.NewTable(name, cols)
	for _, r := range rows {
		t.AddRow(r...)
	}
	return t
}

func fk(child, childCol, parent, parentCol string) schema.ForeignKey {
	return schema.ForeignKey{ChildTable: child, ChildColumn: childCol, ParentTable: parent, ParentColumn: parentCol}
}

// project turns nodes into nested maps of raw values for deep comparison.
func project(nodes []*nest.Node) []map[string]any {
	out := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		m := make(map[string]any)
		for _, c := range n.Table.Columns {
			m[c.Name] = n.Value(c.Name)
		}
		for _, ch := range n.Children() {
			m[ch.Table] = project(ch.Nodes)
		}
		out[i] = m
	}
	return out
}

func projectTree(tree *nest.Tree) map[string][]map[string]any {
	out := make(map[string][]map[string]any, len(tree.Roots))
	for _, r := range tree.Roots {
		out[r.Table] = project(r.Nodes)
	}
	return out
}

// build runs the core pipeline with the given strategy.
func build(s *schema.Snapshot, strategy nest.RootStrategy) (*nest.Tree, error) {
	g := nest.BuildGraph(s.ForeignKeys())
	roots, err := strategy.SelectRoots(s.TableNames(), g)
	if err != nil {
		return nil, err
	}
	return nest.Materialize(s, g, roots)
}
