package nest

import (
	"fmt"

	"github.com/pthm/nestdump/pkg/schema"
)

// Node is a source row augmented with nested child collections. Nodes are
// created by Materialize; the underlying source Row is shared and never
// modified.
type Node struct {
	Table    *schema.Table
	Row      schema.Row
	children []Children
}

// Children is the collection of rows from Table nested under a parent node.
type Children struct {
	Table string
	Nodes []*Node
}

// Value returns the source value of the named column.
func (n *Node) Value(column string) any {
	return n.Table.Value(n.Row, column)
}

// Children returns the nested collections in attach order.
func (n *Node) Children() []Children {
	return n.children
}

// Child returns the collection nested under the child table name.
func (n *Node) Child(table string) ([]*Node, bool) {
	for _, c := range n.children {
		if c.Table == table {
			return c.Nodes, true
		}
	}
	return nil, false
}

// attach sets the collection for table. A second attach for the same table
// replaces the collection in place, so a node never holds a key twice.
func (n *Node) attach(table string, nodes []*Node) {
	for i := range n.children {
		if n.children[i].Table == table {
			n.children[i].Nodes = nodes
			return
		}
	}
	n.children = append(n.children, Children{Table: table, Nodes: nodes})
}

func (n *Node) count() int {
	total := 1
	for _, c := range n.children {
		for _, child := range c.Nodes {
			total += child.count()
		}
	}
	return total
}

// Tree is the materialized output: root table name to nested rows, in root
// selection order.
type Tree struct {
	Roots []Children
}

// Root returns the nodes of the named root table.
func (t *Tree) Root(table string) ([]*Node, bool) {
	for _, r := range t.Roots {
		if r.Table == table {
			return r.Nodes, true
		}
	}
	return nil, false
}

// Empty reports whether the tree has no root tables.
func (t *Tree) Empty() bool {
	return len(t.Roots) == 0
}

// NodeCount returns the number of nodes in the tree. Rows reachable through
// several paths are counted once per occurrence.
func (t *Tree) NodeCount() int {
	total := 0
	for _, r := range t.Roots {
		for _, n := range r.Nodes {
			total += n.count()
		}
	}
	return total
}

type indexKey struct {
	table  string
	column string
}

type materializer struct {
	snap    *schema.Snapshot
	graph   *Graph
	indexes map[indexKey]*columnIndex
}

// Materialize builds the tree for roots. Every edge of g is indexed up
// front; an edge naming a table or column missing from the snapshot fails
// with schema.ErrInconsistentSchema before any node is built.
//
// Each root table starts its own descent path, so a table is expanded at
// most once between a root and any leaf. Source rows are copied into new
// nodes for every place they appear.
func Materialize(s *schema.Snapshot, g *Graph, roots []string) (*Tree, error) {
	m := &materializer{
		snap:    s,
		graph:   g,
		indexes: make(map[indexKey]*columnIndex),
	}
	if err := m.buildIndexes(); err != nil {
		return nil, err
	}

	tree := &Tree{Roots: make([]Children, 0, len(roots))}
	for _, name := range roots {
		table, ok := s.Table(name)
		if !ok {
			return nil, fmt.Errorf("%w: root table %q not loaded", schema.ErrInconsistentSchema, name)
		}
		nodes := newNodes(table, allRows(len(table.Rows)))
		if err := m.expand(table, nodes, &path{table: name}); err != nil {
			return nil, err
		}
		tree.Roots = append(tree.Roots, Children{Table: name, Nodes: nodes})
	}
	return tree, nil
}

func (m *materializer) buildIndexes() error {
	for _, fk := range m.graph.All() {
		key := indexKey{table: fk.ChildTable, column: fk.ChildColumn}
		if _, done := m.indexes[key]; done {
			continue
		}
		child, ok := m.snap.Table(fk.ChildTable)
		if !ok {
			return fmt.Errorf("%w: table %q not loaded", schema.ErrInconsistentSchema, fk.ChildTable)
		}
		col, ok := child.ColumnIndex(fk.ChildColumn)
		if !ok {
			return fmt.Errorf("%w: column %q not found in table %q",
				schema.ErrInconsistentSchema, fk.ChildColumn, fk.ChildTable)
		}
		parent, ok := m.snap.Table(fk.ParentTable)
		if !ok {
			return fmt.Errorf("%w: table %q not loaded", schema.ErrInconsistentSchema, fk.ParentTable)
		}
		if !parent.HasColumn(fk.ParentColumn) {
			return fmt.Errorf("%w: column %q not found in table %q",
				schema.ErrInconsistentSchema, fk.ParentColumn, fk.ParentTable)
		}
		m.indexes[key] = buildColumnIndex(child.Rows, col)
	}
	return nil
}

// expand attaches, for every edge pointing at parent, the matching child
// rows to each node and descends into them. Edges whose child table is
// already on the current path are skipped.
func (m *materializer) expand(parent *schema.Table, nodes []*Node, visited *path) error {
	if len(nodes) == 0 {
		return nil
	}

	for _, fk := range m.graph.Edges(parent.Name) {
		if visited.contains(fk.ChildTable) {
			continue
		}
		child, _ := m.snap.Table(fk.ChildTable)
		pcol, _ := parent.ColumnIndex(fk.ParentColumn)
		idx := m.indexes[indexKey{table: fk.ChildTable, column: fk.ChildColumn}]
		next := visited.with(fk.ChildTable)

		for _, n := range nodes {
			var joinValue any
			if pcol < len(n.Row) {
				joinValue = n.Row[pcol]
			}
			kids := newNodes(child, idx.match(joinValue))
			n.attach(child.Name, kids)
			if err := m.expand(child, kids, next); err != nil {
				return err
			}
		}
	}
	return nil
}

func newNodes(t *schema.Table, positions []uint32) []*Node {
	nodes := make([]*Node, len(positions))
	for i, p := range positions {
		nodes[i] = &Node{Table: t, Row: t.Rows[p]}
	}
	return nodes
}

func allRows(n int) []uint32 {
	positions := make([]uint32, n)
	for i := range positions {
		positions[i] = uint32(i)
	}
	return positions
}
