// Package nest turns a relational snapshot into a nested document tree.
//
// The pipeline is:
//
//	g := nest.BuildGraph(snapshot.ForeignKeys())
//	roots, err := nest.Unreferenced{}.SelectRoots(snapshot.TableNames(), g)
//	tree, err := nest.Materialize(snapshot, g, roots)
//	doc, err := tree.Document()
//
// Materialization follows foreign keys from referenced (parent) tables to the
// tables that reference them, nesting matching child rows under each parent
// row. A table is expanded at most once along any descent path, so cyclic and
// self-referencing schemas terminate.
package nest

import "github.com/pthm/nestdump/pkg/schema"

// Graph indexes foreign keys by the table they reference.
// It is built once and never mutated afterwards.
type Graph struct {
	byParent map[string][]schema.ForeignKey
	parents  []string
	size     int
}

// BuildGraph groups edges by ParentTable. Edges with an empty ParentTable
// signal "no foreign key" and are dropped, as are exact duplicates. Edge
// order within a parent follows input order.
func BuildGraph(fks []schema.ForeignKey) *Graph {
	g := &Graph{byParent: make(map[string][]schema.ForeignKey)}
	seen := make(map[schema.ForeignKey]bool)

	for _, fk := range fks {
		if fk.ParentTable == "" {
			continue
		}
		key := fk
		key.Name = ""
		if seen[key] {
			continue
		}
		seen[key] = true

		if _, ok := g.byParent[fk.ParentTable]; !ok {
			g.parents = append(g.parents, fk.ParentTable)
		}
		g.byParent[fk.ParentTable] = append(g.byParent[fk.ParentTable], fk)
		g.size++
	}

	return g
}

// Edges returns the edges whose ParentTable is parent.
func (g *Graph) Edges(parent string) []schema.ForeignKey {
	return g.byParent[parent]
}

// Parents returns every referenced table, in order of first appearance.
func (g *Graph) Parents() []string {
	return g.parents
}

// IsReferenced reports whether any edge points at table.
func (g *Graph) IsReferenced(table string) bool {
	_, ok := g.byParent[table]
	return ok
}

// Len returns the number of distinct edges.
func (g *Graph) Len() int {
	return g.size
}

// All returns every edge, grouped by parent in order of first appearance.
func (g *Graph) All() []schema.ForeignKey {
	all := make([]schema.ForeignKey, 0, g.size)
	for _, p := range g.parents {
		all = append(all, g.byParent[p]...)
	}
	return all
}

// Reachable returns the set of tables reachable from roots by following
// edges from parent to child, roots included.
func (g *Graph) Reachable(roots []string) map[string]bool {
	reached := make(map[string]bool, len(roots))
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if !reached[r] {
			reached[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		table := queue[0]
		queue = queue[1:]
		for _, fk := range g.byParent[table] {
			if !reached[fk.ChildTable] {
				reached[fk.ChildTable] = true
				queue = append(queue, fk.ChildTable)
			}
		}
	}
	return reached
}

// Unreachable returns the tables, in enumeration order, that no root reaches.
func (g *Graph) Unreachable(tables, roots []string) []string {
	reached := g.Reachable(roots)
	var out []string
	for _, t := range tables {
		if !reached[t] {
			out = append(out, t)
		}
	}
	return out
}

// ExtendRoots appends to roots the fewest tables, in enumeration order,
// needed for every table to be reachable: each still-unreachable table
// becomes a root and everything it reaches is then considered covered.
func (g *Graph) ExtendRoots(tables, roots []string) []string {
	out := append([]string(nil), roots...)
	reached := g.Reachable(out)
	for _, t := range tables {
		if reached[t] {
			continue
		}
		out = append(out, t)
		for r := range g.Reachable([]string{t}) {
			reached[r] = true
		}
	}
	return out
}
