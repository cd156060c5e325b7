package nest

import "strings"

// color represents the state of a table during DFS cycle detection.
type color int

const (
	white color = iota // unvisited
	gray               // in current DFS path (cycle if revisited)
	black              // fully processed
)

// FindCycle returns the first foreign-key cycle between distinct tables, as
// a path whose first and last element are the same table, or nil when the
// graph is acyclic. Self-references are hierarchies, not cycles, and are
// ignored. Tables are explored in the given order so the result is stable.
//
// Cycles are legal input: Materialize stops at the first repeat on each
// path. This is for reporting.
func FindCycle(g *Graph, tables []string) []string {
	colors := make(map[string]color)
	parent := make(map[string]string)

	var dfs func(t string) []string
	dfs = func(t string) []string {
		colors[t] = gray

		for _, fk := range g.Edges(t) {
			next := fk.ChildTable
			if next == t {
				continue
			}
			switch colors[next] {
			case gray:
				return reconstructCycle(t, next, parent)
			case white:
				parent[next] = t
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}

		colors[t] = black
		return nil
	}

	for _, t := range tables {
		if colors[t] == white {
			if cycle := dfs(t); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// reconstructCycle walks parent links from the node that closed the cycle
// back to its start.
func reconstructCycle(from, to string, parent map[string]string) []string {
	cycle := []string{to, from}
	for cur := from; cur != to; {
		cur = parent[cur]
		cycle = append(cycle, cur)
	}
	// Reverse so the path reads in edge direction.
	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}
	return cycle
}

// FormatCycle renders a cycle path as "a -> b -> a".
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " -> ")
}
