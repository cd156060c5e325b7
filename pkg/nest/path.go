package nest

// path is the immutable chain of tables expanded along one descent.
// Extending it never affects sibling branches holding the parent chain.
type path struct {
	table string
	prev  *path
}

func (p *path) with(table string) *path {
	return &path{table: table, prev: p}
}

func (p *path) contains(table string) bool {
	for ; p != nil; p = p.prev {
		if p.table == table {
			return true
		}
	}
	return false
}
