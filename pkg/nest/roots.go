package nest

import (
	"fmt"
	"strings"
)

// RootStrategy decides which tables appear at the top level of the tree.
type RootStrategy interface {
	Name() string
	SelectRoots(tables []string, g *Graph) ([]string, error)
}

// Strategy names accepted by ParseRootStrategy.
const (
	StrategyUnreferenced = "unreferenced"
	StrategyIndependent  = "independent"
	StrategyExplicit     = "explicit"
)

// Unreferenced selects tables that no foreign key points at, i.e. tables
// never used as a parent. A self-referencing table counts as referenced.
// This is the default strategy.
type Unreferenced struct{}

func (Unreferenced) Name() string { return StrategyUnreferenced }

func (Unreferenced) SelectRoots(tables []string, g *Graph) ([]string, error) {
	roots := []string{}
	for _, t := range tables {
		if !g.IsReferenced(t) {
			roots = append(roots, t)
		}
	}
	return roots, nil
}

// Independent selects tables that hold no foreign key to another table.
// Self-references do not count, so a hierarchy table like categories with
// parent_id -> id is a root.
type Independent struct{}

func (Independent) Name() string { return StrategyIndependent }

func (Independent) SelectRoots(tables []string, g *Graph) ([]string, error) {
	dependent := make(map[string]bool)
	for _, fk := range g.All() {
		if !fk.IsSelfRef() {
			dependent[fk.ChildTable] = true
		}
	}
	roots := []string{}
	for _, t := range tables {
		if !dependent[t] {
			roots = append(roots, t)
		}
	}
	return roots, nil
}

// Explicit selects the named tables in the given order.
type Explicit struct {
	Tables []string
}

func (Explicit) Name() string { return StrategyExplicit }

func (e Explicit) SelectRoots(tables []string, _ *Graph) ([]string, error) {
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t] = true
	}
	seen := make(map[string]bool, len(e.Tables))
	roots := []string{}
	for _, t := range e.Tables {
		if !known[t] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRoot, t)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		roots = append(roots, t)
	}
	return roots, nil
}

// ParseRootStrategy resolves a strategy by name. An empty name with no
// explicit tables selects Unreferenced; explicit tables without a name
// select Explicit.
func ParseRootStrategy(name string, tables []string) (RootStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		if len(tables) > 0 {
			return Explicit{Tables: tables}, nil
		}
		return Unreferenced{}, nil
	case StrategyUnreferenced:
		return Unreferenced{}, nil
	case StrategyIndependent:
		return Independent{}, nil
	case StrategyExplicit:
		if len(tables) == 0 {
			return nil, fmt.Errorf("%w: %q requires at least one table", ErrUnknownStrategy, name)
		}
		return Explicit{Tables: tables}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s, %s or %s)", ErrUnknownStrategy, name,
			StrategyUnreferenced, StrategyIndependent, StrategyExplicit)
	}
}
