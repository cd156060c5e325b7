// Package doctor provides health checks for a database about to be exported.
//
// The doctor inspects a loaded snapshot and reports what the export will
// do with it: which tables become roots, which are left out, which foreign
// keys were skipped, and which values cannot be written as JSON.
//
// Example usage:
//
//	d := doctor.New(snapshot, nest.Unreferenced{})
//	report := d.Run()
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/pthm/nestdump/pkg/nest"
	"github.com/pthm/nestdump/pkg/schema"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates an issue that will make the export fail.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Source", "Roots", "Values").
	Category string

	// Name is a short identifier for the check.
	Name string

	// Status is the check outcome.
	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Check returns the first check with the given category and name.
func (r *Report) Check(category, name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Category == category && c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	// Group checks by category
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Check categories.
const (
	CategorySource      = "Source"
	CategoryForeignKeys = "Foreign Keys"
	CategoryRoots       = "Roots"
	CategoryGraph       = "Graph"
	CategoryValues      = "Values"
)

// Doctor checks a snapshot against the export pipeline.
type Doctor struct {
	snap     *schema.Snapshot
	strategy nest.RootStrategy

	// Populated during Run
	graph     *nest.Graph
	roots     []string
	reachable map[string]bool
}

// New creates a Doctor for snap with the root strategy the export will use.
// A nil strategy means nest.Unreferenced.
func New(snap *schema.Snapshot, strategy nest.RootStrategy) *Doctor {
	if strategy == nil {
		strategy = nest.Unreferenced{}
	}
	return &Doctor{snap: snap, strategy: strategy}
}

// Run executes all health checks and returns a report.
func (d *Doctor) Run() *Report {
	report := &Report{}

	d.checkSource(report)
	if !d.checkForeignKeys(report) {
		return report
	}
	d.checkRoots(report)
	d.checkGraph(report)
	d.checkValues(report)

	return report
}

func (d *Doctor) checkSource(report *Report) {
	if len(d.snap.Tables) == 0 {
		report.AddCheck(CheckResult{
			Category: CategorySource,
			Name:     "tables",
			Status:   StatusWarn,
			Message:  "No tables loaded",
			FixHint:  "Check database.schema and export.exclude",
		})
		return
	}

	var details []string
	for _, t := range d.snap.Tables {
		details = append(details, fmt.Sprintf("%s: %s rows, %d columns", t.Name, humanize.Comma(int64(len(t.Rows))), len(t.Columns)))
	}

	report.AddCheck(CheckResult{
		Category: CategorySource,
		Name:     "tables",
		Status:   StatusPass,
		Message: fmt.Sprintf("Loaded %d tables (%s rows)",
			len(d.snap.Tables), humanize.Comma(int64(d.snap.RowCount()))),
		Details: strings.Join(details, "\n"),
	})
}

// checkForeignKeys reports edge validity and skipped constraints. It returns
// false when edges are inconsistent, since later checks need a valid graph.
func (d *Doctor) checkForeignKeys(report *Report) bool {
	fks := d.snap.ForeignKeys()

	if err := schema.Validate(d.snap); err != nil {
		report.AddCheck(CheckResult{
			Category: CategoryForeignKeys,
			Name:     "consistency",
			Status:   StatusFail,
			Message:  "Foreign keys reference missing tables or columns",
			Details:  err.Error(),
			FixHint:  "Exclude the referencing table or stop excluding the referenced one",
		})
		return false
	}

	report.AddCheck(CheckResult{
		Category: CategoryForeignKeys,
		Name:     "consistency",
		Status:   StatusPass,
		Message:  fmt.Sprintf("%d foreign keys reference loaded tables and columns", len(fks)),
	})

	if len(d.snap.Skipped) > 0 {
		var details []string
		for _, s := range d.snap.Skipped {
			details = append(details, fmt.Sprintf("%s(%s) -> %s: %s",
				s.Table, strings.Join(s.Columns, ", "), s.ParentTable, s.Reason))
		}
		report.AddCheck(CheckResult{
			Category: CategoryForeignKeys,
			Name:     "skipped",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d constraints are not followed", len(d.snap.Skipped)),
			Details:  strings.Join(details, "\n"),
			FixHint:  "Only single-column foreign keys between exported tables are nested",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: CategoryForeignKeys,
			Name:     "skipped",
			Status:   StatusPass,
			Message:  "All constraints are followed",
		})
	}

	var selfRefs []string
	for _, fk := range fks {
		if fk.IsSelfRef() {
			selfRefs = append(selfRefs, fmt.Sprintf("%s.%s -> %s", fk.ChildTable, fk.ChildColumn, fk.ParentColumn))
		}
	}
	if len(selfRefs) > 0 {
		report.AddCheck(CheckResult{
			Category: CategoryForeignKeys,
			Name:     "self_references",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d self-referencing foreign keys are not nested", len(selfRefs)),
			Details:  strings.Join(selfRefs, "\n"),
			FixHint:  "Rebuild hierarchies from the parent column in the exported rows",
		})
	}

	d.graph = nest.BuildGraph(fks)
	return true
}

func (d *Doctor) checkRoots(report *Report) {
	tables := d.snap.TableNames()

	roots, err := d.strategy.SelectRoots(tables, d.graph)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: CategoryRoots,
			Name:     "selection",
			Status:   StatusFail,
			Message:  "Root tables could not be selected",
			Details:  err.Error(),
			FixHint:  "Name only loaded tables as roots",
		})
		return
	}
	d.roots = roots
	d.reachable = d.graph.Reachable(roots)

	if len(roots) == 0 {
		report.AddCheck(CheckResult{
			Category: CategoryRoots,
			Name:     "selection",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Strategy %q selects no root tables; the export will be empty", d.strategy.Name()),
			FixHint:  "Use --roots independent or name roots with --root",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: CategoryRoots,
			Name:     "selection",
			Status:   StatusPass,
			Message:  fmt.Sprintf("%d root tables (%s): %s", len(roots), d.strategy.Name(), strings.Join(roots, ", ")),
		})
	}

	unreachable := d.graph.Unreachable(tables, roots)
	if len(unreachable) > 0 {
		report.AddCheck(CheckResult{
			Category: CategoryRoots,
			Name:     "reachability",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d tables are not reachable from any root and will be omitted", len(unreachable)),
			Details:  strings.Join(unreachable, "\n"),
			FixHint:  "Use --include-unreachable or add them as roots",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: CategoryRoots,
		Name:     "reachability",
		Status:   StatusPass,
		Message:  "Every table is reachable from a root",
	})
}

func (d *Doctor) checkGraph(report *Report) {
	cycle := nest.FindCycle(d.graph, d.snap.TableNames())
	if cycle != nil {
		report.AddCheck(CheckResult{
			Category: CategoryGraph,
			Name:     "cycles",
			Status:   StatusWarn,
			Message:  "Foreign key cycle: " + nest.FormatCycle(cycle),
			Details:  "Nesting stops at the first table repeated on a path",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: CategoryGraph,
		Name:     "cycles",
		Status:   StatusPass,
		Message:  "No foreign key cycles between tables",
	})
}

// checkValues normalizes every value of every table that will be exported
// and reports the columns whose values have no JSON rendering.
func (d *Doctor) checkValues(report *Report) {
	bad := make(map[string]string)
	for _, t := range d.snap.Tables {
		if d.reachable != nil && !d.reachable[t.Name] {
			continue
		}
		for i, col := range t.Columns {
			key := t.Name + "." + col.Name
			for _, row := range t.Rows {
				if i >= len(row) {
					continue
				}
				if _, err := nest.Normalize(col, row[i]); err != nil {
					var uv *nest.UnserializableValueError
					if errors.As(err, &uv) {
						bad[key] = uv.Type
					} else {
						bad[key] = err.Error()
					}
					break
				}
			}
		}
	}

	if len(bad) > 0 {
		keys := make([]string, 0, len(bad))
		for k := range bad {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		details := make([]string, len(keys))
		for i, k := range keys {
			details[i] = fmt.Sprintf("%s: %s", k, bad[k])
		}
		report.AddCheck(CheckResult{
			Category: CategoryValues,
			Name:     "serializable",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d columns hold values with no JSON rendering", len(bad)),
			Details:  strings.Join(details, "\n"),
			FixHint:  "Exclude the tables or convert the columns in a view",
		})
		return
	}

	report.AddCheck(CheckResult{
		Category: CategoryValues,
		Name:     "serializable",
		Status:   StatusPass,
		Message:  "All exported values can be written as JSON",
	})
}
