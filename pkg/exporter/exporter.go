// Package exporter runs the nesting pipeline over a loaded snapshot and
// writes the resulting document as JSON.
package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/pthm/nestdump/pkg/nest"
	"github.com/pthm/nestdump/pkg/schema"
)

// DefaultIndent is the number of spaces per nesting level in the output.
const DefaultIndent = 4

// Options controls Build and Export.
type Options struct {
	// Roots selects the top-level tables. Nil means nest.Unreferenced.
	Roots nest.RootStrategy

	// IncludeUnreachable adds, as extra roots, the tables no selected root
	// reaches, so every table appears somewhere in the document.
	IncludeUnreachable bool

	// Indent is the number of spaces per level. Zero means DefaultIndent;
	// a negative value writes compact JSON.
	Indent int

	// Logger receives warnings and progress. Nil discards them.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o Options) indent() int {
	if o.Indent == 0 {
		return DefaultIndent
	}
	return o.Indent
}

// Result is the outcome of Build, plus the byte count once written.
type Result struct {
	Tree     *nest.Tree
	Document *nest.Object

	Strategy    string
	Roots       []string
	Unreachable []string
	Cycle       []string

	Tables int
	Rows   int
	Nodes  int
	Bytes  int64
}

// Build validates the snapshot, selects roots, materializes the tree and
// renders the document. It fails with schema.ErrInconsistentSchema when an
// edge names a missing table or column and with a
// *nest.UnserializableValueError when a value has no JSON rendering.
//
// An empty root set is not an error: the document is {} and a warning is
// logged.
func Build(s *schema.Snapshot, opts Options) (*Result, error) {
	log := opts.logger()

	if err := schema.Validate(s); err != nil {
		return nil, err
	}

	strategy := opts.Roots
	if strategy == nil {
		strategy = nest.Unreferenced{}
	}

	tables := s.TableNames()
	g := nest.BuildGraph(s.ForeignKeys())
	roots, err := strategy.SelectRoots(tables, g)
	if err != nil {
		return nil, err
	}

	unreachable := g.Unreachable(tables, roots)
	if opts.IncludeUnreachable && len(unreachable) > 0 {
		roots = g.ExtendRoots(tables, roots)
		log.Info("added unreachable tables as roots", "tables", unreachable)
		unreachable = g.Unreachable(tables, roots)
	}

	res := &Result{
		Strategy:    strategy.Name(),
		Roots:       roots,
		Unreachable: unreachable,
		Cycle:       nest.FindCycle(g, tables),
		Tables:      len(s.Tables),
		Rows:        s.RowCount(),
	}

	if len(roots) == 0 {
		log.Warn("no root tables selected, the document will be empty",
			"strategy", strategy.Name(), "tables", len(tables))
	}
	if len(unreachable) > 0 {
		log.Warn("tables not reachable from any root are omitted", "tables", unreachable)
	}
	if len(res.Cycle) > 0 {
		log.Debug("foreign key cycle, nesting stops at the first repeat", "cycle", nest.FormatCycle(res.Cycle))
	}
	for _, sk := range s.Skipped {
		log.Debug("foreign key skipped", "constraint", sk.Name, "table", sk.Table, "reason", string(sk.Reason))
	}

	tree, err := nest.Materialize(s, g, roots)
	if err != nil {
		return nil, err
	}
	res.Tree = tree
	res.Nodes = tree.NodeCount()
	log.Debug("materialized tree", "roots", len(roots), "nodes", res.Nodes)

	doc, err := tree.Document()
	if err != nil {
		return nil, err
	}
	res.Document = doc
	return res, nil
}

// Write encodes doc to w as UTF-8 JSON with indent spaces per level
// (compact when indent is negative) and returns the bytes written. HTML
// characters are not escaped.
func Write(w io.Writer, doc *nest.Object, indent int) (int64, error) {
	cw := &countingWriter{w: w}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(doc); err != nil {
		return cw.n, fmt.Errorf("encode document: %w", err)
	}
	return cw.n, nil
}

// WriteFile writes doc to path atomically: the document is encoded into a
// temporary file in the same directory, which is renamed over path only
// after a complete encode. A failed export never leaves partial output.
func WriteFile(path string, doc *nest.Object, indent int) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	n, err := Write(tmp, doc, indent)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return 0, fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return 0, fmt.Errorf("rename to %s: %w", path, err)
	}
	return n, nil
}

// Export builds the document and writes it to path, or to stdout when path
// is "-".
func Export(s *schema.Snapshot, path string, stdout io.Writer, opts Options) (*Result, error) {
	res, err := Build(s, opts)
	if err != nil {
		return nil, err
	}

	if path == "-" {
		res.Bytes, err = Write(stdout, res.Document, opts.indent())
	} else {
		res.Bytes, err = WriteFile(path, res.Document, opts.indent())
	}
	if err != nil {
		return nil, err
	}

	opts.logger().Debug("wrote document", "path", path, "bytes", res.Bytes)
	return res, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
