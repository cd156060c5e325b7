package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pthm/nestdump/internal/cli"
	"github.com/pthm/nestdump/pkg/exporter"
	"github.com/pthm/nestdump/pkg/nest"
	"github.com/pthm/nestdump/pkg/schema"
)

var (
	exportDB                 dbFlags
	exportOutput             string
	exportStrategy           string
	exportRoots              []string
	exportIncludeUnreachable bool
	exportIndent             int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the database as nested JSON",
	Long: `Export every table as one nested JSON document.

Root tables become the top-level keys. Each row holds, under the child table's
name, the rows that reference it through a foreign key. A table is never
nested inside itself on the same path, so cycles terminate.`,
	Example: `  # Export to nested_database.json
  nestdump export --db postgres://localhost/shop

  # Write to stdout, compact
  nestdump export --db sqlite://shop.db -o - --indent -1

  # Pick the roots explicitly
  nestdump export --db mysql://root@localhost/shop --root customers --root products

  # Keep tables no root reaches as extra top-level keys
  nestdump export --include-unreachable`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := resolveStrategy(exportStrategy, exportRoots)
		if err != nil {
			return err
		}

		snap, err := loadSnapshot(cmd.Context(), exportDB)
		if err != nil {
			return err
		}

		indent := cfg.Export.Indent
		if cmd.Flags().Changed("indent") {
			indent = exportIndent
		}

		output := resolveString(exportOutput, cfg.Export.Output, cli.DefaultOutput)
		return runExport(snap, output, exporter.Options{
			Roots:              strategy,
			IncludeUnreachable: resolveBool(exportIncludeUnreachable, cfg.Export.IncludeUnreachable),
			Indent:             indent,
			Logger:             logger,
		})
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportDB.url, "db", "", "database URL")
	f.StringVar(&exportDB.driver, "driver", "", "database driver: pgx, postgres, mysql or sqlite")
	f.StringVar(&exportDB.schema, "schema", "", "postgres schema or mysql database to read")
	f.StringSliceVar(&exportDB.exclude, "exclude", nil, "glob of tables to leave out (repeatable)")
	f.StringVarP(&exportOutput, "output", "o", "", "output file, - for stdout (default: "+cli.DefaultOutput+")")
	f.StringVar(&exportStrategy, "roots", "", "root strategy: unreferenced, independent or explicit")
	f.StringSliceVar(&exportRoots, "root", nil, "root table (repeatable, implies --roots explicit)")
	f.BoolVar(&exportIncludeUnreachable, "include-unreachable", false, "add tables no root reaches as extra roots")
	f.IntVar(&exportIndent, "indent", exporter.DefaultIndent, "spaces per level, negative for compact output")
}

func runExport(snap *schema.Snapshot, output string, opts exporter.Options) error {
	res, err := exporter.Export(snap, output, os.Stdout, opts)
	if err != nil {
		return exportError(err)
	}

	if !quiet && output != "-" {
		printExportSummary(output, res)
	}
	return nil
}

// exportError maps pipeline failures to exit codes.
func exportError(err error) error {
	switch {
	case schema.IsInconsistentSchemaErr(err):
		return cli.SchemaError("inconsistent schema", err)
	case nest.IsUnserializableValueErr(err):
		return cli.SerializationError("serializing document", err)
	case nest.IsUnknownRootErr(err):
		return cli.ConfigError("root tables", err)
	default:
		return cli.GeneralError("exporting", err)
	}
}

func printExportSummary(output string, res *exporter.Result) {
	fmt.Printf("Exported %s tables (%s rows) to %s\n",
		humanize.Comma(int64(res.Tables)), humanize.Comma(int64(res.Rows)), output)
	fmt.Printf("  Roots:  %d (%s)\n", len(res.Roots), res.Strategy)
	fmt.Printf("  Nodes:  %s\n", humanize.Comma(int64(res.Nodes)))
	fmt.Printf("  Size:   %s\n", humanize.Bytes(uint64(res.Bytes)))
	if len(res.Unreachable) > 0 {
		fmt.Printf("  Omitted: %d unreachable tables (use --include-unreachable)\n", len(res.Unreachable))
	}
}
