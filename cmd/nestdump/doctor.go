package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/nestdump/internal/cli"
	"github.com/pthm/nestdump/internal/doctor"
)

var (
	doctorDB       dbFlags
	doctorStrategy string
	doctorRoots    []string
	doctorVerbose  bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Check that a database can be exported: foreign keys, root selection, cycles and column values.`,
	Example: `  # Run health checks
  nestdump doctor --db postgres://localhost/shop

  # Run with verbose output
  nestdump doctor --db postgres://localhost/shop --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := resolveStrategy(doctorStrategy, doctorRoots)
		if err != nil {
			return err
		}
		verboseFlag := resolveBool(doctorVerbose, cfg.Doctor.Verbose)

		snap, err := loadSnapshot(cmd.Context(), doctorDB)
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Println("nestdump doctor - Health Check")
		}

		report := doctor.New(snap, strategy).Run()
		report.Print(os.Stdout, verboseFlag)

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorDB.url, "db", "", "database URL")
	f.StringVar(&doctorDB.driver, "driver", "", "database driver: pgx, postgres, mysql or sqlite")
	f.StringVar(&doctorDB.schema, "schema", "", "postgres schema or mysql database to read")
	f.StringSliceVar(&doctorDB.exclude, "exclude", nil, "glob of tables to leave out (repeatable)")
	f.StringVar(&doctorStrategy, "roots", "", "root strategy: unreferenced, independent or explicit")
	f.StringSliceVar(&doctorRoots, "root", nil, "root table (repeatable, implies --roots explicit)")
	f.BoolVar(&doctorVerbose, "verbose", false, "show detailed output")
}
