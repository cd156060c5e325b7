package main

import (
	"context"
	"errors"

	"github.com/pthm/nestdump/internal/cli"
	"github.com/pthm/nestdump/pkg/nest"
	"github.com/pthm/nestdump/pkg/schema"
	"github.com/pthm/nestdump/pkg/source"
)

// dbFlags are the connection flags shared by commands that read a database.
type dbFlags struct {
	url     string
	driver  string
	schema  string
	exclude []string
}

// resolveDSN returns the database URL from the flag or the config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db, DATABASE_URL or set in config)", nil)
	}
	return dsn, nil
}

// resolveStrategy picks the root strategy from flags, then config.
func resolveStrategy(flagStrategy string, flagTables []string) (nest.RootStrategy, error) {
	name := resolveString(flagStrategy, cfg.Export.Roots.Strategy)
	tables := resolveStrings(flagTables, cfg.Export.Roots.Tables)
	strategy, err := nest.ParseRootStrategy(name, tables)
	if err != nil {
		return nil, cli.ConfigError("root strategy", err)
	}
	return strategy, nil
}

// loadSnapshot connects with the resolved settings and reads the whole
// database into memory. The connection is closed before returning.
func loadSnapshot(ctx context.Context, flags dbFlags) (*schema.Snapshot, error) {
	dsn, err := resolveDSN(flags.url)
	if err != nil {
		return nil, err
	}
	driver := resolveString(flags.driver, cfg.Database.Driver)
	schemaName := resolveString(flags.schema, cfg.Database.Schema)

	db, dialect, err := source.Open(ctx, dsn, driver, schemaName)
	if err != nil {
		if source.IsUnsupportedDatabaseErr(err) {
			return nil, cli.ConfigError("database configuration", err)
		}
		return nil, cli.DBConnectError("connecting to database", err)
	}
	defer func() { _ = db.Close() }()

	logger.Info("reading database", "dialect", dialect.Name())

	src := source.NewDatabase(db, dialect, source.Options{
		OrderByPrimaryKey: cfg.Export.OrderByPrimaryKey,
	})
	filter := source.Filter{Exclude: resolveStrings(flags.exclude, cfg.Export.Exclude)}

	snap, err := source.Load(ctx, src, filter)
	if err != nil {
		if errors.Is(err, source.ErrBadPattern) {
			return nil, cli.ConfigError("exclude pattern", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, cli.GeneralError("loading database", err)
		}
		return nil, cli.DBConnectError("loading database", err)
	}

	logger.Info("loaded database", "tables", len(snap.Tables), "rows", snap.RowCount())
	return snap, nil
}
