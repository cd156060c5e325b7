// Package testutil provides shared test utilities for nestdump integration tests.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ShopSQL creates the shop fixture: customers, orders, order items, a
// self-referencing category tree and a composite foreign key.
//
//go:embed testdata/shop_postgres.sql
var ShopSQL string

// Singleton container state
var (
	singletonOnce sync.Once
	singletonDSN  string
	singletonErr  error
)

// ensureSingleton lazily initializes the singleton PostgreSQL container.
// DATABASE_URL, when set, points at an existing server instead.
func ensureSingleton() (string, error) {
	singletonOnce.Do(func() {
		if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
			singletonDSN = dsn
			return
		}

		ctx := context.Background()

		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			singletonErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx)
		if err != nil {
			_ = container.Terminate(ctx)
			singletonErr = fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
			return
		}

		// Append sslmode=disable for local testing
		dsn += "sslmode=disable"

		singletonDSN = dsn
		// Container is not stored - ryuk will handle cleanup automatically
	})

	return singletonDSN, singletonErr
}

// EmptyDB returns a connection to a new, empty database together with its
// URL. The database is dropped when the test completes.
func EmptyDB(tb testing.TB) (*sql.DB, string) {
	tb.Helper()

	adminDSN, err := ensureSingleton()
	require.NoError(tb, err, "failed to start PostgreSQL container")

	dbName := uniqueDBName("nestdump")
	require.NoError(tb, createDatabase(adminDSN, dbName), "failed to create empty database")

	dbDSN, err := replaceDBName(adminDSN, dbName)
	require.NoError(tb, err)

	db, err := sql.Open("pgx", dbDSN)
	require.NoError(tb, err, "failed to connect to empty database")
	require.NoError(tb, db.Ping(), "failed to ping empty database")

	registerCleanup(tb, db, adminDSN, dbName)
	return db, dbDSN
}

// ShopDB returns a database loaded with ShopSQL and its URL.
func ShopDB(tb testing.TB) (*sql.DB, string) {
	tb.Helper()
	db, dsn := EmptyDB(tb)
	_, err := db.Exec(ShopSQL)
	require.NoError(tb, err, "failed to load shop fixture")
	return db, dsn
}

// registerCleanup closes the connection and drops the database in the
// background so cleanup does not block the test.
func registerCleanup(tb testing.TB, db *sql.DB, adminDSN, dbName string) {
	tb.Cleanup(func() {
		_ = db.Close()

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = dropDatabase(ctx, adminDSN, dbName)
		}()
	})
}

func uniqueDBName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

func createDatabase(adminDSN, name string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	_, err = db.Exec("CREATE DATABASE " + pgx.Identifier{name}.Sanitize())
	return err
}

func dropDatabase(ctx context.Context, adminDSN, name string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// Force disconnect all users
	_, _ = db.ExecContext(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, name)

	_, err = db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize())
	return err
}

// replaceDBName swaps the database name of a postgres:// URL.
func replaceDBName(dsn, newDB string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(u.Scheme, "postgres") {
		return "", fmt.Errorf("not a postgres url: %s", u.Redacted())
	}
	u.Path = "/" + newDB
	return u.String(), nil
}
