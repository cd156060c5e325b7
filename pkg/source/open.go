package source

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	// Registered database/sql drivers.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted in configuration.
const (
	DriverPgx    = "pgx"
	DriverPQ     = "postgres"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Target is a resolved connection: which database/sql driver to open with
// which DSN, read through which dialect.
type Target struct {
	Driver  string
	DSN     string
	Dialect Dialect
}

// Resolve maps a database URL and an optional driver name to a Target.
//
// postgres:// and postgresql:// URLs open with pgx unless driver is
// "postgres" (lib/pq). mysql:// URLs are converted to a go-sql-driver DSN
// with parseTime enabled. sqlite:// URLs, file: URIs and bare paths open
// with modernc.org/sqlite. With driver "mysql" a native MySQL DSN is
// accepted as-is. schemaName selects the postgres schema or mysql database
// to read.
func Resolve(rawURL, driver, schemaName string) (Target, error) {
	rawURL = strings.TrimSpace(rawURL)
	driver = strings.ToLower(strings.TrimSpace(driver))
	if rawURL == "" {
		return Target{}, fmt.Errorf("%w: empty database url", ErrUnsupportedDatabase)
	}

	scheme := ""
	if i := strings.Index(rawURL, "://"); i > 0 {
		scheme = strings.ToLower(rawURL[:i])
	}

	switch {
	case scheme == "postgres" || scheme == "postgresql":
		d := DriverPgx
		switch driver {
		case "", DriverPgx:
		case DriverPQ, "pq":
			d = DriverPQ
		default:
			return Target{}, fmt.Errorf("%w: driver %q for %s url", ErrUnsupportedDatabase, driver, scheme)
		}
		return Target{Driver: d, DSN: rawURL, Dialect: Postgres{Schema: schemaName}}, nil

	case scheme == "mysql":
		cfg, err := mysqlConfigFromURL(rawURL)
		if err != nil {
			return Target{}, err
		}
		return Target{Driver: DriverMySQL, DSN: cfg.FormatDSN(), Dialect: MySQL{Schema: schemaName}}, nil

	case scheme == "sqlite" || scheme == "sqlite3":
		return Target{Driver: DriverSQLite, DSN: rawURL[len(scheme)+3:], Dialect: SQLite{}}, nil

	case scheme == "" && driver == DriverMySQL:
		cfg, err := mysql.ParseDSN(rawURL)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %v", ErrUnsupportedDatabase, err)
		}
		cfg.ParseTime = true
		return Target{Driver: DriverMySQL, DSN: cfg.FormatDSN(), Dialect: MySQL{Schema: schemaName}}, nil

	case scheme == "" && (driver == "" || driver == DriverSQLite):
		return Target{Driver: DriverSQLite, DSN: rawURL, Dialect: SQLite{}}, nil
	}

	return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedDatabase, redact(rawURL))
}

func mysqlConfigFromURL(rawURL string) (*mysql.Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDatabase, err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" && u.Hostname() != "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true

	for k, vs := range u.Query() {
		if len(vs) == 0 {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[k] = vs[len(vs)-1]
	}
	return cfg, nil
}

// redact hides the password of a URL for error messages.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	return u.Redacted()
}

// Open resolves rawURL, opens the database and verifies the connection.
// The caller closes the returned *sql.DB.
func Open(ctx context.Context, rawURL, driver, schemaName string) (*sql.DB, Dialect, error) {
	t, err := Resolve(rawURL, driver, schemaName)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(t.Driver, t.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", t.Dialect.Name(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("connect to %s database: %w", t.Dialect.Name(), err)
	}
	return db, t.Dialect, nil
}
