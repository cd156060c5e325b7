package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	maxWalkDepth = 25

	// DefaultOutput is the export file written when none is configured.
	DefaultOutput = "nested_database.json"
)

var configNames = []string{"nestdump.yaml", "nestdump.yml"}

// Config represents the nestdump configuration from nestdump.yaml.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Export   ExportConfig   `mapstructure:"export" json:"export"`
	Doctor   DoctorConfig   `mapstructure:"doctor" json:"doctor"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url" json:"url"`
	Driver   string `mapstructure:"driver" json:"driver"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Name     string `mapstructure:"name" json:"name"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`

	// Schema is the postgres schema or mysql database to read.
	Schema string `mapstructure:"schema" json:"schema"`
}

// ExportConfig holds export command settings.
type ExportConfig struct {
	Output             string      `mapstructure:"output" json:"output"`
	Indent             int         `mapstructure:"indent" json:"indent"`
	Roots              RootsConfig `mapstructure:"roots" json:"roots"`
	IncludeUnreachable bool        `mapstructure:"include_unreachable" json:"include_unreachable"`
	Exclude            []string    `mapstructure:"exclude" json:"exclude"`
	OrderByPrimaryKey  bool        `mapstructure:"order_by_primary_key" json:"order_by_primary_key"`
}

// RootsConfig selects the top-level tables of the document.
type RootsConfig struct {
	Strategy string   `mapstructure:"strategy" json:"strategy"`
	Tables   []string `mapstructure:"tables" json:"tables"`
}

// DoctorConfig holds doctor command settings.
type DoctorConfig struct {
	Verbose bool `mapstructure:"verbose" json:"verbose"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// A .env file next to the config file (or in the working directory when no
// config file is found) is loaded into the environment first; variables
// already set are not overridden.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Find config file and load its .env
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}
	if err := loadDotEnv(configPath); err != nil {
		return nil, configPath, err
	}

	// 3. Set up environment variable binding
	v.SetEnvPrefix("NESTDUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", "NESTDUMP_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, configPath, fmt.Errorf("binding DATABASE_URL: %w", err)
	}

	// 4. Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "prefer")
	v.SetDefault("database.schema", "")

	// Export defaults
	v.SetDefault("export.output", DefaultOutput)
	v.SetDefault("export.indent", 4)
	v.SetDefault("export.roots.strategy", "")
	v.SetDefault("export.roots.tables", []string{})
	v.SetDefault("export.include_unreachable", false)
	v.SetDefault("export.exclude", []string{})
	v.SetDefault("export.order_by_primary_key", true)

	// Doctor defaults
	v.SetDefault("doctor.verbose", false)
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for nestdump.yaml or nestdump.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Auto-discovery: walk up to .git or maxWalkDepth
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Check for repo boundary (.git file or directory)
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break // Stop at repo root
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// loadDotEnv loads the .env file beside configPath, or in the working
// directory when configPath is empty. A missing file is not an error.
func loadDotEnv(configPath string) error {
	path := ".env"
	if configPath != "" {
		path = filepath.Join(filepath.Dir(configPath), ".env")
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// DSN returns the database connection string.
// If database.url is set, it's returned directly.
// Otherwise, builds a URL from discrete fields for the configured driver:
// postgres (default), mysql, or sqlite (database.name is the file path).
func (c *Config) DSN() (string, error) {
	db := c.Database

	if db.URL != "" {
		return db.URL, nil
	}

	scheme := "postgres"
	port := 5432
	switch strings.ToLower(db.Driver) {
	case "", "pgx", "postgres", "pq":
	case "mysql":
		scheme = "mysql"
		port = 3306
	case "sqlite":
		if db.Name == "" {
			return "", fmt.Errorf("database.name is required when database.url is not set")
		}
		return "sqlite://" + db.Name, nil
	default:
		return "", fmt.Errorf("database.driver %q is not supported", db.Driver)
	}
	if db.Port != 0 {
		port = db.Port
	}

	// Build DSN from discrete fields
	if db.Host == "" {
		return "", fmt.Errorf("database.host is required when database.url is not set")
	}
	if db.Name == "" {
		return "", fmt.Errorf("database.name is required when database.url is not set")
	}
	if db.User == "" {
		return "", fmt.Errorf("database.user is required when database.url is not set")
	}

	u := &url.URL{
		Scheme: scheme,
		Host:   db.Host + ":" + strconv.Itoa(port),
		Path:   "/" + db.Name,
	}

	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	} else {
		u.User = url.User(db.User)
	}

	if scheme == "postgres" && db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Redacted returns a copy of the config with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = "xxxxx"
	}
	if u, err := url.Parse(out.Database.URL); err == nil && u.User != nil {
		out.Database.URL = u.Redacted()
	}
	return &out
}
