package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	maxWalkDepth = 25

	// EnvPrefix prefixes every environment variable read by LoadConfig.
	EnvPrefix = "CQL2PGJSON"
)

// configNames are tried in order in every directory during discovery.
var configNames = []string{"cql2pgjson.yaml", "cql2pgjson.yml"}

// Config represents the configuration from cql2pgjson.yaml.
type Config struct {
	// Table is the table the generated statement selects from.
	Table string `mapstructure:"table" json:"table"`

	// Fields are the jsonb column names. The first is the default column.
	Fields []string `mapstructure:"fields" json:"fields"`

	// Schema is a JSON Schema path for single-column mode.
	Schema string `mapstructure:"schema" json:"schema,omitempty"`

	// Schemas maps column names to JSON Schema paths.
	Schemas map[string]string `mapstructure:"schemas" json:"schemas,omitempty"`

	// TableSchemas maps other table names to JSON Schema paths for
	// foreign-key sub-queries.
	TableSchemas map[string]string `mapstructure:"table_schemas" json:"table_schemas,omitempty"`

	// DBSchema is an index descriptor path or inline JSON document.
	DBSchema string `mapstructure:"dbschema" json:"dbschema,omitempty"`

	ServerChoice     []string `mapstructure:"server_choice" json:"server_choice,omitempty"`
	MaxSubQueryDepth int      `mapstructure:"max_subquery_depth" json:"max_subquery_depth"`

	// Folding is "database" or "regexp".
	Folding string `mapstructure:"folding" json:"folding"`

	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Serve    ServeConfig    `mapstructure:"serve" json:"serve"`
	Doctor   DoctorConfig   `mapstructure:"doctor" json:"doctor"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url" json:"url,omitempty"`
	Host     string `mapstructure:"host" json:"host,omitempty"`
	Port     int    `mapstructure:"port" json:"port"`
	Name     string `mapstructure:"name" json:"name,omitempty"`
	User     string `mapstructure:"user" json:"user,omitempty"`
	Password string `mapstructure:"password" json:"password,omitempty"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode,omitempty"`
}

// ServeConfig holds HTTP API settings.
type ServeConfig struct {
	Addr        string   `mapstructure:"addr" json:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins,omitempty"`
}

// DoctorConfig holds doctor command settings.
type DoctorConfig struct {
	Verbose bool `mapstructure:"verbose" json:"verbose"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > .env file > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	// .env values never override variables already set in the environment.
	loadDotEnv(configPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("table", "")
	v.SetDefault("fields", []string{})
	v.SetDefault("schema", "")
	v.SetDefault("schemas", map[string]string{})
	v.SetDefault("table_schemas", map[string]string{})
	v.SetDefault("dbschema", "")
	v.SetDefault("server_choice", []string{})
	v.SetDefault("max_subquery_depth", 3)
	v.SetDefault("folding", "database")

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "prefer")

	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.cors_origins", []string{})

	v.SetDefault("doctor.verbose", false)
}

// loadDotEnv loads .env from the config file directory and the working
// directory. A missing file is not an error.
func loadDotEnv(configPath string) {
	paths := []string{".env"}
	if configPath != "" {
		if dir := filepath.Dir(configPath); dir != "." {
			paths = append([]string{filepath.Join(dir, ".env")}, paths...)
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for cql2pgjson.yaml or
// cql2pgjson.yml, stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

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

		// Stop at the repo boundary (.git file or directory).
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// DSN returns the database connection string.
// If database.url is set, it's returned directly.
// Otherwise, builds a DSN from discrete fields.
func (c *Config) DSN() (string, error) {
	db := c.Database

	if db.URL != "" {
		return db.URL, nil
	}

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
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   "/" + db.Name,
	}

	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	} else {
		u.User = url.User(db.User)
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// ColumnSchema returns the schema path for column. A per-column entry wins
// over the top-level schema, which only applies in single-column mode.
func (c *Config) ColumnSchema(column string) string {
	if p, ok := c.Schemas[column]; ok && p != "" {
		return p
	}
	if p, ok := c.Schemas[strings.ToLower(column)]; ok && p != "" {
		return p
	}
	if len(c.Fields) <= 1 {
		return c.Schema
	}
	return ""
}

// Validate checks the settings every translating command needs.
func (c *Config) Validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("at least one field (jsonb column) is required")
	}
	if c.MaxSubQueryDepth < 0 {
		return fmt.Errorf("max_subquery_depth must not be negative, got %d", c.MaxSubQueryDepth)
	}
	switch c.Folding {
	case "", "database", "regexp":
	default:
		return fmt.Errorf("folding must be database or regexp, got %q", c.Folding)
	}
	return nil
}
