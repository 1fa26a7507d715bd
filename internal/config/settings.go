package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Log level constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DBSettings configuration for the database
type DBSettings struct {
	Dir                 string        `mapstructure:"dir"`
	SchemaFile          string        `mapstructure:"schema_file"`
	InMemory            bool          `mapstructure:"in_memory"`
	IgnoreHash          bool          `mapstructure:"ignore_hash"`
	LockTimeout         time.Duration `mapstructure:"lock_timeout"`
	PageSize            int           `mapstructure:"page_size"`
	MaxFacetValues      int           `mapstructure:"max_facet_values"`
	StoreWorkers        int           `mapstructure:"store_workers"`
	ExpressionCacheSize int           `mapstructure:"expression_cache_size"`
}

// MetricsSettings configuration for the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
	// Public serves /metrics without authentication
	Public bool `mapstructure:"public"`
}

// Settings application settings
type Settings struct {
	Transport string          `mapstructure:"transport"`
	Host      string          `mapstructure:"host"`
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	Auth      AuthSettings    `mapstructure:"auth"`
	DB        DBSettings      `mapstructure:"db"`
	Metrics   MetricsSettings `mapstructure:"metrics"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", LogLevelInfo)
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("db.dir", defaultDBDir())
	v.SetDefault("db.in_memory", false)
	v.SetDefault("db.ignore_hash", false)
	v.SetDefault("db.lock_timeout", 5*time.Second)
	v.SetDefault("db.page_size", 20)
	v.SetDefault("db.max_facet_values", 10)
	v.SetDefault("db.store_workers", 4)
	v.SetDefault("db.expression_cache_size", 256)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.public", false)

	v.SetEnvPrefix("FLEA_DB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("auth.type", "FLEA_DB_AUTH_TYPE")
	_ = v.BindEnv("auth.basic.username", "FLEA_DB_AUTH_BASIC_USERNAME")
	_ = v.BindEnv("auth.basic.password", "FLEA_DB_AUTH_BASIC_PASSWORD")
	_ = v.BindEnv("auth.api_keys", "FLEA_DB_AUTH_API_KEYS")

	_ = v.BindEnv("db.dir", "FLEA_DB_DIR")
	_ = v.BindEnv("db.schema_file", "FLEA_DB_SCHEMA_FILE")
	_ = v.BindEnv("db.in_memory", "FLEA_DB_IN_MEMORY")
	_ = v.BindEnv("db.ignore_hash", "FLEA_DB_IGNORE_HASH")
	_ = v.BindEnv("db.lock_timeout", "FLEA_DB_LOCK_TIMEOUT")
	_ = v.BindEnv("db.page_size", "FLEA_DB_PAGE_SIZE")
	_ = v.BindEnv("db.max_facet_values", "FLEA_DB_MAX_FACET_VALUES")
	_ = v.BindEnv("db.store_workers", "FLEA_DB_STORE_WORKERS")
	_ = v.BindEnv("db.expression_cache_size", "FLEA_DB_EXPRESSION_CACHE_SIZE")

	_ = v.BindEnv("metrics.enabled", "FLEA_DB_METRICS_ENABLED")
	_ = v.BindEnv("metrics.public", "FLEA_DB_METRICS_PUBLIC")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		bindFlag(v, flags, "transport", "transport")
		bindFlag(v, flags, "host", "host")
		bindFlag(v, flags, "port", "port")
		bindFlag(v, flags, "log_level", "log-level")
		bindFlag(v, flags, "auth.type", "auth-type")
		bindFlag(v, flags, "auth.basic.username", "auth-basic-username")
		bindFlag(v, flags, "auth.basic.password", "auth-basic-password")
		bindFlag(v, flags, "auth.api_keys", "auth-api-keys")

		bindFlag(v, flags, "db.dir", "db-dir")
		bindFlag(v, flags, "db.schema_file", "db-schema-file")
		bindFlag(v, flags, "db.in_memory", "db-in-memory")
		bindFlag(v, flags, "db.ignore_hash", "db-ignore-hash")
		bindFlag(v, flags, "db.lock_timeout", "db-lock-timeout")
		bindFlag(v, flags, "db.page_size", "db-page-size")
		bindFlag(v, flags, "db.max_facet_values", "db-max-facet-values")
		bindFlag(v, flags, "db.store_workers", "db-store-workers")
		bindFlag(v, flags, "db.expression_cache_size", "db-expression-cache-size")

		bindFlag(v, flags, "metrics.enabled", "metrics-enabled")
		bindFlag(v, flags, "metrics.public", "metrics-public")
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("FLEA_DB_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	// Trim spaces from API keys
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	settings.LogLevel = strings.ToLower(strings.TrimSpace(settings.LogLevel))
	settings.DB.Dir = expandHomeDir(settings.DB.Dir)
	settings.DB.SchemaFile = expandHomeDir(settings.DB.SchemaFile)

	return &settings, nil
}

// bindFlag binds a flag when it is registered on the set.
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if f := flags.Lookup(name); f != nil {
		_ = v.BindPFlag(key, f)
	}
}

// defaultDBDir returns the default database directory
func defaultDBDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flea-db"
	}
	return filepath.Join(home, ".flea-db")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	switch s.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
	default:
		return errors.New("log-level must be one of debug, info, warn or error, got: " + s.LogLevel)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if s.Metrics.Enabled && s.Transport != "sse" {
		return errors.New("metrics-enabled requires the sse transport")
	}
	if s.Metrics.Public && !s.Metrics.Enabled {
		return errors.New("metrics-public requires metrics-enabled")
	}

	return validateDBSettings(&s.DB)
}

// validateDBSettings validates the database configuration
func validateDBSettings(d *DBSettings) error {
	if d.InMemory {
		if d.SchemaFile == "" {
			return errors.New("db-in-memory requires db-schema-file")
		}
		if d.IgnoreHash {
			return errors.New("db-ignore-hash has no effect with db-in-memory")
		}
	} else if d.Dir == "" {
		return errors.New("db-dir cannot be empty")
	}

	if d.LockTimeout <= 0 {
		return errors.New("db-lock-timeout must be positive")
	}
	if d.PageSize <= 0 {
		return errors.New("db-page-size must be positive")
	}
	if d.MaxFacetValues <= 0 {
		return errors.New("db-max-facet-values must be positive")
	}
	if d.StoreWorkers <= 0 {
		return errors.New("db-store-workers must be positive")
	}
	if d.ExpressionCacheSize <= 0 {
		return fmt.Errorf("db-expression-cache-size must be positive, got %d", d.ExpressionCacheSize)
	}
	return nil
}
