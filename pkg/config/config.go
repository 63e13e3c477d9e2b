package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the realm console configuration, read from the environment.
type Config struct {
	Persistence    string `env:"REALM_PERSISTENCE" env-default:"file"`
	DataDir        string `env:"REALM_DATA_DIR" env-default:"./data"`
	AdminRealm     string `env:"ADMIN_REALM" env-default:"master"`
	BasePath       string `env:"BASE_PATH" env-default:"/auth"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" env-default:"true"`
	Theme          ThemeConfig
	Logging        LoggingConfig
	Database       DatabaseConfig
}

// ThemeConfig selects where themes come from and how they are cached.
type ThemeConfig struct {
	// Dir overrides the embedded themes when set.
	Dir              string `env:"THEME_DIR"`
	Default          string `env:"THEME_DEFAULT" env-default:"keycloak"`
	CacheEnabled     bool   `env:"THEME_CACHE_ENABLED" env-default:"true"`
	CacheSize        int64  `env:"THEME_CACHE_SIZE" env-default:"64"`
	ResourcesVersion string `env:"THEME_RESOURCES_VERSION" env-default:"1"`
}

// LoadEnvFile loads variables from path into the environment. Variables
// already set are kept. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads envFile, if present, then the environment, and validates the
// result.
func Load(envFile string) (Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the console cannot start with.
func (c Config) Validate() error {
	return Validate(
		func() ValidationErrors {
			errs := CollectErrors(
				RequireOneOf("REALM_PERSISTENCE", c.Persistence, []string{"file", "memory", "inmem", "postgres", "postgresql"}),
				RequireNonEmpty("ADMIN_REALM", c.AdminRealm),
				RequireBasePath("BASE_PATH", c.BasePath),
			)
			if c.Persistence == "file" {
				errs = append(errs, CollectErrors(RequireNonEmpty("REALM_DATA_DIR", c.DataDir))...)
			}
			return errs
		},
		c.Theme.validate,
		c.Logging.validate,
		func() ValidationErrors {
			if c.Persistence != "postgres" && c.Persistence != "postgresql" {
				return nil
			}
			return c.Database.validate()
		},
	)
}

func (t ThemeConfig) validate() ValidationErrors {
	return CollectErrors(
		RequireNonEmpty("THEME_DEFAULT", t.Default),
		RequirePositive("THEME_CACHE_SIZE", int(t.CacheSize)),
	)
}
