package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"` // Role cache; disabled when empty
	Port        string `mapstructure:"port"`

	// Bearer tokens are HS256 JWTs whose "sub" claim is the user ID
	JWTSecret string `mapstructure:"jwt_secret"`

	LogLevel     string        `mapstructure:"log_level"`
	StoreDriver  string        `mapstructure:"store_driver"`
	RoleCacheTTL time.Duration `mapstructure:"role_cache_ttl"`
}

// App holds the global config instance
var App Config

// FileUsed is the config file LoadConfig read, empty when none was found
var FileUsed string

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present; missing file is fine outside local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("store_driver", StoreDriverPostgres)
	v.SetDefault("role_cache_ttl", "5m")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("taskboard")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("taskboard")

	// Bind standard environment variables (Docker/deploy compatibility)
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("store_driver", "STORE_DRIVER")
	_ = v.BindEnv("role_cache_ttl", "ROLE_CACHE_TTL")

	v.AutomaticEnv()

	FileUsed = ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	} else {
		FileUsed = v.ConfigFileUsed()
	}

	App = Config{}
	return v.Unmarshal(&App)
}

// Validate reports settings the server cannot start without
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.RoleCacheTTL < 0 {
		return errors.New("ROLE_CACHE_TTL must not be negative")
	}
	return nil
}
