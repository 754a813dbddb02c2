package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendNeo4j  = "neo4j"
	BackendMemory = "memory"
)

// Config holds all runtime settings.
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	ServerPort  string `mapstructure:"SERVER_PORT"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`

	// Neo4j
	Neo4jURI      string `mapstructure:"NEO4J_URI"`
	Neo4jUser     string `mapstructure:"NEO4J_USER"`
	Neo4jPassword string `mapstructure:"NEO4J_PASSWORD"`
	Neo4jDatabase string `mapstructure:"NEO4J_DATABASE"`

	// Redis lock. An empty address selects the in-process lock.
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	LockTTL       time.Duration `mapstructure:"LOCK_TTL"`

	IdentityHeader string `mapstructure:"IDENTITY_HEADER"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`
}

var defaults = map[string]any{
	"ENVIRONMENT":     "development",
	"SERVER_PORT":     "8080",
	"STORE_BACKEND":   BackendNeo4j,
	"NEO4J_URI":       "neo4j://neo4j:7687",
	"NEO4J_USER":      "neo4j",
	"NEO4J_PASSWORD":  "password",
	"NEO4J_DATABASE":  "",
	"REDIS_ADDR":      "",
	"REDIS_PASSWORD":  "",
	"REDIS_DB":        0,
	"LOCK_TTL":        "10s",
	"IDENTITY_HEADER": "X-User-Email",
	"LOG_LEVEL":       "info",
	"LOG_FILE":        "",
}

// LoadConfig reads path/.env if present, then the environment.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine, settings then come from the environment
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that cannot be defaulted.
func (c Config) Validate() error {
	switch strings.ToLower(c.StoreBackend) {
	case BackendNeo4j:
		if c.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required for the %s backend", BackendNeo4j)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return "0.0.0.0:" + c.ServerPort
}
