// Package config loads the service configuration from a YAML file and the
// environment. Environment variables take precedence over file values, and
// every field has a working default so a bare binary starts with in-memory
// backends and the mock gateway.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zen-systems/promptroute/pkg/cache"
	"github.com/zen-systems/promptroute/pkg/preference"
)

// Backend names accepted by StoreConfig and CacheConfig.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Routing RoutingConfig `yaml:"routing"`
	Store   StoreConfig   `yaml:"store"`
	Cache   CacheConfig   `yaml:"cache"`
	Gateway GatewayConfig `yaml:"gateway"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// RoutingConfig configures the routing core: adaptation thresholds, cache
// lifetimes, and the dispatch timeout (zero disables it).
type RoutingConfig struct {
	Thresholds      preference.Thresholds `yaml:"thresholds"`
	CacheTTL        cache.TTLPolicy       `yaml:"cache_ttl"`
	DispatchTimeout time.Duration         `yaml:"dispatch_timeout"`
}

// StoreConfig selects the preference/sample persistence backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
	MongoURI   string `yaml:"mongo_uri"`
	MongoDB    string `yaml:"mongo_db"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redis_url"`
}

// GatewayConfig selects the inference provider and its credentials. Provider
// "mock" needs no key and is the default.
type GatewayConfig struct {
	Provider        string   `yaml:"provider"`
	AnthropicAPIKey string   `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string   `yaml:"openai_api_key"`
	GoogleAPIKey    string   `yaml:"google_api_key"`
	Models          ModelSet `yaml:"models"`
}

// ModelSet assigns a gateway model per route class. Empty fields fall back to
// the provider's first supported model.
type ModelSet struct {
	DirectEdit   string `yaml:"direct_edit"`
	FeatureBuild string `yaml:"feature_build"`
	MetaChat     string `yaml:"meta_chat"`
	Refactor     string `yaml:"refactor"`
}

// Load reads configuration from the given YAML file and the environment.
// A missing file is not an error; a present but malformed file is. An
// optional .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnvOrDefault("PROMPTROUTE_ADDR", c.Server.Addr)

	c.Store.Backend = getEnvOrDefault("PROMPTROUTE_STORE_BACKEND", c.Store.Backend)
	c.Store.SQLitePath = getEnvOrDefault("PROMPTROUTE_SQLITE_PATH", c.Store.SQLitePath)
	c.Store.MongoURI = getEnvOrDefault("MONGODB_URI", c.Store.MongoURI)
	c.Store.MongoDB = getEnvOrDefault("MONGODB_DATABASE", c.Store.MongoDB)

	c.Cache.Backend = getEnvOrDefault("PROMPTROUTE_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.RedisURL = getEnvOrDefault("REDIS_URL", c.Cache.RedisURL)

	c.Gateway.Provider = getEnvOrDefault("PROMPTROUTE_PROVIDER", c.Gateway.Provider)
	c.Gateway.AnthropicAPIKey = getEnvOrDefault("ANTHROPIC_API_KEY", c.Gateway.AnthropicAPIKey)
	c.Gateway.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.Gateway.OpenAIAPIKey)
	c.Gateway.GoogleAPIKey = getEnvOrDefault("GOOGLE_API_KEY", c.Gateway.GoogleAPIKey)
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "promptroute.db"
	}
	if c.Store.MongoDB == "" {
		c.Store.MongoDB = "promptroute"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendMemory
	}
	if c.Cache.RedisURL == "" {
		c.Cache.RedisURL = "redis://localhost:6379/0"
	}
	if c.Gateway.Provider == "" {
		c.Gateway.Provider = "mock"
	}
	// Thresholds and CacheTTL zero fields are filled by their consumers
	// (preference.NewAdapter, cache.New), so partial YAML overrides work.
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("store backend %q requires MONGODB_URI", BackendMongo)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	switch c.Gateway.Provider {
	case "mock":
	case "anthropic":
		if c.Gateway.AnthropicAPIKey == "" {
			return fmt.Errorf("gateway provider anthropic requires ANTHROPIC_API_KEY")
		}
	case "openai":
		if c.Gateway.OpenAIAPIKey == "" {
			return fmt.Errorf("gateway provider openai requires OPENAI_API_KEY")
		}
	case "google":
		if c.Gateway.GoogleAPIKey == "" {
			return fmt.Errorf("gateway provider google requires GOOGLE_API_KEY")
		}
	default:
		return fmt.Errorf("unknown gateway provider %q", c.Gateway.Provider)
	}

	if c.Routing.DispatchTimeout < 0 {
		return fmt.Errorf("dispatch_timeout must not be negative")
	}
	return nil
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}
