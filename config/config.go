// Package config loads the backfill configuration from config.yaml with
// environment-variable overrides. Connection settings are resolved once at
// process start and passed into the adapters; nothing reads the environment
// after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type ConvexConfig struct {
	// URL is the deployment URL, e.g. https://your-deployment.convex.cloud
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token"`
	Debug     bool   `yaml:"debug"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type MetricsConfig struct {
	// Addr is the listen address for the /metrics endpoint while a run is
	// in progress. Empty disables the listener.
	Addr string `yaml:"addr"`
}

type BackfillConfig struct {
	// Store selects the classify-mode backend: "convex" or "postgres".
	Store     string `yaml:"store"`
	BatchSize int    `yaml:"batch_size"`
	// DelayMS is the pause after each tag-generation call, for the
	// external service's rate limit.
	DelayMS int `yaml:"delay_ms"`
}

type Config struct {
	DB       DBConfig       `yaml:"db"`
	Convex   ConvexConfig   `yaml:"convex"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Redis    RedisConfig    `yaml:"redis"`
	MQ       MQConfig       `yaml:"mq"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Backfill BackfillConfig `yaml:"backfill"`
}

// Load reads the config file at path and applies environment overrides.
// A missing file is not fatal: every setting can come from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Backfill.Store = "convex"
	cfg.Backfill.BatchSize = 10
	cfg.Backfill.DelayMS = 1000
	cfg.Gemini.Model = "gemini-2.0-flash"

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	cfg.overrideFromEnv()
	return cfg, nil
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("DB_HOST"); host != "" {
		c.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		c.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		c.DB.Name = name
	}

	if url := os.Getenv("CONVEX_DEPLOYMENT_URL"); url != "" {
		c.Convex.URL = url
	}
	if token := os.Getenv("CONVEX_AUTH_TOKEN"); token != "" {
		c.Convex.AuthToken = token
	}
	if debug := os.Getenv("CONVEX_DEBUG"); debug != "" {
		c.Convex.Debug = debug == "true" || debug == "1"
	}

	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		c.Gemini.Model = model
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}

	if url := os.Getenv("MQ_URL"); url != "" {
		c.MQ.URL = url
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
}

// RequireConvex validates the settings the Convex adapter needs.
func (c *Config) RequireConvex() error {
	if c.Convex.URL == "" {
		return fmt.Errorf("convex deployment URL is not set (convex.url in config.yaml or CONVEX_DEPLOYMENT_URL)")
	}
	return nil
}

// RequireDB validates the settings the Postgres adapter needs.
func (c *Config) RequireDB() error {
	if c.DB.Host == "" || c.DB.Name == "" || c.DB.User == "" {
		return fmt.Errorf("database connection is not configured (db.host/db.name/db.user in config.yaml or DB_* env)")
	}
	return nil
}

// RequireGemini validates the settings the tag suggester needs.
func (c *Config) RequireGemini() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is not set")
	}
	return nil
}
