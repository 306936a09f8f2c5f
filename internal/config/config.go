// Package config loads sitepilot settings: built-in defaults, then an
// optional YAML file, then SITEPILOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alexanderramin/sitepilot/internal/llm"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath   string       `yaml:"db_path"`
	LogLevel string       `yaml:"log_level"`
	Workers  int          `yaml:"workers"`
	HTTP     HTTPConfig   `yaml:"http"`
	Redis    RedisConfig  `yaml:"redis"`
	Search   SearchConfig `yaml:"search"`
	LLM      LLMFile      `yaml:"llm"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// RedisConfig enables the Redis session store and locker when Addr is set.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type SearchConfig struct {
	Region string `yaml:"region"`
	Lang   string `yaml:"lang"`
}

// LLMFile is the YAML view of llm.LLMConfig. Empty fields keep defaults.
type LLMFile struct {
	Enabled      *bool  `yaml:"enabled"`
	Provider     string `yaml:"provider"`
	Endpoint     string `yaml:"endpoint"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	VisionAPIKey string `yaml:"vision_api_key"`
	VisionModel  string `yaml:"vision_model"`
}

// Default returns the built-in configuration.
func Default() Config {
	dbPath := "sitepilot.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".sitepilot", "sitepilot.db")
	}
	return Config{
		DBPath:   dbPath,
		LogLevel: "info",
		Workers:  8,
		HTTP:     HTTPConfig{Addr: ":8080"},
		Redis:    RedisConfig{Prefix: "sitepilot:", SessionTTL: 24 * time.Hour},
		Search:   SearchConfig{Region: "wt-wt"},
	}
}

// Load builds the configuration. A missing file at path is not an error;
// an empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return cfg, nil
}

// LLMConfig resolves the LLM settings: defaults, then the YAML llm section,
// then SITEPILOT_LLM_* variables.
func (c Config) LLMConfig() llm.LLMConfig {
	out := llm.DefaultConfig()
	f := c.LLM
	if f.Enabled != nil {
		out.Enabled = *f.Enabled
	}
	if f.Provider != "" {
		out.Provider = llm.Provider(f.Provider)
	}
	if f.Endpoint != "" {
		out.Endpoint = f.Endpoint
	}
	if f.APIKey != "" {
		out.APIKey = f.APIKey
	}
	if f.Model != "" {
		out.Model = f.Model
	}
	if f.TimeoutMs > 0 {
		out.TimeoutMs = f.TimeoutMs
	}
	if f.VisionAPIKey != "" {
		out.VisionAPIKey = f.VisionAPIKey
	}
	if f.VisionModel != "" {
		out.VisionModel = f.VisionModel
	}
	return llm.ApplyEnv(out)
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	str("SITEPILOT_DB", &cfg.DBPath)
	str("SITEPILOT_LOG_LEVEL", &cfg.LogLevel)
	str("SITEPILOT_HTTP_ADDR", &cfg.HTTP.Addr)
	str("SITEPILOT_REDIS_ADDR", &cfg.Redis.Addr)
	str("SITEPILOT_REDIS_PASSWORD", &cfg.Redis.Password)
	str("SITEPILOT_REDIS_PREFIX", &cfg.Redis.Prefix)
	str("SITEPILOT_SEARCH_REGION", &cfg.Search.Region)
	str("SITEPILOT_SEARCH_LANG", &cfg.Search.Lang)

	if v := os.Getenv("SITEPILOT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SITEPILOT_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("SITEPILOT_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SITEPILOT_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	if v := os.Getenv("SITEPILOT_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SITEPILOT_SESSION_TTL: %w", err)
		}
		cfg.Redis.SessionTTL = d
	}
	return nil
}
