// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	CORSOrigins       []string      `yaml:"cors_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	// Retention bounds how long audit rows are kept. 0 keeps them forever.
	Retention time.Duration `yaml:"retention"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultProvider string `yaml:"default_provider"` // openai|gemini
	DefaultModel    string `yaml:"default_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI streams
	TokenizerModel  string `yaml:"tokenizer_model"`
}

type FitnessConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ForwarderConfig struct {
	Workers  int           `yaml:"workers"`
	Queue    int           `yaml:"queue"`
	Timeout  time.Duration `yaml:"timeout"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"` // 0 disables
	Window   time.Duration `yaml:"window"`
}

type SecurityConfig struct {
	// EncryptionKey seals questionnaire payloads in the delivery audit log.
	// Empty stores them as plain JSON.
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Fitness   FitnessConfig   `yaml:"fitness"`
	Forwarder ForwarderConfig `yaml:"forwarder"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Security  SecurityConfig  `yaml:"security"`
	Flows     []FlowConfig    `yaml:"flows"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// defaults, then validates. A missing file is not an error so the service can
// run from the environment alone.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	setStr(&cfg.AI.OpenAIBaseURL, "OPENAI_BASE_URL")
	setStr(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	setStr(&cfg.Database.URL, "DATABASE_URL")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Fitness.BaseURL, "FITNESS_API_URL")
	setStr(&cfg.Security.EncryptionKey, "AUDIT_ENCRYPTION_KEY")
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = p
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadHeaderTimeout <= 0 {
		cfg.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultProvider == "" {
		cfg.AI.DefaultProvider = "openai"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = DefaultCoachModel
	}
	if cfg.AI.TokenizerModel == "" {
		cfg.AI.TokenizerModel = "gpt-4o-mini"
	}
	if cfg.Fitness.BaseURL == "" {
		cfg.Fitness.BaseURL = "https://ia-workout-api.fly.dev/api"
	}
	if cfg.Fitness.Timeout <= 0 {
		cfg.Fitness.Timeout = 10 * time.Second
	}
	if cfg.Forwarder.Workers <= 0 {
		cfg.Forwarder.Workers = 4
	}
	if cfg.Forwarder.Queue <= 0 {
		cfg.Forwarder.Queue = cfg.Forwarder.Workers * 16
	}
	if cfg.Forwarder.Timeout <= 0 {
		cfg.Forwarder.Timeout = 30 * time.Second
	}
	if cfg.Forwarder.DedupTTL <= 0 {
		cfg.Forwarder.DedupTTL = 10 * time.Minute
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 4
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	cfg.Flows = mergeFlows(DefaultFlows(), cfg.Flows)
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.AI.OpenAIKey == "" && c.AI.GeminiKey == "" && !c.Runtime.Dev {
		return errors.New("ai: at least one of openai_key or gemini_key is required")
	}
	if c.AI.DefaultProvider != "openai" && c.AI.DefaultProvider != "gemini" {
		return fmt.Errorf("ai.default_provider: unknown provider %q", c.AI.DefaultProvider)
	}
	if len(c.Flows) == 0 {
		return errors.New("flows: at least one flow is required")
	}
	seen := map[string]string{}
	for i, f := range c.Flows {
		if err := f.validate(); err != nil {
			return fmt.Errorf("flows[%d]: %w", i, err)
		}
		for _, p := range []string{f.Path, f.PagePath} {
			if p == "" {
				continue
			}
			if other, ok := seen[p]; ok {
				return fmt.Errorf("flows[%d]: path %q already used by flow %q", i, p, other)
			}
			seen[p] = f.Name
		}
	}
	return nil
}
