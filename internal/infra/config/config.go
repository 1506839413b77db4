package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Predictor PredictorConfig `yaml:"predictor"`
	Form      FormConfig      `yaml:"form"`
	Views     ViewsConfig     `yaml:"views"`
	Page      PageConfig      `yaml:"page"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the submission limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// PredictorConfig points at the remote prediction endpoint.
type PredictorConfig struct {
	Endpoint string `yaml:"endpoint"`
	// Timeout bounds a single prediction call. Zero means no client timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// FormConfig controls submission behavior.
type FormConfig struct {
	PreserveOnFailure bool `yaml:"preserveOnFailure"`
}

// ViewsConfig controls how mounted views are kept.
type ViewsConfig struct {
	IdleTTL       time.Duration `yaml:"idleTtl"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	Store         string        `yaml:"store"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig contains connection information for the snapshot store.
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// PageConfig holds presentation defaults.
type PageConfig struct {
	Title    string `yaml:"title"`
	Currency string `yaml:"currency"`
}

// Supported view store backends. The memory backend keeps views in process
// only; valkey persists snapshots so a restarted process can rebuild them.
// A valkey prefix must be owned by a single process.
const (
	StoreMemory = "memory"
	StoreValkey = "valkey"
)

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("PREDICTOR_ENDPOINT"); v != "" {
		cfg.Predictor.Endpoint = v
	}
	if v := os.Getenv("PREDICTOR_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Predictor.Timeout = parsed
		}
	}
	if v := os.Getenv("FORM_PRESERVE_ON_FAILURE"); v != "" {
		cfg.Form.PreserveOnFailure = parseBool(v)
	}
	if v := os.Getenv("VIEWS_IDLE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Views.IdleTTL = parsed
		}
	}
	if v := os.Getenv("VIEWS_SWEEP_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Views.SweepInterval = parsed
		}
	}
	if v := os.Getenv("VIEWS_STORE"); v != "" {
		cfg.Views.Store = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("VIEWS_REDIS_ADDR"); v != "" {
		cfg.Views.Redis.Addr = v
	}
	if v := os.Getenv("VIEWS_REDIS_PREFIX"); v != "" {
		cfg.Views.Redis.Prefix = v
	}
	if v := os.Getenv("PAGE_TITLE"); v != "" {
		cfg.Page.Title = v
	}
	if v := os.Getenv("PAGE_CURRENCY"); v != "" {
		cfg.Page.Currency = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 2 * time.Minute,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
			},
		},
		Predictor: PredictorConfig{
			Endpoint: "http://127.0.0.1:5328/api/predict",
		},
		Views: ViewsConfig{
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
			Store:         StoreMemory,
			Redis: RedisConfig{
				Prefix: "rentview",
			},
		},
		Page: PageConfig{
			Title:    "Dubai Rent Predictor",
			Currency: "AED",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	endpoint := strings.TrimSpace(c.Predictor.Endpoint)
	if endpoint == "" {
		return errors.New("predictor.endpoint cannot be empty")
	}
	if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("predictor.endpoint must be an absolute URL")
	}
	if c.Predictor.Timeout < 0 {
		return errors.New("predictor.timeout cannot be negative")
	}
	if c.Views.IdleTTL <= 0 {
		return errors.New("views.idleTtl must be positive")
	}
	if c.Views.SweepInterval <= 0 {
		return errors.New("views.sweepInterval must be positive")
	}
	switch c.Views.Store {
	case StoreMemory:
	case StoreValkey:
		if strings.TrimSpace(c.Views.Redis.Addr) == "" {
			return errors.New("views.redis.addr cannot be empty when the valkey store is selected")
		}
	default:
		return fmt.Errorf("views.store must be %q or %q", StoreMemory, StoreValkey)
	}
	if strings.TrimSpace(c.Page.Currency) == "" {
		return errors.New("page.currency cannot be empty")
	}
	return nil
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
