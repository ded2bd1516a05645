// Package config loads the YAML configuration, applies defaults and validates it
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server" jsonschema:"description=HTTP server configuration"`
	Database   DatabaseConfig   `yaml:"database" json:"database" jsonschema:"description=Content store configuration"`
	Redis      RedisConfig      `yaml:"redis" json:"redis" jsonschema:"description=Redis connection shared by cache and queue"`
	Cache      CacheConfig      `yaml:"cache" json:"cache" jsonschema:"description=Cache layer configuration"`
	Queue      QueueConfig      `yaml:"queue" json:"queue" jsonschema:"description=Job queue configuration"`
	Pipeline   PipelineConfig   `yaml:"pipeline" json:"pipeline" jsonschema:"description=Content pipeline configuration"`
	Schedule   ScheduleConfig   `yaml:"schedule" json:"schedule" jsonschema:"description=Feed fetch schedule"`
	RSS        RSSConfig        `yaml:"rss" json:"rss" jsonschema:"description=RSS client configuration"`
	Quotes     QuotesConfig     `yaml:"quotes" json:"quotes" jsonschema:"description=Quote API client configuration"`
	LLM        LLMConfig        `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for summarization"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Article text extraction for short items"`
}

// ServerConfig holds http server settings
type ServerConfig struct {
	Listen    string        `yaml:"listen" json:"listen" jsonschema:"required,default=:8080,description=HTTP server listen address"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	BaseURL   string        `yaml:"base_url" json:"base_url" jsonschema:"default=http://localhost:8080,description=Base URL used for links in the RSS output"`
	FeedTitle string        `yaml:"feed_title" json:"feed_title" jsonschema:"default=tickerz,description=Title of the RSS output"`
}

// DatabaseConfig selects and configures the content store
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" json:"driver" jsonschema:"required,enum=sqlite,enum=postgres,default=sqlite,description=Content store backend"`
	DSN             string        `yaml:"dsn" json:"dsn" jsonschema:"required,default=file:tickerz.db?mode=rwc&_txlock=immediate,description=Database connection string"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,minimum=1,description=Maximum number of open connections"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,minimum=0,description=Maximum number of idle connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=1h,description=Connection maximum lifetime"`
}

// RedisConfig is used by redis cache and redis queue backends
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr" jsonschema:"default=localhost:6379,description=Redis address"`
	Password string `yaml:"password" json:"password" jsonschema:"description=Redis password (can use environment variable)"`
	DB       int    `yaml:"db" json:"db" jsonschema:"default=0,minimum=0,description=Redis database number"`
	Prefix   string `yaml:"prefix" json:"prefix" jsonschema:"default=tickerz:,description=Key prefix for cache and queue keys"`
}

// CacheConfig selects the cache backend
type CacheConfig struct {
	Backend  string        `yaml:"backend" json:"backend" jsonschema:"required,enum=memory,enum=redis,enum=tiered,default=memory,description=Cache backend"`
	LocalTTL time.Duration `yaml:"local_ttl" json:"local_ttl" jsonschema:"default=30s,description=TTL of the in-process layer of the tiered cache"`
}

// QueueConfig configures the job queue and its workers
type QueueConfig struct {
	Backend      string        `yaml:"backend" json:"backend" jsonschema:"required,enum=memory,enum=redis,default=memory,description=Queue broker"`
	Concurrency  int           `yaml:"concurrency" json:"concurrency" jsonschema:"default=3,minimum=1,description=Workers per queue"`
	Attempts     int           `yaml:"attempts" json:"attempts" jsonschema:"default=3,minimum=1,description=Attempts per job before it fails"`
	BackoffType  string        `yaml:"backoff_type" json:"backoff_type" jsonschema:"enum=exponential,enum=fixed,default=exponential,description=Retry backoff type"`
	BackoffDelay time.Duration `yaml:"backoff_delay" json:"backoff_delay" jsonschema:"default=2s,description=Base retry delay"`
	LeaseTime    time.Duration `yaml:"lease_time" json:"lease_time" jsonschema:"default=5m,description=How long a worker holds a job before it is considered stalled"`
	KeepCount    int           `yaml:"keep_count" json:"keep_count" jsonschema:"default=100,minimum=0,description=Completed jobs kept per queue"`
	KeepAge      time.Duration `yaml:"keep_age" json:"keep_age" jsonschema:"default=1h,description=How long completed jobs are kept"`
}

// PipelineConfig holds the content pipeline settings
type PipelineConfig struct {
	FeedTTL      time.Duration `yaml:"feed_ttl" json:"feed_ttl" jsonschema:"default=1h,description=How long a fetched feed is served from cache"`
	SummaryTTL   time.Duration `yaml:"summary_ttl" json:"summary_ttl" jsonschema:"default=24h,description=How long a summary is cached"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout" jsonschema:"default=10s,description=Feed fetch timeout"`
}

// ScheduleConfig controls when feeds are fetched
type ScheduleConfig struct {
	Cron       string `yaml:"cron" json:"cron" jsonschema:"default=*/5 * * * *,description=Cron expression for checking due feeds"`
	RunOnStart bool   `yaml:"run_on_start" json:"run_on_start" jsonschema:"default=false,description=Check due feeds right after start"`
	Disabled   bool   `yaml:"disabled" json:"disabled" jsonschema:"default=false,description=Disable scheduled fetches while workers keep running"`
}

// RSSConfig holds RSS client settings
type RSSConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Request timeout"`
	MaxRedirects int           `yaml:"max_redirects" json:"max_redirects" jsonschema:"default=5,minimum=1,description=Maximum redirects followed"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=tickerz/1.0,description=User agent for feed requests"`
}

// QuotesConfig holds quote API settings
type QuotesConfig struct {
	APIKey   string        `yaml:"api_key" json:"api_key" jsonschema:"description=Quote API key (can use environment variable)"`
	BaseURL  string        `yaml:"base_url" json:"base_url" jsonschema:"default=https://www.alphavantage.co/query,description=Quote API endpoint"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Request timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl" jsonschema:"default=5m,description=How long responses are cached"`
}

// LLMConfig holds LLM configuration for summarization
type LLMConfig struct {
	Provider     string        `yaml:"provider" json:"provider" jsonschema:"required,enum=openai,enum=gemini,default=openai,description=Summarization provider"`
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=Custom API endpoint (OpenAI-compatible for openai provider)"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string        `yaml:"model" json:"model" jsonschema:"required,description=Model name (e.g. gpt-4o-mini or gemini-2.0-flash)"`
	Temperature  float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,minimum=0,maximum=2,description=Temperature for response generation"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=500,minimum=1,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt for the LLM (optional)"`
}

// ExtractionConfig holds content extraction settings
type ExtractionConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable content extraction"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per article"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=tickerz/1.0,description=User agent for HTTP requests"`
	MinTextLength int           `yaml:"min_text_length" json:"min_text_length" jsonschema:"default=200,minimum=0,description=Items with shorter text are enriched with the extracted article"`
	MaxLength     int           `yaml:"max_length" json:"max_length" jsonschema:"default=20000,minimum=0,description=Maximum characters of extracted text (0 means unlimited)"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// schema check is supplementary, mismatches are only reported
	if err := Verify(&cfg); err != nil {
		lgr.Printf("[WARN] schema validation failed: %v", err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	setDefault(&c.Server.Listen, ":8080")
	setDefault(&c.Server.Timeout, 30*time.Second)
	setDefault(&c.Server.BaseURL, "http://localhost:8080")
	setDefault(&c.Server.FeedTitle, "tickerz")

	setDefault(&c.Database.Driver, "sqlite")
	if c.Database.Driver == "sqlite" {
		setDefault(&c.Database.DSN, "file:tickerz.db?mode=rwc&_txlock=immediate")
	}
	setDefault(&c.Database.MaxOpenConns, 10)
	setDefault(&c.Database.MaxIdleConns, 5)
	setDefault(&c.Database.ConnMaxLifetime, time.Hour)

	setDefault(&c.Redis.Addr, "localhost:6379")
	setDefault(&c.Redis.Prefix, "tickerz:")

	setDefault(&c.Cache.Backend, "memory")
	setDefault(&c.Cache.LocalTTL, 30*time.Second)

	setDefault(&c.Queue.Backend, "memory")
	setDefault(&c.Queue.Concurrency, 3)
	setDefault(&c.Queue.Attempts, 3)
	setDefault(&c.Queue.BackoffType, "exponential")
	setDefault(&c.Queue.BackoffDelay, 2*time.Second)
	setDefault(&c.Queue.LeaseTime, 5*time.Minute)
	setDefault(&c.Queue.KeepCount, 100)
	setDefault(&c.Queue.KeepAge, time.Hour)

	setDefault(&c.Pipeline.FeedTTL, time.Hour)
	setDefault(&c.Pipeline.SummaryTTL, 24*time.Hour)
	setDefault(&c.Pipeline.FetchTimeout, 10*time.Second)

	setDefault(&c.Schedule.Cron, "*/5 * * * *")

	setDefault(&c.RSS.Timeout, 10*time.Second)
	setDefault(&c.RSS.MaxRedirects, 5)
	setDefault(&c.RSS.UserAgent, "tickerz/1.0")

	setDefault(&c.Quotes.BaseURL, "https://www.alphavantage.co/query")
	setDefault(&c.Quotes.Timeout, 10*time.Second)
	setDefault(&c.Quotes.CacheTTL, 5*time.Minute)

	setDefault(&c.LLM.Provider, "openai")
	setDefault(&c.LLM.Temperature, 0.3)
	setDefault(&c.LLM.MaxTokens, 500)
	setDefault(&c.LLM.Timeout, 30*time.Second)

	setDefault(&c.Extraction.Timeout, 30*time.Second)
	setDefault(&c.Extraction.UserAgent, "tickerz/1.0")
	setDefault(&c.Extraction.MinTextLength, 200)
	setDefault(&c.Extraction.MaxLength, 20000)
}

// setDefault sets v to def if v is zero
func setDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for %s", cfg.Database.Driver)
	}

	switch cfg.Cache.Backend {
	case "memory", "redis", "tiered":
	default:
		return fmt.Errorf("cache.backend must be memory, redis or tiered, got %q", cfg.Cache.Backend)
	}
	switch cfg.Queue.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("queue.backend must be memory or redis, got %q", cfg.Queue.Backend)
	}
	if cfg.Queue.BackoffType != "exponential" && cfg.Queue.BackoffType != "fixed" {
		return fmt.Errorf("queue.backoff_type must be exponential or fixed, got %q", cfg.Queue.BackoffType)
	}
	if cfg.Queue.Concurrency < 1 {
		return fmt.Errorf("queue.concurrency must be at least 1")
	}
	if cfg.Queue.Attempts < 1 {
		return fmt.Errorf("queue.attempts must be at least 1")
	}

	// validate LLM config
	if cfg.LLM.Provider != "openai" && cfg.LLM.Provider != "gemini" {
		return fmt.Errorf("llm.provider must be openai or gemini, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}

	if cfg.Extraction.Enabled && cfg.Extraction.Timeout < time.Second {
		return fmt.Errorf("extraction timeout must be at least 1 second")
	}
	if cfg.Extraction.MinTextLength < 0 {
		return fmt.Errorf("extraction.min_text_length must be non-negative")
	}

	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	return nil
}

// UsesRedis reports whether any backend needs the redis connection
func (c *Config) UsesRedis() bool {
	return c.Cache.Backend == "redis" || c.Cache.Backend == "tiered" || c.Queue.Backend == "redis"
}
