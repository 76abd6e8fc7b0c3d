// Package config loads runtime settings from the environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Storage
	DatabaseURL string

	// LLM settings
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string // OpenAI-compatible provider, used only without a Gemini key
	OpenAIBaseURL string
	OpenAIModel   string

	// Telegram settings
	TelegramToken string
	OpsChatIDs    []string // operational channel, always notified
	PublicChatIDs []string // public channel, digest only

	// Known-URL cache
	RedisURL    string
	KnownURLTTL time.Duration

	// Scraping
	SourcesConfigPath string
	FetchConcurrency  int
	FetchTimeout      time.Duration
	ScrapeBatchSize   int
	ScrapeBatchPause  time.Duration

	// Intelligence stage
	LLMRequestsPerMinute     int
	LLMFilterBatch           int
	LLMDigestMaxArticles     int
	InsufficientMinRelevant  int // fewer relevant than this...
	InsufficientMinSubmitted int // ...out of more submitted than this aborts the run

	// App settings
	MonitoringEnabled bool
	MonitoringPort    string
	Debug             bool
}

const DefaultSourcesPath = "configs/sources.yaml"

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-flash-latest")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("channel_chat_id", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("known_url_ttl", 72*time.Hour)
	v.SetDefault("sources_config", DefaultSourcesPath)
	v.SetDefault("fetch_concurrency", 5)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("scrape_batch_size", 10)
	v.SetDefault("scrape_batch_pause", time.Second)
	v.SetDefault("llm_requests_per_minute", 15)
	v.SetDefault("llm_filter_batch", 50)
	v.SetDefault("llm_digest_max_articles", 50)
	v.SetDefault("insufficient_min_relevant", 3)
	v.SetDefault("insufficient_min_submitted", 5)
	v.SetDefault("enable_http_monitoring", false)
	v.SetDefault("monitoring_port", "8080")
	v.SetDefault("debug", false)
}

// Load reads configuration from the environment. When AZNEWS_CONFIG points
// to a YAML file its values are used as a base and the environment wins.
func Load() (*Config, error) {
	cfg, err := load(viper.New())
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadStorage is Load for commands that only need the database.
func LoadStorage() (*Config, error) {
	cfg, err := load(viper.New())
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

// SourcesPath returns the configured sources file without validating
// anything else.
func SourcesPath() string {
	cfg, err := load(viper.New())
	if err != nil || cfg.SourcesConfigPath == "" {
		return DefaultSourcesPath
	}
	return cfg.SourcesConfigPath
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("aznews_config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		DatabaseURL:              v.GetString("database_url"),
		GeminiAPIKey:             v.GetString("gemini_api_key"),
		GeminiModel:              v.GetString("gemini_model"),
		OpenAIAPIKey:             v.GetString("openai_api_key"),
		OpenAIBaseURL:            v.GetString("openai_base_url"),
		OpenAIModel:              v.GetString("openai_model"),
		TelegramToken:            v.GetString("telegram_bot_token"),
		OpsChatIDs:               SplitList(v.GetString("telegram_chat_id")),
		PublicChatIDs:            SplitList(v.GetString("channel_chat_id")),
		RedisURL:                 v.GetString("redis_url"),
		KnownURLTTL:              v.GetDuration("known_url_ttl"),
		SourcesConfigPath:        v.GetString("sources_config"),
		FetchConcurrency:         v.GetInt("fetch_concurrency"),
		FetchTimeout:             v.GetDuration("fetch_timeout"),
		ScrapeBatchSize:          v.GetInt("scrape_batch_size"),
		ScrapeBatchPause:         v.GetDuration("scrape_batch_pause"),
		LLMRequestsPerMinute:     v.GetInt("llm_requests_per_minute"),
		LLMFilterBatch:           v.GetInt("llm_filter_batch"),
		LLMDigestMaxArticles:     v.GetInt("llm_digest_max_articles"),
		InsufficientMinRelevant:  v.GetInt("insufficient_min_relevant"),
		InsufficientMinSubmitted: v.GetInt("insufficient_min_submitted"),
		MonitoringEnabled:        v.GetBool("enable_http_monitoring"),
		MonitoringPort:           v.GetString("monitoring_port"),
		Debug:                    v.GetBool("debug"),
	}

	return cfg, nil
}

// SplitList parses a comma separated recipient list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LLMEnabled reports whether any model provider is configured.
func (c *Config) LLMEnabled() bool {
	return c.GeminiAPIKey != "" || c.OpenAIAPIKey != ""
}

// TelegramEnabled reports whether the bot can send anything at all.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && (len(c.OpsChatIDs) > 0 || len(c.PublicChatIDs) > 0)
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.ScrapeBatchSize <= 0 {
		return fmt.Errorf("SCRAPE_BATCH_SIZE must be positive")
	}
	if c.ScrapeBatchPause < 0 {
		return fmt.Errorf("SCRAPE_BATCH_PAUSE must not be negative")
	}
	if c.LLMRequestsPerMinute <= 0 {
		return fmt.Errorf("LLM_REQUESTS_PER_MINUTE must be positive")
	}
	if c.LLMFilterBatch <= 0 || c.LLMDigestMaxArticles <= 0 {
		return fmt.Errorf("LLM_FILTER_BATCH and LLM_DIGEST_MAX_ARTICLES must be positive")
	}
	if c.InsufficientMinRelevant < 0 || c.InsufficientMinSubmitted < 0 {
		return fmt.Errorf("INSUFFICIENT_MIN_RELEVANT and INSUFFICIENT_MIN_SUBMITTED must not be negative")
	}
	if c.TelegramToken != "" && len(c.OpsChatIDs) == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}
