package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	AI struct {
		AnthropicAPIKey  string        `yaml:"anthropic_api_key"`
		PerplexityAPIKey string        `yaml:"perplexity_api_key"`
		ClaudeModel      string        `yaml:"claude_model"`
		PerplexityModel  string        `yaml:"perplexity_model"`
		CacheTTL         time.Duration `yaml:"cache_ttl"`
		RequestTimeout   time.Duration `yaml:"request_timeout"`
		RateLimitPerHour int           `yaml:"rate_limit_per_hour"`
	} `yaml:"ai"`
	Markets struct {
		StockBaseURL  string        `yaml:"stock_base_url"`
		CryptoBaseURL string        `yaml:"crypto_base_url"`
		Timeout       time.Duration `yaml:"timeout"`
		HistoryDays   int           `yaml:"history_days"`
	} `yaml:"markets"`
	Coalescer struct {
		Window       time.Duration `yaml:"window"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
	} `yaml:"coalescer"`
	Technical struct {
		CacheTTL     time.Duration `yaml:"cache_ttl"`
		LocalEntries int           `yaml:"local_entries"`
		MaxRetries   int           `yaml:"max_retries"`
		RetryBackoff time.Duration `yaml:"retry_backoff"`
	} `yaml:"technical"`
	Quotes struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"quotes"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("PERPLEXITY_API_KEY"); v != "" {
		c.AI.PerplexityAPIKey = v
	}
	if v := os.Getenv("CLAUDE_MODEL"); v != "" {
		c.AI.ClaudeModel = v
	}
	if v := os.Getenv("PERPLEXITY_MODEL"); v != "" {
		c.AI.PerplexityModel = v
	}
	if v := os.Getenv("AI_CACHE_TTL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.AI.CacheTTL = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("AI_REQUEST_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.AI.RequestTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("CHAT_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.AI.RateLimitPerHour = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Quotes.APIKey = v
	}
	if v := os.Getenv("QUOTE_SYMBOLS"); v != "" {
		c.Quotes.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.AI.ClaudeModel == "" {
		c.AI.ClaudeModel = "claude-3-5-sonnet-20241022"
	}
	if c.AI.PerplexityModel == "" {
		c.AI.PerplexityModel = "sonar"
	}
	if c.AI.CacheTTL == 0 {
		c.AI.CacheTTL = 5 * time.Minute
	}
	if c.AI.RequestTimeout == 0 {
		c.AI.RequestTimeout = 30 * time.Second
	}
	if c.AI.RateLimitPerHour == 0 {
		c.AI.RateLimitPerHour = 20
	}
	if c.Markets.StockBaseURL == "" {
		c.Markets.StockBaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Markets.CryptoBaseURL == "" {
		c.Markets.CryptoBaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Markets.Timeout == 0 {
		c.Markets.Timeout = 10 * time.Second
	}
	if c.Markets.HistoryDays == 0 {
		c.Markets.HistoryDays = 180
	}
	if c.Coalescer.Window == 0 {
		c.Coalescer.Window = 5 * time.Second
	}
	if c.Coalescer.FetchTimeout == 0 {
		c.Coalescer.FetchTimeout = 30 * time.Second
	}
	if c.Technical.CacheTTL == 0 {
		c.Technical.CacheTTL = 15 * time.Minute
	}
	if c.Technical.LocalEntries == 0 {
		c.Technical.LocalEntries = 256
	}
	if c.Technical.MaxRetries == 0 {
		c.Technical.MaxRetries = 3
	}
	if c.Technical.RetryBackoff == 0 {
		c.Technical.RetryBackoff = time.Second
	}
	if c.Quotes.WebSocketURL == "" {
		c.Quotes.WebSocketURL = "wss://ws.finnhub.io"
	}
	if c.Quotes.ReconnectDelay == 0 {
		c.Quotes.ReconnectDelay = 5 * time.Second
	}
	if c.Quotes.PingInterval == 0 {
		c.Quotes.PingInterval = 30 * time.Second
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "finsight"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.AI.RateLimitPerHour < 0 {
		return fmt.Errorf("ai.rate_limit_per_hour must be >= 0")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	return nil
}
