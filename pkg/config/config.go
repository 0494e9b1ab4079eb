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
	App         struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		BaseURL string `yaml:"base_url"` // public URL used in verification links
	} `yaml:"app"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Database struct {
		URL          string        `yaml:"url"`
		MaxOpenConns int           `yaml:"max_open_conns"`
		MaxIdleConns int           `yaml:"max_idle_conns"`
		QueryTimeout time.Duration `yaml:"query_timeout"`
	} `yaml:"database"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret  string        `yaml:"jwt_secret"`
		TokenTTL   time.Duration `yaml:"token_ttl"`
		BcryptCost int           `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		FromName string `yaml:"from_name"`
	} `yaml:"smtp"`
	Webhook struct {
		Secret             string        `yaml:"secret"`
		VerifySignature    bool          `yaml:"verify_signature"`
		TimestampTolerance time.Duration `yaml:"timestamp_tolerance"`
		RateLimitPerSec    float64       `yaml:"rate_limit_per_second"`
		RateLimitBurst     int           `yaml:"rate_limit_burst"`
	} `yaml:"webhook"`
	Broker struct {
		APIBaseURL     string        `yaml:"api_base_url"`
		APIKey         string        `yaml:"api_key"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MinDeposit     float64       `yaml:"min_deposit"`
	} `yaml:"broker"`
	Signals struct {
		Symbols       []string      `yaml:"symbols"`
		Timeframes    []string      `yaml:"timeframes"`
		RollingWindow int           `yaml:"rolling_window"`
		BreakEvenRate float64       `yaml:"break_even_rate"`
		EnterDelay    time.Duration `yaml:"enter_delay"`
	} `yaml:"signals"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
	Jobs struct {
		StatsRefreshCron string        `yaml:"stats_refresh_cron"`
		SettlementCron   string        `yaml:"settlement_cron"`
		SettlementGrace  time.Duration `yaml:"settlement_grace"`
	} `yaml:"jobs"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
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

// LoadWithEnv loads config from YAML and overrides secrets and endpoints
// with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("TV_WEBHOOK_SECRET"); v != "" {
		c.Webhook.Secret = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("BROKER_API_KEY"); v != "" {
		c.Broker.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitTrim(v)
	}
	if v := os.Getenv("ALLOWED_SYMBOLS"); v != "" {
		c.Signals.Symbols = splitTrim(v)
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "Trade Vision"
	}
	if c.App.Version == "" {
		c.App.Version = "1.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Database.QueryTimeout == 0 {
		c.Database.QueryTimeout = 5 * time.Second
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "tradevision"
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 5 * time.Minute
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 30 * 24 * time.Hour
	}
	if c.Webhook.TimestampTolerance == 0 {
		c.Webhook.TimestampTolerance = 10 * time.Minute
	}
	if c.Webhook.RateLimitPerSec == 0 {
		c.Webhook.RateLimitPerSec = 5
	}
	if c.Webhook.RateLimitBurst == 0 {
		c.Webhook.RateLimitBurst = 10
	}
	if c.Broker.RequestTimeout == 0 {
		c.Broker.RequestTimeout = 10 * time.Second
	}
	if c.Broker.MinDeposit == 0 {
		c.Broker.MinDeposit = 10
	}
	if len(c.Signals.Symbols) == 0 {
		c.Signals.Symbols = []string{"CADJPY", "GBPJPY", "EURUSD", "GBPUSD", "USDJPY", "EURJPY"}
	}
	if len(c.Signals.Timeframes) == 0 {
		c.Signals.Timeframes = []string{"1m", "3m", "5m", "15m", "30m", "1h", "4h", "1d"}
	}
	if c.Signals.RollingWindow == 0 {
		c.Signals.RollingWindow = 200
	}
	if c.Signals.BreakEvenRate == 0 {
		c.Signals.BreakEvenRate = 0.5405
	}
	if c.Signals.EnterDelay == 0 {
		c.Signals.EnterDelay = time.Minute
	}
	if c.Jobs.StatsRefreshCron == "" {
		c.Jobs.StatsRefreshCron = "@every 5m"
	}
	if c.Jobs.SettlementCron == "" {
		c.Jobs.SettlementCron = "@every 1m"
	}
	if c.Jobs.SettlementGrace == 0 {
		c.Jobs.SettlementGrace = 15 * time.Minute
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Signals.Symbols) == 0 {
		return fmt.Errorf("signals.symbols cannot be empty")
	}
	for _, tf := range c.Signals.Timeframes {
		if !validTimeframe(tf) {
			return fmt.Errorf("signals.timeframes: unknown timeframe %q", tf)
		}
	}
	return nil
}

func validTimeframe(tf string) bool {
	switch tf {
	case "1m", "3m", "5m", "7m", "15m", "30m", "1h", "4h", "1d":
		return true
	}
	return false
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
