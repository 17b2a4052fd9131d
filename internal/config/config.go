package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Collector CollectorConfig `mapstructure:"collector"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address is the host:port the server binds to.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisConfig controls the price cache connection.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// Address is the host:port of the Redis server.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CollectorConfig controls the upstream market data clients.
type CollectorConfig struct {
	CoinGeckoBaseURL string        `mapstructure:"coingecko_base_url"`
	YahooBaseURL     string        `mapstructure:"yahoo_base_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	QuoteCacheTTL    time.Duration `mapstructure:"quote_cache_ttl"`
	HistoryCacheTTL  time.Duration `mapstructure:"history_cache_ttl"`
	UserAgent        string        `mapstructure:"user_agent"`
}

// AnalysisConfig carries the tunables of the analytics engine.
type AnalysisConfig struct {
	RiskFreeRate      float64 `mapstructure:"risk_free_rate"`
	DefaultTimeframe  string  `mapstructure:"default_timeframe"`
	CorrelationWindow int     `mapstructure:"correlation_window"`
	VolatilityWindow  int     `mapstructure:"volatility_window"`
	RSIPeriod         int     `mapstructure:"rsi_period"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the environment, applying defaults for
// anything unset. A .env file in the working directory is honored when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Collector.RequestTimeout <= 0 {
		return fmt.Errorf("collector request timeout must be positive")
	}
	if c.Analysis.CorrelationWindow < 2 {
		return fmt.Errorf("correlation window must be at least 2")
	}
	if c.Analysis.RSIPeriod < 2 {
		return fmt.Errorf("rsi period must be at least 2")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)

	v.SetDefault("collector.coingecko_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("collector.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("collector.request_timeout", "15s")
	v.SetDefault("collector.quote_cache_ttl", "1m")
	v.SetDefault("collector.history_cache_ttl", "15m")
	v.SetDefault("collector.user_agent", "cryptoanalyzer/1.0")

	v.SetDefault("analysis.risk_free_rate", 0.02)
	v.SetDefault("analysis.default_timeframe", "30d")
	v.SetDefault("analysis.correlation_window", 30)
	v.SetDefault("analysis.volatility_window", 30)
	v.SetDefault("analysis.rsi_period", 14)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
