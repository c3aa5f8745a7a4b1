package config

import (
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Routing    RoutingConfig    `yaml:"routing"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Budget     BudgetConfig     `yaml:"budget"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + strconv.Itoa(d.Port) + "/" + d.Name + "?sslmode=disable"
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

// RoutingConfig holds hot-path routing defaults.
type RoutingConfig struct {
	// DefaultConfigID is the complexity routing config used when a bot has
	// no explicit assignment.
	DefaultConfigID string `yaml:"default_config_id"`
	// DefaultChainID is the fallback chain consulted for routed calls.
	DefaultChainID string `yaml:"default_chain_id"`

	DefaultTimeout          time.Duration        `yaml:"default_timeout"`
	StreamFirstChunkTimeout time.Duration        `yaml:"stream_first_chunk_timeout"`
	BotRPMLimit             int64                `yaml:"bot_rpm_limit"`
	CircuitBreaker          CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold      int           `yaml:"failure_threshold"`
	RecoveryProbeInterval time.Duration `yaml:"recovery_probe_interval"`
}

// ClassifierConfig is the global default LLM endpoint for complexity
// classification. A ComplexityRoutingConfig may override vendor/model/URL.
type ClassifierConfig struct {
	Vendor      string        `yaml:"vendor"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
}

// BudgetConfig holds default per-bot spend ceilings in USD.
type BudgetConfig struct {
	DailyLimitUSD   *float64 `yaml:"daily_limit_usd"`
	MonthlyLimitUSD *float64 `yaml:"monthly_limit_usd"`
	AlertThreshold  float64  `yaml:"alert_threshold"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "compass",
			User:            "compass",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			DB:        0,
			PoolSize:  50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		Routing: RoutingConfig{
			DefaultConfigID:         "default",
			DefaultChainID:          "default",
			DefaultTimeout:          30 * time.Second,
			StreamFirstChunkTimeout: 60 * time.Second,
			BotRPMLimit:             120,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:      5,
				RecoveryProbeInterval: 15 * time.Second,
			},
		},
		Classifier: ClassifierConfig{
			Vendor:      "deepseek",
			Model:       "deepseek-v3-250324",
			Timeout:     30 * time.Second,
			MaxTokens:   50,
			Temperature: 0,
		},
		Budget: BudgetConfig{
			AlertThreshold: 0.8,
		},
	}
}
