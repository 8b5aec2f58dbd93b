package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	// DSN is the sqlite file path or postgres connection string.
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ProviderConfig struct {
	// Enabled gates the whole pricing pipeline. When false the resolver
	// serves category fallback baskets and never touches cache or quota.
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	APIKey          string        `mapstructure:"api_key"`
	Engine          string        `mapstructure:"engine"`
	PreferredSeller string        `mapstructure:"preferred_seller"`
	NumResults      int           `mapstructure:"num_results"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type QuotaConfig struct {
	// MonthlyCeiling is the hard cap on provider calls per calendar month,
	// shared across every resolution request.
	MonthlyCeiling int64 `mapstructure:"monthly_ceiling"`
}

type RateLimitConfig struct {
	// Mode is "delay" (fixed inter-call sleep) or "redis" (shared
	// per-second window across processes).
	Mode        string        `mapstructure:"mode"`
	Delay       time.Duration `mapstructure:"delay"`
	CallsPerSec int64         `mapstructure:"calls_per_sec"`
}

type BasketConfig struct {
	// MinCoverage is the fraction of basket items that must be priced
	// before missing items are filled by averaging.
	MinCoverage float64 `mapstructure:"min_coverage"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Basket    BasketConfig    `mapstructure:"basket"`
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/grocery_cache.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("provider.enabled", false)
	v.SetDefault("provider.endpoint", "https://www.searchapi.io/api/v1/search")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.engine", "walmart_search")
	v.SetDefault("provider.preferred_seller", "Walmart.com")
	v.SetDefault("provider.num_results", 10)
	v.SetDefault("provider.timeout", 15*time.Second)
	v.SetDefault("quota.monthly_ceiling", 10000)
	v.SetDefault("ratelimit.mode", "delay")
	v.SetDefault("ratelimit.delay", 50*time.Millisecond)
	v.SetDefault("ratelimit.calls_per_sec", 20)
	v.SetDefault("basket.min_coverage", 0.75)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("GROCERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env and defaults carry the rest.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
