// Package config loads service configuration from the environment.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Shipping ShippingConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Addr string
	Mode string
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	DSN    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// CountryCacheTTLSeconds bounds staleness of the public country list.
	CountryCacheTTLSeconds int
}

type ShippingConfig struct {
	// DefaultCurrency is used when a quote cannot resolve a template currency,
	// e.g. a free-shipping country with no rate template.
	DefaultCurrency string
}

type MetricsConfig struct {
	Enabled    bool
	GormPlugin bool
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("RATESHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "rateshop.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.country_cache_ttl_seconds", 300)
	v.SetDefault("shipping.default_currency", "USD")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.gorm_plugin", false)

	cfg := Config{
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
			Mode: v.GetString("server.mode"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database.driver")),
			DSN:    v.GetString("database.dsn"),
		},
		Redis: RedisConfig{
			Addr:                   v.GetString("redis.addr"),
			Password:               v.GetString("redis.password"),
			DB:                     v.GetInt("redis.db"),
			CountryCacheTTLSeconds: v.GetInt("redis.country_cache_ttl_seconds"),
		},
		Shipping: ShippingConfig{
			DefaultCurrency: strings.ToUpper(v.GetString("shipping.default_currency")),
		},
		Metrics: MetricsConfig{
			Enabled:    v.GetBool("metrics.enabled"),
			GormPlugin: v.GetBool("metrics.gorm_plugin"),
		},
	}
	return cfg, nil
}
