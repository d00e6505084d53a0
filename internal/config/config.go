// Package config loads service configuration from defaults, an optional
// config.yaml, a local .env file and EVROUTE_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/chargepath/chargepath/internal/database"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Stations  StationsConfig  `mapstructure:"stations"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

type AppConfig struct {
	Port         int           `mapstructure:"port"`
	Env          string        `mapstructure:"env"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	LogLevel     string        `mapstructure:"log_level"`
	RequireTLS   bool          `mapstructure:"require_tls"`
}

// RoutingConfig configures the OpenRouteService client.
type RoutingConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Profile    string        `mapstructure:"profile"`
	Country    string        `mapstructure:"country"`
	Timeout    time.Duration `mapstructure:"timeout"`
	GeocodeTTL time.Duration `mapstructure:"geocode_ttl"`
	RouteTTL   time.Duration `mapstructure:"route_ttl"`
}

// StationsConfig configures the Open Charge Map client.
type StationsConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type PlannerConfig struct {
	SearchRadiusKm       float64 `mapstructure:"search_radius_km"`
	SearchLimit          int     `mapstructure:"search_limit"`
	RescueSearchRadiusKm float64 `mapstructure:"rescue_search_radius_km"`
	BaseTariffPerKWh     float64 `mapstructure:"base_tariff_per_kwh"`
	SyntheticDonors      int     `mapstructure:"synthetic_donors"`
}

// CacheConfig sizes the in-process caches. An empty ValkeyAddr disables the
// shared tier.
type CacheConfig struct {
	Capacity   int    `mapstructure:"capacity"`
	ValkeyAddr string `mapstructure:"valkey_addr"`
}

// DatabaseConfig enables the Postgres energy tag store when Enabled is set.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Pool converts to the database package's connection settings.
func (d DatabaseConfig) Pool() database.Config {
	return database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Name,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
	}
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// WorkerConfig configures the corridor cache warmer.
type WorkerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	Corridors      []string      `mapstructure:"corridors"`
	PubSubProject  string        `mapstructure:"pubsub_project"`
	PubSubSubID    string        `mapstructure:"pubsub_subscription"`
	HealthPort     int           `mapstructure:"health_port"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

// Load reads configuration. A missing .env or config.yaml is not an error.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()
	setDefaults(v, service)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// EVROUTE_ROUTING_API_KEY -> routing.api_key
	v.SetEnvPrefix("EVROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.env", "development")
	v.SetDefault("app.read_timeout", 15*time.Second)
	v.SetDefault("app.write_timeout", 30*time.Second)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.require_tls", false)

	v.SetDefault("routing.api_key", "")
	v.SetDefault("routing.base_url", "https://api.openrouteservice.org")
	v.SetDefault("routing.profile", "driving-car")
	v.SetDefault("routing.country", "")
	v.SetDefault("routing.timeout", 10*time.Second)
	v.SetDefault("routing.geocode_ttl", 24*time.Hour)
	v.SetDefault("routing.route_ttl", 6*time.Hour)

	v.SetDefault("stations.api_key", "")
	v.SetDefault("stations.base_url", "https://api.openchargemap.io")
	v.SetDefault("stations.timeout", 10*time.Second)
	v.SetDefault("stations.cache_ttl", 30*time.Minute)

	v.SetDefault("planner.search_radius_km", 30.0)
	v.SetDefault("planner.search_limit", 25)
	v.SetDefault("planner.rescue_search_radius_km", 100.0)
	v.SetDefault("planner.base_tariff_per_kwh", 12.0)
	v.SetDefault("planner.synthetic_donors", 6)

	v.SetDefault("cache.capacity", 2048)
	v.SetDefault("cache.valkey_addr", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chargepath")
	v.SetDefault("database.password", "localdev")
	v.SetDefault("database.name", "chargepath")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")

	v.SetDefault("worker.interval", time.Hour)
	v.SetDefault("worker.corridors", []string{})
	v.SetDefault("worker.pubsub_project", "")
	v.SetDefault("worker.pubsub_subscription", service+"-warmup")
	v.SetDefault("worker.health_port", 8081)
	v.SetDefault("worker.max_concurrency", 4)
}

// Validate checks that configuration values are sane. Missing provider keys
// are allowed; calls then fail with missing-credentials.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Sprintf("app.port must be 1-65535, got %d", c.App.Port))
	}
	if c.App.ReadTimeout <= 0 || c.App.WriteTimeout <= 0 {
		errs = append(errs, "app.read_timeout and app.write_timeout must be positive")
	}
	if c.Routing.BaseURL == "" {
		errs = append(errs, "routing.base_url is required")
	}
	if c.Stations.BaseURL == "" {
		errs = append(errs, "stations.base_url is required")
	}
	if c.Planner.SearchRadiusKm <= 0 {
		errs = append(errs, "planner.search_radius_km must be positive")
	}
	if c.Planner.SearchLimit <= 0 {
		errs = append(errs, "planner.search_limit must be positive")
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, "cache.capacity must be positive")
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required")
		}
	}
	if c.Worker.Interval <= 0 {
		errs = append(errs, "worker.interval must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
