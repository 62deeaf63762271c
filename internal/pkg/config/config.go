package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	GIS       GISConfig       `mapstructure:"gis"`
	Parking   ParkingConfig   `mapstructure:"parking"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// GISConfig configures the remote isochrone, routing, catalog and matrix services.
type GISConfig struct {
	APIKey          string `mapstructure:"api_key"`
	IsochroneURL    string `mapstructure:"isochrone_url"`
	RoutingURL      string `mapstructure:"routing_url"`
	CatalogURL      string `mapstructure:"catalog_url"`
	MatrixURL       string `mapstructure:"matrix_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	SearchTerm      string `mapstructure:"search_term"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

// Timeout is the per-call deadline for remote requests.
func (g GISConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

type ParkingConfig struct {
	DefaultWalkTime int `mapstructure:"default_walk_time"`
	MaxCandidates   int `mapstructure:"max_candidates"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 40)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "parkpass")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "parkpass")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "parking-route-queue")
	v.SetDefault("gis.api_key", "")
	v.SetDefault("gis.isochrone_url", "https://routing.api.2gis.com/isochrone/2.0.0")
	v.SetDefault("gis.routing_url", "https://routing.api.2gis.com/routing/7.0.0/global")
	v.SetDefault("gis.catalog_url", "https://catalog.api.2gis.com/3.0/items")
	v.SetDefault("gis.matrix_url", "https://routing.api.2gis.com/get_dist_matrix")
	v.SetDefault("gis.timeout_seconds", 10)
	v.SetDefault("gis.search_term", "Бесплатная парковка")
	v.SetDefault("gis.cache_ttl_seconds", 600)
	v.SetDefault("parking.default_walk_time", 900)
	v.SetDefault("parking.max_candidates", 10)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PARKPASS_GIS_API_KEY → gis.api_key
	v.SetEnvPrefix("PARKPASS")
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

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if c.GIS.APIKey == "" {
		errs = append(errs, "gis.api_key is required")
	}
	for name, u := range map[string]string{
		"gis.isochrone_url": c.GIS.IsochroneURL,
		"gis.routing_url":   c.GIS.RoutingURL,
		"gis.catalog_url":   c.GIS.CatalogURL,
		"gis.matrix_url":    c.GIS.MatrixURL,
	} {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			errs = append(errs, fmt.Sprintf("%s must be an http(s) URL, got %q", name, u))
		}
	}
	if c.GIS.TimeoutSeconds <= 0 {
		errs = append(errs, "gis.timeout_seconds must be positive")
	}
	if c.GIS.SearchTerm == "" {
		errs = append(errs, "gis.search_term is required")
	}
	if c.Parking.DefaultWalkTime < 60 || c.Parking.DefaultWalkTime > 3600 {
		errs = append(errs, fmt.Sprintf("parking.default_walk_time must be 60-3600, got %d", c.Parking.DefaultWalkTime))
	}
	if c.Parking.MaxCandidates <= 0 {
		errs = append(errs, "parking.max_candidates must be positive")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
