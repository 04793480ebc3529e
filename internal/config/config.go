// Package config loads service configuration from environment variables and
// optional config files via viper.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the host conduit service.
type Config struct {
	Environment string `mapstructure:"environment"`

	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Hosts     HostsConfig     `mapstructure:"hosts"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type CatalogConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Offline  bool          `mapstructure:"offline"`
}

type InventoryConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// HostsConfig tunes host fact normalization.
type HostsConfig struct {
	// HostLastSyncThreshold bounds how old a subscription-manager sync
	// timestamp may be before its facts are excluded from normalization.
	HostLastSyncThreshold time.Duration `mapstructure:"host_last_sync_threshold"`

	// CullingOffset bounds how far past its stale timestamp a host may be
	// before inbound events for it are dropped entirely.
	CullingOffset time.Duration `mapstructure:"culling_offset"`

	// UseCPUSystemFactsForAllProducts applies system-profile threads-per-core
	// to every product, not just those that opt in.
	UseCPUSystemFactsForAllProducts bool `mapstructure:"use_cpu_system_facts_for_all_products"`
}

type IngestConfig struct {
	Lanes int `mapstructure:"lanes"`
}

type RelayConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BatchSize    int           `mapstructure:"batch_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type TelemetryConfig struct {
	TracingEnabled   bool    `mapstructure:"tracing_enabled"`
	ServiceName      string  `mapstructure:"service_name"`
	ServiceVersion   string  `mapstructure:"service_version"`
	ExporterEndpoint string  `mapstructure:"exporter_endpoint"`
	ExporterProtocol string  `mapstructure:"exporter_protocol"`
	SamplingRatio    float64 `mapstructure:"sampling_ratio"`
}

// IsCloud reports whether the service runs in a managed environment.
func (c Config) IsCloud() bool {
	return c.Environment == "production" || c.Environment == "stage"
}

// Load reads configuration from SWATCH_* environment variables and an
// optional config file pointed at by SWATCH_CONFIG_FILE.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("swatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Catalog.Timeout <= 0 {
		c.Catalog.Timeout = 5 * time.Second
	}
	if c.Inventory.Timeout <= 0 {
		c.Inventory.Timeout = 5 * time.Second
	}
	if c.Hosts.HostLastSyncThreshold <= 0 {
		c.Hosts.HostLastSyncThreshold = 24 * time.Hour
	}
	if c.Hosts.CullingOffset <= 0 {
		c.Hosts.CullingOffset = 48 * time.Hour
	}
	if c.Ingest.Lanes <= 0 {
		c.Ingest.Lanes = 8
	}
	if c.Relay.BatchSize <= 0 {
		c.Relay.BatchSize = 100
	}
	if c.Relay.PollInterval <= 0 {
		c.Relay.PollInterval = 2 * time.Second
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "swatch-host-conduit"
	}
	if c.Telemetry.SamplingRatio <= 0 {
		c.Telemetry.SamplingRatio = 0.1
	}
	return c
}
