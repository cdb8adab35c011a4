// Package config provides configuration management for betevolve.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. The top-level evolution keys
// are the recognized options of a save and are exported with it.
type Config struct {
	App AppConfig `mapstructure:"app" yaml:"app"`

	Alpha                 float64 `mapstructure:"alpha" yaml:"alpha"`
	MinimumStake          float64 `mapstructure:"minimum_stake" yaml:"minimum_stake"`
	NumberOfNodes         int     `mapstructure:"number_of_nodes" yaml:"number_of_nodes"`
	SampleSize            int     `mapstructure:"sample_size" yaml:"sample_size"`
	Database              string  `mapstructure:"database" yaml:"database"`
	CrossoverMethod       string  `mapstructure:"crossover_method" yaml:"crossover_method"`
	ParentSelectionMethod string  `mapstructure:"parent_selection_method" yaml:"parent_selection_method"`
	TournamentSize        int     `mapstructure:"tournament_size" yaml:"tournament_size"`
	MutationMethod        string  `mapstructure:"mutation_method" yaml:"mutation_method"`
	MutationProbability   float64 `mapstructure:"mutation_probability" yaml:"mutation_probability"`

	Workers        int    `mapstructure:"workers" yaml:"workers"`
	Seed           int64  `mapstructure:"seed" yaml:"seed"`
	MaxGenerations int    `mapstructure:"max_generations" yaml:"max_generations"`
	SavesDir       string `mapstructure:"saves_dir" yaml:"saves_dir"`

	Postgres   PostgresConfig   `mapstructure:"postgres" yaml:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	NATS       NATSConfig       `mapstructure:"nats" yaml:"nats"`
	Download   DownloadConfig   `mapstructure:"download" yaml:"download"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`
	Alerts     AlertsConfig     `mapstructure:"alerts" yaml:"alerts"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name      string `mapstructure:"name" yaml:"name"`
	Version   string `mapstructure:"version" yaml:"version"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"` // "json" or "console"
}

// PostgresConfig contains pool settings used when Database is a Postgres DSN
type PostgresConfig struct {
	PoolSize int `mapstructure:"pool_size" yaml:"pool_size"`
}

// RedisConfig contains settings of the latest-generation mirror
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Host      string `mapstructure:"host" yaml:"host"`
	Port      int    `mapstructure:"port" yaml:"port"`
	Password  string `mapstructure:"password" yaml:"-"`
	DB        int    `mapstructure:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
	TTL       int    `mapstructure:"ttl" yaml:"ttl"` // seconds, 0 keeps keys forever
}

// NATSConfig contains settings of the generation event publisher
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// DownloadConfig contains settings of the match CSV downloader
type DownloadConfig struct {
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Timeout           int     `mapstructure:"timeout" yaml:"timeout"` // seconds
	MaxFailures       uint32  `mapstructure:"max_failures" yaml:"max_failures"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port" yaml:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics" yaml:"enable_metrics"`
}

// AlertsConfig contains the thresholds of the run health alerts
type AlertsConfig struct {
	Enabled               bool    `mapstructure:"enabled" yaml:"enabled"`
	StagnationGenerations int     `mapstructure:"stagnation_generations" yaml:"stagnation_generations"`
	MinStdDev             float64 `mapstructure:"min_stddev" yaml:"min_stddev"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// BETEVOLVE_SAMPLE_SIZE, BETEVOLVE_REDIS_HOST, ...
	v.SetEnvPrefix("BETEVOLVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "betevolve")
	v.SetDefault("app.version", Version)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")

	// Evolution defaults
	v.SetDefault("alpha", 0.5)
	v.SetDefault("minimum_stake", 5.0)
	v.SetDefault("number_of_nodes", 50)
	v.SetDefault("sample_size", 500)
	v.SetDefault("database", "data")
	v.SetDefault("crossover_method", "blx")
	v.SetDefault("parent_selection_method", "tournament")
	v.SetDefault("tournament_size", 4)
	v.SetDefault("mutation_method", "uniform")
	v.SetDefault("mutation_probability", 0.05)

	v.SetDefault("workers", 0)
	v.SetDefault("seed", 0)
	v.SetDefault("max_generations", 0)
	v.SetDefault("saves_dir", "saves")

	v.SetDefault("postgres.pool_size", 10)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", RedisPort)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "betevolve:")
	v.SetDefault("redis.ttl", 0)

	// NATS defaults
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", fmt.Sprintf("nats://localhost:%d", NATSPort))
	v.SetDefault("nats.subject", "betevolve.generations")

	// Download defaults
	v.SetDefault("download.base_url", "https://www.football-data.co.uk/mmz4281")
	v.SetDefault("download.requests_per_second", 1.0)
	v.SetDefault("download.timeout", 30)
	v.SetDefault("download.max_failures", 3)

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus_port", MetricsPort)
	v.SetDefault("monitoring.enable_metrics", false)

	// Alert defaults
	v.SetDefault("alerts.enabled", true)
	v.SetDefault("alerts.stagnation_generations", 25)
	v.SetDefault("alerts.min_stddev", 0.01)
}

// UsesPostgres reports whether Database is a Postgres connection string rather
// than a CSV file or directory
func (c *Config) UsesPostgres() bool {
	db := strings.ToLower(c.Database)
	return strings.HasPrefix(db, "postgres://") || strings.HasPrefix(db, "postgresql://")
}

// SaveDir returns the directory holding the snapshots of a save
func (c *Config) SaveDir(save string) string {
	return filepath.Join(c.SavesDir, save)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetTTL returns the mirror key TTL as time.Duration
func (c *RedisConfig) GetTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// GetTimeout returns the download timeout as time.Duration
func (c *DownloadConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
