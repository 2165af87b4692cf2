// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Index, Search, Redis, Postgres, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// IndexConfig controls on-disk layout, barrel sizing, and I/O limits of the
// index engine.
type IndexConfig struct {
	// DataDir holds lexicon.db, forward.db, docs.db, and the barrels/
	// subdirectory.
	DataDir string `yaml:"dataDir"`
	// BarrelMaxBytes bounds the serialized size a single barrel may reach;
	// the bulk builder picks the partition width from it.
	BarrelMaxBytes int64 `yaml:"barrelMaxBytes"`
	// ReadRetryAttempts bounds barrel read retries on transient I/O errors.
	ReadRetryAttempts int `yaml:"readRetryAttempts"`
	// ReadTimeout bounds a single barrel load.
	ReadTimeout time.Duration `yaml:"readTimeout"`
	// RankAutocomplete orders autocomplete results by descending document
	// frequency instead of lexicographically (lexicographic tiebreak).
	RankAutocomplete bool `yaml:"rankAutocomplete"`
}

// SearchConfig controls query execution limits and the ranking formula
// constants. The exact weights are deliberately configurable.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`

	// Field weights applied to per-field term frequencies.
	TitleWeight    float64 `yaml:"titleWeight"`
	AuthorsWeight  float64 `yaml:"authorsWeight"`
	AbstractWeight float64 `yaml:"abstractWeight"`

	// CoverageExponent scales the multiplier 2^(exp * matched/|query|)
	// awarded to documents matching more of the query terms.
	CoverageExponent float64 `yaml:"coverageExponent"`

	// Proximity bonus parameters: documents whose query terms fall within
	// ProximityWindow positions of each other get a multiplicative boost
	// of 1 + ProximityBoost * exp(-span/ProximityDecay).
	ProximityWindow  int     `yaml:"proximityWindow"`
	ProximityBoost   float64 `yaml:"proximityBoost"`
	ProximityDecay   float64 `yaml:"proximityDecay"`
	MaxProximityDocs int     `yaml:"maxProximityDocs"`
}

// RedisConfig holds the query-cache connection parameters. An empty Addr
// disables caching.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// PostgresConfig holds the optional corpus-source connection parameters
// used by the bulk builder.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds the analytics event broker settings. Empty Brokers
// disables event publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// AnalyticsConfig controls the search-event collector.
type AnalyticsConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"bufferSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a YAML config file (if provided) and applies DSA_*
// environment-variable overrides. Missing values fall back to defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in defaults without reading any file. Intended
// for tests and embedded use.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Index: IndexConfig{
			DataDir:           "data/index",
			BarrelMaxBytes:    16 << 20,
			ReadRetryAttempts: 3,
			ReadTimeout:       5 * time.Second,
			RankAutocomplete:  false,
		},
		Search: SearchConfig{
			DefaultLimit:     10,
			MaxResults:       100,
			TitleWeight:      3.0,
			AuthorsWeight:    2.0,
			AbstractWeight:   1.0,
			CoverageExponent: 2.0,
			ProximityWindow:  50,
			ProximityBoost:   0.5,
			ProximityDecay:   10.0,
			MaxProximityDocs: 50,
		},
		Redis: RedisConfig{
			Addr:     "",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "papers",
			User:            "papers",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: nil,
			Topic:   "search-events",
		},
		Analytics: AnalyticsConfig{
			Enabled:    false,
			BufferSize: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func (c *Config) validate() error {
	if c.Index.BarrelMaxBytes <= 0 {
		return fmt.Errorf("%s: index.barrelMaxBytes must be positive", "config")
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults <= 0 {
		return fmt.Errorf("%s: search limits must be positive", "config")
	}
	if c.Search.DefaultLimit > c.Search.MaxResults {
		c.Search.DefaultLimit = c.Search.MaxResults
	}
	return nil
}

// applyEnvOverrides reads DSA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DSA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DSA_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("DSA_INDEX_BARREL_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Index.BarrelMaxBytes = n
		}
	}
	if v := os.Getenv("DSA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DSA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DSA_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DSA_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DSA_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DSA_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DSA_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DSA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DSA_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("DSA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DSA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
