// Package config loads and validates service configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Corpus, Retrieval, Docling, Postgres, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Docling   DoclingConfig   `yaml:"docling"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// CorpusConfig selects where the document corpus is loaded from at startup.
// Source is one of "file", "postgres", or "docling".
type CorpusConfig struct {
	Source string `yaml:"source"`
	// Path is the JSONL corpus file when Source is "file".
	Path string `yaml:"path"`
	// Dir is the directory of documents to convert when Source is "docling".
	Dir string `yaml:"dir"`
	// LoadTimeout bounds the whole corpus load at startup. Zero disables the
	// bound.
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// RetrievalConfig controls the BM25 retriever.
type RetrievalConfig struct {
	// TopK is the default number of results per query.
	TopK int `yaml:"topK"`
	// MaxK caps the per-request k override.
	MaxK int `yaml:"maxK"`
	// Backend selects the scoring backend: "auto", "batch", or "scalar".
	Backend string `yaml:"backend"`
	K1      float64 `yaml:"k1"`
	B       float64 `yaml:"b"`
}

// DoclingConfig holds the document-conversion server settings.
type DoclingConfig struct {
	URL                   string        `yaml:"url"`
	RequestTimeout        time.Duration `yaml:"requestTimeout"`
	ExtractTablesAsImages bool          `yaml:"extractTablesAsImages"`
	ImageResolutionScale  int           `yaml:"imageResolutionScale"`
	MaxConcurrent         int           `yaml:"maxConcurrent"`
}

// PostgresConfig holds PostgreSQL connection parameters for the corpus loader.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
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

// RedisConfig holds Redis connection and query-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds the analytics event topic settings.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	QueryEvents string   `yaml:"queryEvents"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
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

func (c *Config) validate() error {
	switch c.Corpus.Source {
	case "file", "postgres", "docling":
	default:
		return fmt.Errorf("corpus.source must be file, postgres, or docling (got %q)", c.Corpus.Source)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.topK must be positive (got %d)", c.Retrieval.TopK)
	}
	if c.Retrieval.MaxK < c.Retrieval.TopK {
		return fmt.Errorf("retrieval.maxK (%d) must be >= retrieval.topK (%d)", c.Retrieval.MaxK, c.Retrieval.TopK)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			Source:      "file",
			Path:        "corpus.jsonl",
			LoadTimeout: 5 * time.Minute,
		},
		Retrieval: RetrievalConfig{
			TopK:    4,
			MaxK:    100,
			Backend: "auto",
			K1:      1.2,
			B:       0.75,
		},
		Docling: DoclingConfig{
			URL:                   "http://localhost:8822",
			RequestTimeout:        60 * time.Second,
			ExtractTablesAsImages: true,
			ImageResolutionScale:  4,
			MaxConcurrent:         4,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "retrieval",
			User:            "retrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "documents",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     []string{"localhost:9092"},
			QueryEvents: "query-events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads BRS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BRS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BRS_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("BRS_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("BRS_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("BRS_RETRIEVAL_TOPK"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopK = k
		}
	}
	if v := os.Getenv("BRS_RETRIEVAL_BACKEND"); v != "" {
		cfg.Retrieval.Backend = v
	}
	if v := os.Getenv("BRS_DOCLING_URL"); v != "" {
		cfg.Docling.URL = v
	}
	if v := os.Getenv("BRS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("BRS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("BRS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("BRS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("BRS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("BRS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BRS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BRS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("BRS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BRS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
