// Package config loads service configuration from an optional YAML file with
// environment variable overrides, so main stays lean and containers can tune
// everything without a file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the vigil server.
type Config struct {
	Addr      string          `yaml:"addr"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Evidence  EvidenceConfig  `yaml:"evidence"`
	Auth      AuthConfig      `yaml:"auth"`
	Integrity IntegrityConfig `yaml:"integrity"`
	Observer  ObserverConfig  `yaml:"observability"`
}

// DatabaseConfig configures the Postgres integrity store. An empty DSN keeps
// the in-memory store.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig configures the optional live session-state mirror.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig configures the optional violation fan-out publisher.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// EvidenceConfig configures the remote evidence sink client.
type EvidenceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig configures session join tokens and the assessment access code.
// AccessCodeHash is the bcrypt hash candidates are checked against; the
// plaintext AccessCode field exists for development and is hashed at load.
type AuthConfig struct {
	JWTSigningKey  string        `yaml:"jwt_signing_key"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	AccessCode     string        `yaml:"access_code"`
	AccessCodeHash string        `yaml:"access_code_hash"`
}

// IntegrityConfig configures the durable ledger.
type IntegrityConfig struct {
	SnapshotDir string `yaml:"snapshot_dir"`
}

// ObserverConfig configures tracing.
type ObserverConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Addr: ":8080",
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "vigil.violations",
		},
		Evidence: EvidenceConfig{
			Timeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 4 * time.Hour,
		},
		Integrity: IntegrityConfig{
			SnapshotDir: "snapshots",
		},
		Observer: ObserverConfig{
			ServiceName: "vigil",
			SampleRatio: 1,
		},
	}
}

// Load reads the YAML file at path (when non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Auth.JWTSigningKey == "" {
		// Development default; override in any real deployment.
		cfg.Auth.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VIGIL_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("VIGIL_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("VIGIL_REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("VIGIL_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitCSV(v)
	}
	if v := os.Getenv("VIGIL_KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("VIGIL_EVIDENCE_URL"); v != "" {
		c.Evidence.BaseURL = v
	}
	if v := os.Getenv("VIGIL_JWT_SIGNING_KEY"); v != "" {
		c.Auth.JWTSigningKey = v
	}
	if v := os.Getenv("VIGIL_ACCESS_CODE"); v != "" {
		c.Auth.AccessCode = v
	}
	if v := os.Getenv("VIGIL_ACCESS_CODE_HASH"); v != "" {
		c.Auth.AccessCodeHash = v
	}
	if v := os.Getenv("VIGIL_SNAPSHOT_DIR"); v != "" {
		c.Integrity.SnapshotDir = v
	}
	if v := os.Getenv("VIGIL_OTLP_ENDPOINT"); v != "" {
		c.Observer.OTLPEndpoint = v
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
