package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"revalidation/pkg/platform/strutil"
)

// Config is the full process configuration, assembled once in main.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Evidence  EvidenceConfig
	Snapshot  SnapshotConfig
	Reconcile ReconcileConfig
	Log       LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	JWTSigningKey  string
	JWTIssuer      string
	JWTAudience    string
	AdminToken     string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	TxTimeout    time.Duration
}

// RedisConfig configures the archived-snapshot cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the outbox publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

// EvidenceConfig points at the external evidence services. An empty base URL
// selects the in-memory source.
type EvidenceConfig struct {
	BaseURL          string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type SnapshotConfig struct {
	Timeout time.Duration
}

type ReconcileConfig struct {
	Schedule string
	Timeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds the config from environment variables so main stays lean.
// A .env file in the working directory is loaded first; it never overrides
// variables already set.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	var p parser
	cfg := Config{
		Server: Server{
			Addr:           p.str("REVALIDATION_ADDR", ":8080"),
			JWTSigningKey:  p.str("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:      p.str("JWT_ISSUER", "revalidation"),
			JWTAudience:    p.str("JWT_AUDIENCE", "revalidation-api"),
			AdminToken:     p.str("ADMIN_API_TOKEN", ""),
			RequestTimeout: p.duration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:          p.str("DATABASE_URL", ""),
			MaxOpenConns: p.int("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: p.int("DATABASE_MAX_IDLE_CONNS", 5),
			TxTimeout:    p.duration("DATABASE_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     p.duration("ARCHIVE_CACHE_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:      p.list("KAFKA_BROKERS"),
			Topic:        p.str("KAFKA_TOPIC", "revalidation.submissions"),
			PollInterval: p.duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    p.int("OUTBOX_BATCH_SIZE", 100),
		},
		Evidence: EvidenceConfig{
			BaseURL:          p.str("EVIDENCE_BASE_URL", ""),
			Timeout:          p.duration("EVIDENCE_TIMEOUT", 5*time.Second),
			BreakerThreshold: p.int("EVIDENCE_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  p.duration("EVIDENCE_BREAKER_COOLDOWN", 30*time.Second),
		},
		Snapshot: SnapshotConfig{
			Timeout: p.duration("SNAPSHOT_TIMEOUT", 10*time.Second),
		},
		Reconcile: ReconcileConfig{
			Schedule: p.str("RECONCILE_SCHEDULE", "@every 15m"),
			Timeout:  p.duration("RECONCILE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  strings.ToLower(p.str("LOG_LEVEL", "info")),
			Format: strings.ToLower(p.str("LOG_FORMAT", "json")),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.Kafka.BatchSize <= 0 {
		return Config{}, fmt.Errorf("invalid OUTBOX_BATCH_SIZE: must be positive")
	}
	return cfg, nil
}

// parser keeps the first parse error so FromEnv reads as a flat list.
type parser struct {
	err error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return d
}

func (p *parser) list(key string) []string {
	return strutil.SplitList(os.Getenv(key), ",")
}
