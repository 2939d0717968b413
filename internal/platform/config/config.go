package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Record store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config is the full process configuration, read once at start-up.
type Config struct {
	Server   Server
	Log      Log
	Offload  Offload
	Store    Store
	Redis    RedisConfig
	Kafka    Kafka
	Provider Provider
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Log struct {
	Level      string
	GnarkLevel string
}

// Offload sizes the proving worker pool.
type Offload struct {
	Workers           int
	QueueSize         int
	CallTimeout       time.Duration
	PrecompileOnStart bool
}

type Store struct {
	Backend     string
	DatabaseURL string
}

// RedisConfig holds connection and pool settings. An empty URL means Redis is
// not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RecordTTL    time.Duration
}

// Kafka configures the audit sink. No brokers means audit events stay in
// memory.
type Kafka struct {
	Brokers     []string
	AuditTopic  string
	AuditBuffer int
}

// Provider configures the mock signer that endorses commitments.
type Provider struct {
	SigningKey string
	Issuer     string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	r := envReader{}
	cfg := Config{
		Server: Server{
			Addr:            r.str("ZKATTEST_ADDR", ":8080"),
			ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: Log{
			Level:      r.str("LOG_LEVEL", "info"),
			GnarkLevel: r.str("GNARK_LOG_LEVEL", "disabled"),
		},
		Offload: Offload{
			Workers:           r.integer("OFFLOAD_WORKERS", runtime.NumCPU()),
			QueueSize:         r.integer("OFFLOAD_QUEUE_SIZE", 64),
			CallTimeout:       r.duration("OFFLOAD_CALL_TIMEOUT", 2*time.Minute),
			PrecompileOnStart: r.boolean("PRECOMPILE_ON_START", true),
		},
		Store: Store{
			Backend:     strings.ToLower(r.str("RECORD_STORE", StoreMemory)),
			DatabaseURL: r.str("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			RecordTTL:    r.duration("REDIS_RECORD_TTL", 0),
		},
		Kafka: Kafka{
			Brokers:     r.list("KAFKA_BROKERS"),
			AuditTopic:  r.str("AUDIT_TOPIC", "zkattest.audit"),
			AuditBuffer: r.integer("AUDIT_BUFFER", 1024),
		},
		Provider: Provider{
			// Use a default for development - should be overridden in production
			SigningKey: r.str("PROVIDER_SIGNING_KEY", "dev-provider-key-change-in-production"),
			Issuer:     r.str("PROVIDER_ISSUER", "zkattest-mock-provider"),
		},
	}
	if r.err != nil {
		return Config{}, r.err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("RECORD_STORE=postgres requires DATABASE_URL")
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("RECORD_STORE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown RECORD_STORE %q", c.Store.Backend)
	}
	if c.Offload.Workers < 1 {
		return fmt.Errorf("OFFLOAD_WORKERS must be at least 1")
	}
	if c.Offload.QueueSize < 0 {
		return fmt.Errorf("OFFLOAD_QUEUE_SIZE must not be negative")
	}
	return nil
}

// envReader keeps the first parse error so FromEnv can report it once.
type envReader struct {
	err error
}

func (r *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *envReader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *envReader) list(key string) []string {
	v := r.str(key, "")
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *envReader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
