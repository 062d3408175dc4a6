// Package config loads service configuration from the environment. A .env
// file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Overlap modes for the duty conflict checker.
const (
	OverlapSymmetric = "symmetric"
	OverlapLegacy    = "legacy"
)

// Server captures process-level configuration.
type Server struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Database      Database
	Redis         RedisConfig
	Kafka         Kafka
	SMTP          SMTP
	Auth          Auth
	Duty          Duty
	TxTimeout     time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`
	OTelEndpoint  string        `env:"OTEL_ENDPOINT"`
	ParishTZ      string        `env:"TIMEZONE" envDefault:"UTC"`
	AuditAsync    bool          `env:"AUDIT_ASYNC" envDefault:"true"`
	AuditBuffer   int           `env:"AUDIT_BUFFER" envDefault:"256"`
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`
}

// Database configures the relational store. An empty URL selects in-memory
// stores.
type Database struct {
	URL    string `env:"DATABASE_URL"`
	Driver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
}

// RedisConfig configures the in-app inbox backend. An empty URL selects the
// in-memory inbox.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	InboxCap     int64         `env:"INBOX_CAP" envDefault:"100"`
}

// Kafka configures the domain event stream. No brokers disables it.
type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"parish.events"`
}

// SMTP configures outbound email. An empty host selects the log-only mailer.
type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"Parish Office <office@parish.local>"`
	AppURL   string `env:"FRONTEND_BASE_URL" envDefault:"http://localhost:3000"`
}

// Auth configures bearer tokens and the operator token.
type Auth struct {
	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"parish"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	AdminToken    string        `env:"ADMIN_TOKEN"`
}

// Duty configures the conflict checker.
type Duty struct {
	OverlapWindow time.Duration `env:"DUTY_OVERLAP_WINDOW" envDefault:"1h"`
	OverlapMode   string        `env:"DUTY_OVERLAP_MODE" envDefault:"symmetric"`
}

// Prefix namespaces every variable.
const Prefix = "PARISH_"

// Load reads .env (if present) and parses the environment.
func Load() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the environment without touching .env files.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Server) Validate() error {
	var errs []error
	switch c.Duty.OverlapMode {
	case OverlapSymmetric, OverlapLegacy:
	default:
		errs = append(errs, fmt.Errorf("DUTY_OVERLAP_MODE must be %q or %q, got %q", OverlapSymmetric, OverlapLegacy, c.Duty.OverlapMode))
	}
	if c.Duty.OverlapWindow <= 0 {
		errs = append(errs, errors.New("DUTY_OVERLAP_WINDOW must be positive"))
	}
	if c.TxTimeout <= 0 {
		errs = append(errs, errors.New("TX_TIMEOUT must be positive"))
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or pgx, got %q", c.Database.Driver))
	}
	if _, err := time.LoadLocation(c.ParishTZ); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if c.IsProduction() && strings.HasPrefix(c.Auth.JWTSigningKey, "dev-") {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether ENV is prod or production.
func (c Server) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Location returns the parish timezone. Validate guarantees it loads.
func (c Server) Location() *time.Location {
	loc, err := time.LoadLocation(c.ParishTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
