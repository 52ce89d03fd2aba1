// Package config builds explicit configuration objects from the environment.
// Everything is assembled once in main and passed to components at
// construction; no package reads the environment on its own.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server    Server
	Database  Database
	Redis     Redis
	Kafka     Kafka
	Upstreams Upstreams
	Gemini    Gemini
	ESign     ESign
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Database holds the Postgres connection settings.
type Database struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Redis holds optional token-cache settings. An empty URL disables Redis and
// the token source falls back to an in-process cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the envelope-event consumer worker.
type Kafka struct {
	Brokers []string
	Topic   string
	Group   string
}

// Upstreams points at the read-only services the aggregator fans out to.
type Upstreams struct {
	ProfileBaseURL   string
	RentalBaseURL    string
	EquipmentBaseURL string
	FetchTimeout     time.Duration
}

// Gemini configures the contract text generator.
type Gemini struct {
	ProjectID string
	Region    string
	Model     string
}

// ESign configures the e-signature provider integration.
type ESign struct {
	BasePath       string
	OAuthHost      string
	IntegrationKey string
	UserID         string
	AccountID      string
	PrivateKeyPEM  string
	WebhookURL     string
	ReturnURL      string
	TokenExpiry    time.Duration
	CallTimeout    time.Duration
}

// FromEnv builds the full Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("RENTALSIGN_ADDR", ":8080"),
			ShutdownTimeout: envDuration("RENTALSIGN_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: Database{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_SIGNING_EVENTS_TOPIC", "esign.envelope.events"),
			Group:   envOr("KAFKA_CONSUMER_GROUP", "rentalsign-reconciler"),
		},
		Upstreams: Upstreams{
			ProfileBaseURL:   envOr("PROFILE_SERVICE_URL", "http://localhost:8008"),
			RentalBaseURL:    envOr("RENTAL_SERVICE_URL", "http://localhost:8015"),
			EquipmentBaseURL: envOr("EQUIPMENT_SERVICE_URL", "http://localhost:8006"),
			FetchTimeout:     envDuration("UPSTREAM_FETCH_TIMEOUT", 5*time.Second),
		},
		Gemini: Gemini{
			ProjectID: os.Getenv("GEMINI_PROJECT_ID"),
			Region:    envOr("GEMINI_REGION", "us-central1"),
			Model:     envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		ESign: ESign{
			BasePath:       envOr("ESIGN_BASE_PATH", "https://demo.docusign.net/restapi"),
			OAuthHost:      envOr("ESIGN_OAUTH_HOST", "account-d.docusign.com"),
			IntegrationKey: os.Getenv("ESIGN_INTEGRATION_KEY"),
			UserID:         os.Getenv("ESIGN_USER_ID"),
			AccountID:      os.Getenv("ESIGN_ACCOUNT_ID"),
			PrivateKeyPEM:  os.Getenv("ESIGN_PRIVATE_KEY"),
			WebhookURL:     os.Getenv("ESIGN_WEBHOOK_URL"),
			ReturnURL:      os.Getenv("ESIGN_DEFAULT_RETURN_URL"),
			TokenExpiry:    envDuration("ESIGN_TOKEN_EXPIRY", time.Hour),
			CallTimeout:    envDuration("ESIGN_CALL_TIMEOUT", 30*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
