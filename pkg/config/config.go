// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds settings for the HTTP server, stores, tracing and webhooks.
type Config struct {
	HTTPAddr        string
	TLSCert         string
	TLSKey          string
	ShutdownTimeout time.Duration

	// DatabaseURL selects the postgres stores; empty keeps everything in memory.
	DatabaseURL string
	// RedisAddr selects the redis revocation registry.
	RedisAddr string

	OtelHost        string
	OtelSampleRatio float64

	JWTSecret string
	TokenTTL  time.Duration

	WebhookWorkers   int
	WebhookQueueSize int
	WebhookTimeout   time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	AdminEmail    string
	AdminPassword string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatenv(key string, def float64) float64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// durenv reads an integer count of unit; the variable name carries the unit.
func durenv(key string, def int, unit time.Duration) time.Duration {
	return time.Duration(atoienv(key, def)) * unit
}

func listenv(key string) []string {
	var out []string
	for _, p := range strings.Split(getenv(key, ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":8443"),
		TLSCert:          getenv("TLS_CERT", ""),
		TLSKey:           getenv("TLS_KEY", ""),
		ShutdownTimeout:  durenv("SHUTDOWN_TIMEOUT", 15, time.Second),
		DatabaseURL:      getenv("DATABASE_URL", ""),
		RedisAddr:        getenv("REDIS_ADDR", ""),
		OtelHost:         getenv("OTEL_HOST", ""),
		OtelSampleRatio:  floatenv("OTEL_SAMPLE_RATIO", 1.0),
		JWTSecret:        getenv("JWT_SECRET", "change-me-in-production"),
		TokenTTL:         durenv("TOKEN_TTL_MIN", 15, time.Minute),
		WebhookWorkers:   atoienv("WEBHOOK_WORKERS", 4),
		WebhookQueueSize: atoienv("WEBHOOK_QUEUE_SIZE", 1024),
		WebhookTimeout:   durenv("WEBHOOK_TIMEOUT_MS", 5000, time.Millisecond),
		KafkaBrokers:     listenv("KAFKA_BROKERS"),
		KafkaTopic:       getenv("KAFKA_TOPIC", "stockflow.events"),
		AdminEmail:       getenv("ADMIN_EMAIL", ""),
		AdminPassword:    getenv("ADMIN_PASSWORD", ""),
	}
}
