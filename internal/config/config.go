// Package config loads process-wide settings once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration. BackendURL, APIKey and AuthSecret are required.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	BackendURL string
	APIKey     string
	AuthSecret string
	SessionTTL time.Duration

	AdminEmails    []string
	AllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuditQueue   int
	IPRatePerSec int
	IPRateBurst  int
}

// ErrMissing is returned when a required variable is absent.
var ErrMissing = errors.New("config: required variable missing")

// Load reads an optional .env file followed by the environment.
func Load(files ...string) (Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load(files...)
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := Config{
		HTTPAddr:       get("GP_HTTP_ADDR", ":8080"),
		GRPCAddr:       get("GP_GRPC_ADDR", ":9090"),
		BackendURL:     get("GP_BACKEND_URL", ""),
		APIKey:         get("GP_BACKEND_API_KEY", ""),
		AuthSecret:     get("GP_AUTH_SECRET", ""),
		AdminEmails:    splitList(get("GP_ADMIN_EMAILS", "")),
		AllowedOrigins: splitList(get("GP_ALLOWED_ORIGINS", "")),
		RedisAddr:      get("GP_REDIS_ADDR", ""),
		RedisPassword:  get("GP_REDIS_PASSWORD", ""),
	}

	var missing []string
	for key, val := range map[string]string{
		"GP_BACKEND_URL":     cfg.BackendURL,
		"GP_BACKEND_API_KEY": cfg.APIKey,
		"GP_AUTH_SECRET":     cfg.AuthSecret,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Config{}, fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(get("GP_SESSION_TTL", "24h")); err != nil || cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("config: invalid GP_SESSION_TTL")
	}
	if cfg.RedisDB, err = atoi(get("GP_REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("config: invalid GP_REDIS_DB: %w", err)
	}
	if cfg.AuditQueue, err = atoi(get("GP_AUDIT_QUEUE", "256")); err != nil || cfg.AuditQueue <= 0 {
		return Config{}, fmt.Errorf("config: invalid GP_AUDIT_QUEUE")
	}
	if cfg.IPRatePerSec, err = atoi(get("GP_IP_RATE_PER_SEC", "20")); err != nil || cfg.IPRatePerSec <= 0 {
		return Config{}, fmt.Errorf("config: invalid GP_IP_RATE_PER_SEC")
	}
	if cfg.IPRateBurst, err = atoi(get("GP_IP_RATE_BURST", "40")); err != nil || cfg.IPRateBurst <= 0 {
		return Config{}, fmt.Errorf("config: invalid GP_IP_RATE_BURST")
	}
	return cfg, nil
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
