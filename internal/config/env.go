package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env struct {
	AppAddr   string
	GinMode   string
	LogLevel  string
	LogFormat string

	// Store is "mysql" or "memory".
	Store    string
	MySQLDSN string
	// RedisAddr enables the Redis hold index and event stream; empty keeps both in process.
	RedisAddr string

	JWTSecret            string
	PaymentWebhookSecret string
	CORSAllowedOrigins   []string

	HoldDefaultTTL    time.Duration
	HoldMaxTTL        time.Duration
	HoldMaxLifetime   time.Duration
	HoldMaxSeats      int
	HoldSweepInterval time.Duration
	HoldSweepBatch    int
	HoldRetention     time.Duration

	BookingCancelLeadTime  time.Duration
	BookingPaymentDeadline time.Duration
}

// LoadEnv reads .env when present, then the process environment.
func LoadEnv() (Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Env{}, fmt.Errorf("load .env: %w", err)
	}

	p := parser{}
	env := Env{
		AppAddr:   str("APP_ADDR", ":8080"),
		GinMode:   str("GIN_MODE", ""),
		LogLevel:  str("LOG_LEVEL", "info"),
		LogFormat: str("LOG_FORMAT", "json"),

		Store:     strings.ToLower(str("STORE", "mysql")),
		MySQLDSN:  str("MYSQL_DSN", "root:@tcp(127.0.0.1:3306)/bustravel?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"),
		RedisAddr: str("REDIS_ADDR", ""),

		JWTSecret:            str("JWT_SECRET", ""),
		PaymentWebhookSecret: str("PAYMENT_WEBHOOK_SECRET", ""),
		CORSAllowedOrigins: list("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}),

		HoldDefaultTTL:    p.duration("HOLD_DEFAULT_TTL", 10*time.Minute),
		HoldMaxTTL:        p.duration("HOLD_MAX_TTL", 15*time.Minute),
		HoldMaxLifetime:   p.duration("HOLD_MAX_LIFETIME", 30*time.Minute),
		HoldMaxSeats:      p.integer("HOLD_MAX_SEATS", 6),
		HoldSweepInterval: p.duration("HOLD_SWEEP_INTERVAL", 2*time.Second),
		HoldSweepBatch:    p.integer("HOLD_SWEEP_BATCH", 100),
		HoldRetention:     p.duration("HOLD_RETENTION", 24*time.Hour),

		BookingCancelLeadTime:  p.duration("BOOKING_CANCEL_LEAD_TIME", 2*time.Hour),
		BookingPaymentDeadline: p.duration("BOOKING_PAYMENT_DEADLINE", 0),
	}
	if p.err != nil {
		return Env{}, p.err
	}

	switch env.Store {
	case "mysql", "memory":
	default:
		return Env{}, fmt.Errorf("STORE must be mysql or memory, got %q", env.Store)
	}
	if env.JWTSecret == "" {
		return Env{}, errors.New("JWT_SECRET is required")
	}
	if env.HoldDefaultTTL <= 0 || env.HoldSweepInterval <= 0 {
		return Env{}, errors.New("HOLD_DEFAULT_TTL and HOLD_SWEEP_INTERVAL must be positive")
	}
	return env, nil
}

func str(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func list(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	out := []string{}
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// parser keeps the first parse error so LoadEnv can report it once.
type parser struct {
	err error
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
	return d
}

func (p *parser) integer(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
	return n
}
