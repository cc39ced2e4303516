package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MinSecretLen is the shortest signing secret the process will start with.
const MinSecretLen = 32

type Config struct {
	Env  string
	Port int

	DBURL      string
	DBMinConns int32
	DBMaxConns int32

	JWTSecret      string
	BcryptCost     int
	AllowedOrigins []string
	MaxBodyBytes   int64

	OTLPEndpoint string
}

// Load reads the environment once at startup. It fails outright when the
// signing secret is absent or shorter than MinSecretLen bytes.
func Load() (Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if len(secret) < MinSecretLen {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be at least %d bytes, got %d", MinSecretLen, len(secret))
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		dbURL = buildDBURL()
	}

	return Config{
		Env:            getEnv("APP_ENV", "dev"),
		Port:           getEnvInt("PORT", 8080),
		DBURL:          dbURL,
		DBMinConns:     int32(getEnvInt("DB_MIN_CONNS", 5)),
		DBMaxConns:     int32(getEnvInt("DB_MAX_CONNS", 15)),
		JWTSecret:      secret,
		BcryptCost:     getEnvInt("BCRYPT_COST", 12),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}, nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskhub")
	pass := getEnv("DB_PASSWORD", "taskhub")
	name := getEnv("DB_NAME", "taskhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// WithTimeout bounds an external call by the request's own context, so both
// the deadline and client disconnects cancel the work.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
