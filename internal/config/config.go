package config

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	OTELEndpoint string

	RateLimitRPS   float64
	RateLimitBurst int

	// optional initial admin account, seeded at startup when set
	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

func Load() Config {
	// .env is a local dev convenience; a missing file is fine
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,

		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		RateLimitRPS:   float64(getEnvInt("RATE_LIMIT_RPS", 20)),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

func buildDBURL() string {
	if url := getEnv("DATABASE_URL", ""); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "userhub")
	pass := getEnv("DB_PASSWORD", "userhub")
	name := getEnv("DB_NAME", "userhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func (c Config) Dev() bool {
	return c.Env == "dev"
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
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

		if err == nil {
			return num
		}
	}

	return fallback
}
