package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr      string
	DBDSN     string
	JWTSecret string
	RedisAddr string
}

// Load reads configuration from the environment, with a .env file as the
// dev-time source. Missing DB_DSN or JWT_SECRET is fatal; everything else
// has a default.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is normal in containers.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:      getEnv("ADDR", ":8080"),
		DBDSN:     os.Getenv("DB_DSN"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
	}

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
