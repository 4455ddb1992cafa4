package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration, sourced from the environment.
type Config struct {
	Port         string
	DatabaseURL  string
	JWTSecret    string
	AllowOrigins string
}

// Load reads .env (if present) and builds the config.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    getEnv("JWT_SECRET", "fallback-secret-key"),
		AllowOrigins: getEnv("ALLOW_ORIGINS", "http://localhost:3000"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
