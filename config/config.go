package config

import (
	"os"
	"strings"

	"sesi/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	JWTSecret  string
	CORSOrigin string
	DevMode    bool
}

// Load reads the .env file if present, falling back to OS environment
// variables. Called once at startup; the resulting Config is passed down
// explicitly instead of re-reading the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	cfg := Config{
		Addr:       env("ADDR", ":8080"),
		DBUser:     env("user", ""),
		DBPassword: env("password", ""),
		DBHost:     env("host", ""),
		DBPort:     env("port", "5432"),
		DBName:     env("dbname", ""),
		JWTSecret:  env("JWT_SECRET", ""),
		CORSOrigin: env("CORS_ORIGIN", "http://localhost:5173"),
		DevMode:    env("DEV_MODE", "") == "true",
	}

	if cfg.JWTSecret == "" {
		logger.Sugar.Fatal("JWT_SECRET environment variable not set")
	}
	return cfg
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
