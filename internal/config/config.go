package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL (or NEON_DATABASE_URL) is not set")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is not set")
)

type Config struct {
	HTTPAddr          string
	DatabaseURL       string
	JWTSecret         string
	TokenTTL          time.Duration
	DBMaxConns        int
	DBIdleTimeout     time.Duration
	DBConnectTimeout  time.Duration
	DBQueryTimeout    time.Duration
	AutoMigrate       bool
	SeedAdminPassword string
	RedisAddr         string
	RedisPassword     string
	LoginRateCapacity int
	LoginRatePerSec   float64
	LogLevel          string
}

// LoadDotEnv reads a .env file from the working directory when one exists.
// Variables already present in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func Load() Config {
	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:       getenv("DATABASE_URL", os.Getenv("NEON_DATABASE_URL")),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          getenvDuration("TOKEN_TTL", 6*time.Hour),
		DBMaxConns:        getenvInt("DB_MAX_CONNS", 5),
		DBIdleTimeout:     getenvDuration("DB_IDLE_TIMEOUT", 30*time.Second),
		DBConnectTimeout:  getenvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		DBQueryTimeout:    getenvDuration("DB_QUERY_TIMEOUT", 10*time.Second),
		AutoMigrate:       getenvBool("AUTO_MIGRATE", false),
		SeedAdminPassword: getenv("SEED_ADMIN_PASSWORD", "admin"),
		RedisAddr:         getenv("REDIS_ADDR", ""),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		LoginRateCapacity: getenvInt("LOGIN_RATE_CAPACITY", 10),
		LoginRatePerSec:   getenvFloat("LOGIN_RATE_PER_SECOND", 1),
		LogLevel:          getenv("LOG_LEVEL", "info"),
	}
}

// Validate reports the first missing setting the HTTP server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrMissingDatabaseURL
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
