package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config captures everything the server binary needs from the environment.
type Config struct {
	Addr           string
	StorageDriver  string
	DatabaseURL    string
	JWTSecret      string
	RedisURL       string
	StatsCacheTTL  time.Duration
	VoteMaxRetries int
	LogLevel       string
	LogFormat      string
}

// Load reads an optional .env file and then builds the config from the
// environment.
func Load() (Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		Addr:          getEnv("SERVER_ADDR", "0.0.0.0:8080"),
		StorageDriver: getEnv("STORAGE_DRIVER", StoragePostgres),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisURL:      os.Getenv("REDIS_URL"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.StatsCacheTTL, err = getDuration("STATS_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.VoteMaxRetries, err = getInt("VOTE_MAX_RETRIES", 5); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = PostgresURLFromEnv()
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database connection is not configured")
		}
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.VoteMaxRetries < 1 {
		return errors.New("VOTE_MAX_RETRIES must be at least 1")
	}
	return nil
}

// PostgresURLFromEnv builds a connection string from the POSTGRES_* variables,
// or returns "" when no host is set.
func PostgresURLFromEnv() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	return PostgresURL(os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"), host, getEnv("POSTGRES_PORT", "5432"), os.Getenv("POSTGRES_DB"))
}

func PostgresURL(user, password, host, port, dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbName)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
