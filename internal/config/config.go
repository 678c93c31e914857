// Package config loads service settings from the environment (and .env).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every setting the binaries read at startup.
type Config struct {
	Port        string
	LogLevel    logrus.Level
	RevealDelay time.Duration
	MaxPlayers  int
	CatalogFile string
	TableIdle   time.Duration

	RedisAddr      string
	RedisDB        int
	HistorianQueue string
	BatchSize      int
	FlushDelay     time.Duration
	RoundIdle      time.Duration

	PostgresUser     string
	PostgresPassword string
	PGHost           string
	PGPort           string
	PGDatabase       string

	TokenExpireTime string
}

// Load reads .env (if present) and the process environment, applying defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "debug"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    level,
		RevealDelay: time.Duration(getEnvInt("REVEAL_DELAY_MS", 1000)) * time.Millisecond,
		MaxPlayers:  getEnvInt("MAX_PLAYERS", 4),
		CatalogFile: os.Getenv("CATALOG_FILE"),
		TableIdle:   time.Duration(getEnvInt("TABLE_IDLE_TIMEOUT_SEC", 3600)) * time.Second,

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		HistorianQueue: getEnv("HISTORIAN_QUEUE_NAME", "pairs_actions"),
		BatchSize:      getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		RoundIdle:      time.Duration(getEnvInt("ROUND_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PGHost:           getEnv("PG_HOST", "localhost"),
		PGPort:           getEnv("PG_PORT", "5432"),
		PGDatabase:       os.Getenv("PG_DATABASE"),

		TokenExpireTime: os.Getenv("TOKEN_EXPIRE_TIME"),
	}, nil
}

// PostgresURL builds the pgx connection string.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PGHost,
		c.PGPort,
		c.PGDatabase,
	)
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
