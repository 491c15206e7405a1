package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	Environment string
	CORSOrigins string
	IPHashSalt  string

	// Trending score tunables. DecayWindow normalizes idea age; Gravity
	// controls how aggressively age suppresses the score.
	TrendDecayWindow time.Duration
	TrendGravity     float64
	TrendingLimit    int

	// Sweep and persistence cadence. Both sweeps are corrective and may be
	// skipped or delayed under load without correctness loss.
	ReconcileInterval    time.Duration
	DecaySweepInterval   time.Duration
	PersistRetryInterval time.Duration

	// SubscriberBuffer bounds each subscriber's delivery queue; a full queue
	// drops that subscriber rather than stalling the publisher.
	SubscriberBuffer int

	// VoteLockWait bounds how long a vote waits on its (user, idea) pair
	// lock before failing as contended.
	VoteLockWait time.Duration
}

func Load() *Config {
	// Local development keeps its settings in a .env file; absence is fine.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		IPHashSalt:  getEnv("IP_HASH_SALT", "ideasvault-dev"),

		TrendDecayWindow: getEnvDuration("TREND_DECAY_WINDOW", time.Hour),
		TrendGravity:     getEnvFloat("TREND_GRAVITY", 1.8),
		TrendingLimit:    getEnvInt("TRENDING_LIMIT", 30),

		ReconcileInterval:    getEnvDuration("RECONCILE_INTERVAL", time.Minute),
		DecaySweepInterval:   getEnvDuration("DECAY_SWEEP_INTERVAL", 30*time.Second),
		PersistRetryInterval: getEnvDuration("PERSIST_RETRY_INTERVAL", 5*time.Second),

		SubscriberBuffer: getEnvInt("SUBSCRIBER_BUFFER", 64),
		VoteLockWait:     getEnvDuration("VOTE_LOCK_WAIT", 2*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
