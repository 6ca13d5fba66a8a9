package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Backend selects the persistence implementation for nonce and wallet records.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Redis  RedisConfig
	DB     DBConfig
	SIWS   SIWSConfig
	Token  TokenConfig
	Log    LogConfig
}

type ServerConfig struct {
	Addr string
}

type StoreConfig struct {
	Backend Backend
}

type RedisConfig struct {
	URL string
}

type DBConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SIWSConfig struct {
	Domain       string
	URI          string
	Statement    string
	Version      string
	ChainID      string
	ChallengeTTL time.Duration
}

type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":9000"),
		},
		Store: StoreConfig{
			Backend: Backend(getEnv("STORE_BACKEND", string(BackendRedis))),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		DB: DBConfig{
			URL:             getEnv("DB_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		},
		SIWS: SIWSConfig{
			Domain:       getEnv("SIWS_DOMAIN", "localhost"),
			URI:          getEnv("SIWS_URI", ""),
			Statement:    getEnv("SIWS_STATEMENT", ""),
			Version:      getEnv("SIWS_VERSION", "1"),
			ChainID:      getEnv("SIWS_CHAIN_ID", "mainnet-beta"),
			ChallengeTTL: time.Duration(getEnvInt("CHALLENGE_TTL_MIN", 10)) * time.Minute,
		},
		Token: TokenConfig{
			AccessTTL:  time.Duration(getEnvInt("ACCESS_TTL_MIN", 5)) * time.Minute,
			RefreshTTL: time.Duration(getEnvInt("REFRESH_TTL_HOURS", 120)) * time.Hour,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, redis, postgres; got %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendPostgres && c.DB.URL == "" {
		return fmt.Errorf("DB_URL is required for the postgres backend")
	}
	if c.SIWS.Domain == "" {
		return fmt.Errorf("SIWS_DOMAIN is required")
	}
	if c.SIWS.ChallengeTTL <= 0 {
		return fmt.Errorf("CHALLENGE_TTL_MIN must be positive")
	}
	return nil
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
