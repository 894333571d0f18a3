package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Events   EventsConfig
	Jobs     JobsConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
}

// EventsConfig selects where domain events go and how they get there
type EventsConfig struct {
	Publisher    string // log | redis
	Delivery     string // direct | outbox
	RedisAddr    string
	RedisChannel string
}

// JobsConfig holds scheduler configuration
type JobsConfig struct {
	MonthEndEnabled     bool
	MonthEndInterval    time.Duration
	OutboxRelayInterval time.Duration
}

const (
	PublisherLog   = "log"
	PublisherRedis = "redis"

	DeliveryDirect = "direct"
	DeliveryOutbox = "outbox"
)

// Load reads configuration from the environment. A .env file is loaded when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Events configuration
	config.Events = EventsConfig{
		Publisher:    strings.ToLower(getEnv("EVENT_PUBLISHER", PublisherLog)),
		Delivery:     strings.ToLower(getEnv("EVENT_DELIVERY", DeliveryDirect)),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisChannel: getEnv("REDIS_CHANNEL", "payroll-events"),
	}

	// Jobs configuration
	monthEndEnabled, err := strconv.ParseBool(getEnv("MONTH_END_JOB_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MONTH_END_JOB_ENABLED: %w", err)
	}
	monthEndInterval, err := time.ParseDuration(getEnv("MONTH_END_JOB_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid MONTH_END_JOB_INTERVAL: %w", err)
	}
	relayInterval, err := time.ParseDuration(getEnv("OUTBOX_RELAY_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_RELAY_INTERVAL: %w", err)
	}

	config.Jobs = JobsConfig{
		MonthEndEnabled:     monthEndEnabled,
		MonthEndInterval:    monthEndInterval,
		OutboxRelayInterval: relayInterval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	switch c.Events.Publisher {
	case PublisherLog, PublisherRedis:
	default:
		return fmt.Errorf("EVENT_PUBLISHER must be %q or %q", PublisherLog, PublisherRedis)
	}
	switch c.Events.Delivery {
	case DeliveryDirect, DeliveryOutbox:
	default:
		return fmt.Errorf("EVENT_DELIVERY must be %q or %q", DeliveryDirect, DeliveryOutbox)
	}
	if c.Events.Publisher == PublisherRedis && c.Events.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when EVENT_PUBLISHER is redis")
	}
	if c.Jobs.OutboxRelayInterval <= 0 {
		return fmt.Errorf("OUTBOX_RELAY_INTERVAL must be positive")
	}
	if c.Jobs.MonthEndInterval <= 0 {
		return fmt.Errorf("MONTH_END_JOB_INTERVAL must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
