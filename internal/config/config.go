package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Database    DatabaseConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Telemetry   TelemetryConfig
	Validation  ValidationConfig
	Report      ReportConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds current-state store connection settings
type RedisConfig struct {
	Addr     string
	Password string
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL              string
	IngestExchange   string
	IngestQueue      string
	IngestRoutingKey string
	DLQQueue         string
	PrefetchCount    int
}

// TelemetryConfig names the analytical schema/table pair raw events are
// appended to. Both are deployment-time settings with no defaults; they are
// deliberately not checked at load time, an empty value fails on first
// append or report attempt instead.
type TelemetryConfig struct {
	Schema string
	Table  string
}

// ValidationConfig holds the accepted humidity range (inclusive bounds)
type ValidationConfig struct {
	HumidityMin float64
	HumidityMax float64
}

// ReportConfig holds report query settings
type ReportConfig struct {
	Timezone   string
	WindowDays int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "greenhouse-telemetry-worker"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8081),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:              getEnv("RABBITMQ_URL", ""),
			IngestExchange:   getEnv("RABBITMQ_INGEST_EXCHANGE", "greenhouse.telemetry.exchange"),
			IngestQueue:      getEnv("RABBITMQ_INGEST_QUEUE", "greenhouse.telemetry.queue"),
			IngestRoutingKey: getEnv("RABBITMQ_INGEST_ROUTING_KEY", "device.telemetry.raw"),
			DLQQueue:         getEnv("RABBITMQ_DLQ_QUEUE", "greenhouse.telemetry.dlq"),
			PrefetchCount:    getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Telemetry: TelemetryConfig{
			Schema: getEnv("TELEMETRY_SCHEMA", ""),
			Table:  getEnv("TELEMETRY_TABLE", ""),
		},
		Validation: ValidationConfig{
			HumidityMin: getEnvAsFloat("HUMIDITY_MIN", 0),
			HumidityMax: getEnvAsFloat("HUMIDITY_MAX", 100),
		},
		Report: ReportConfig{
			Timezone:   getEnv("REPORT_TIMEZONE", "Europe/Zurich"),
			WindowDays: getEnvAsInt("REPORT_WINDOW_DAYS", 7),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
