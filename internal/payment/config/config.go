package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tair/payment-service/internal/payment/processor"
	"github.com/tair/payment-service/pkg/database"
	"github.com/tair/payment-service/pkg/tracing"
)

// Config holds everything the payment service reads from its environment
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string

	Database database.Config
	Tracing  tracing.Config

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HTTPPort string
	GRPCPort string

	KafkaBrokers       []string
	KafkaConsumerGroup string

	Processor       string
	ProcessorConfig processor.Config

	JWTSecret      string
	JWTTTL         time.Duration
	AllowedOrigins []string
}

// IsDevelopment reports whether console logging should be used
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// CacheEnabled reports whether a Redis address is configured
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// EventsEnabled reports whether Kafka brokers are configured
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads an optional .env file and then the process environment
func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	serviceName := getEnv("OTEL_SERVICE_NAME", "payment-service")
	environment := getEnv("ENVIRONMENT", "development")

	return &Config{
		ServiceName: serviceName,
		Environment: environment,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "paymentdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Driver:   getEnv("DB_DRIVER", database.DriverPgx),
		},
		Tracing: tracing.Config{
			ServiceName:    serviceName,
			ServiceVersion: getEnv("SERVICE_VERSION", "1.0.0"),
			Environment:    environment,
			Endpoint:       getEnv("JAEGER_ENDPOINT", tracing.DefaultEndpoint),
		},
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		HTTPPort:           getEnv("HTTP_PORT", "8083"),
		GRPCPort:           getEnv("GRPC_PORT", "9093"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "payment-service"),
		Processor:          getEnv("PAYMENT_PROCESSOR", processor.NameCustom),
		ProcessorConfig: processor.Config{
			StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			CustomWebhookSecret: os.Getenv("CUSTOM_WEBHOOK_SECRET"),
			WebhookTolerance:    5 * time.Minute,
		},
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         getEnvDuration("JWT_TTL", 24*time.Hour),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
