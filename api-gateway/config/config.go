package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// GatewayConfig holds the main gateway configuration
type GatewayConfig struct {
	ServiceName string
	Environment string
	LogLevel    string
	Port        string

	// PaymentGRPCAddrs are the payment service backends, used round-robin
	PaymentGRPCAddrs []string
	RequestTimeout   time.Duration

	AllowedOrigins     string
	RateLimitPerMinute int

	RedisAddr     string
	RedisPassword string

	JWTSecret string
	JWTTTL    time.Duration

	CircuitMaxFailures int
	CircuitOpenTimeout time.Duration
}

// LoadConfig loads the gateway configuration from .env and the environment
func LoadConfig() *GatewayConfig {
	_ = godotenv.Load()

	return &GatewayConfig{
		ServiceName:        getEnv("OTEL_SERVICE_NAME", "api-gateway"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("GATEWAY_PORT", "8000"),
		PaymentGRPCAddrs:   splitList(getEnv("PAYMENT_GRPC_ADDRS", "localhost:9093")),
		RequestTimeout:     getEnvDuration("GATEWAY_REQUEST_TIMEOUT", 10*time.Second),
		AllowedOrigins:     getEnv("CORS_ALLOWED_ORIGINS", "*"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTTTL:             getEnvDuration("JWT_TTL", 24*time.Hour),
		CircuitMaxFailures: 5,
		CircuitOpenTimeout: 30 * time.Second,
	}
}

// IsDevelopment reports whether console logging should be used
func (c *GatewayConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil && value > 0 {
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
