package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tair/payment-service/pkg/database"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"REDIS_ADDR", "KAFKA_BROKERS", "PAYMENT_PROCESSOR", "HTTP_PORT", "GRPC_PORT", "DB_DRIVER", "JWT_SECRET"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8083", cfg.HTTPPort)
	assert.Equal(t, "9093", cfg.GRPCPort)
	assert.Equal(t, "custom", cfg.Processor)
	assert.Equal(t, database.DriverPgx, cfg.Database.Driver)
	assert.False(t, cfg.CacheEnabled())
	assert.False(t, cfg.EventsEnabled())
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.ProcessorConfig.WebhookTolerance)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PAYMENT_PROCESSOR", "stripe")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("JWT_TTL", "1h")

	cfg := Load()

	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "stripe", cfg.Processor)
	assert.Equal(t, "sk_test", cfg.ProcessorConfig.StripeSecretKey)
	assert.Equal(t, database.DriverPq, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
}
