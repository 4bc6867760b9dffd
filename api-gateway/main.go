package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"github.com/tair/payment-service/api-gateway/backend"
	"github.com/tair/payment-service/api-gateway/config"
	"github.com/tair/payment-service/api-gateway/health"
	"github.com/tair/payment-service/api-gateway/middleware"
	"github.com/tair/payment-service/api-gateway/routes"
	"github.com/tair/payment-service/internal/payment/client"
	"github.com/tair/payment-service/pkg/auth"
	"github.com/tair/payment-service/pkg/logger"
	"github.com/tair/payment-service/pkg/tracing"
)

func main() {
	cfg := config.LoadConfig()

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Msg("Starting API Gateway")

	// Initialize tracer
	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		Endpoint:       os.Getenv("JAEGER_ENDPOINT"),
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	// Initialize Redis for rate limiting
	redisClient := connectRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// One client and circuit breaker per payment backend
	breakers := middleware.NewCircuitBreakerManager(cfg.CircuitMaxFailures, cfg.CircuitOpenTimeout)
	var backends []*backend.Backend
	for _, addr := range cfg.PaymentGRPCAddrs {
		c, err := client.NewPaymentServiceClient(addr)
		if err != nil {
			logger.Logger.Fatal().Err(err).Str("address", addr).Msg("Failed to create payment client")
		}
		defer c.Close()

		backends = append(backends, &backend.Backend{
			Address: addr,
			Client:  c,
			Breaker: breakers.GetOrCreate(addr),
		})
	}
	if len(backends) == 0 {
		logger.Logger.Fatal().Msg("PAYMENT_GRPC_ADDRS is empty")
	}

	authManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if authManager == nil {
		logger.Logger.Warn().Msg("JWT_SECRET not set - authentication disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Payment API Gateway",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	setupMiddleware(app, cfg, redisClient)

	routes.SetupRoutes(app, backend.NewPool(backends), health.NewHealthChecker(backends), authManager, cfg.RequestTimeout)

	app.Get("/health/circuits", func(c *fiber.Ctx) error {
		return c.JSON(breakers.GetAllStats())
	})

	go func() {
		logger.Logger.Info().
			Str("port", cfg.Port).
			Strs("payment_backends", cfg.PaymentGRPCAddrs).
			Msg("API Gateway listening")

		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down API Gateway...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Logger.Info().Msg("API Gateway stopped")
}

// connectRedis returns nil when Redis is unreachable, which disables rate limiting
func connectRedis(cfg *config.GatewayConfig) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Logger.Warn().
			Err(err).
			Str("redis_addr", cfg.RedisAddr).
			Msg("Failed to connect to Redis - rate limiting will be disabled")
		_ = redisClient.Close()
		return nil
	}

	logger.Logger.Info().
		Str("redis_addr", cfg.RedisAddr).
		Msg("Connected to Redis for rate limiting")
	return redisClient
}

// setupMiddleware configures global middleware
func setupMiddleware(app *fiber.App, cfg *config.GatewayConfig, redisClient *redis.Client) {
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New())

	// Tracing before logging so log lines carry the trace id
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.StructuredLoggingMiddleware())

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  "GET,POST,OPTIONS,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-Id, traceparent, tracestate",
		ExposeHeaders: "X-Request-Id, X-Trace-Id, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset",
		MaxAge:        86400,
	}))

	if redisClient != nil {
		logger.Logger.Info().Int("per_minute", cfg.RateLimitPerMinute).Msg("Rate limiting enabled")
		app.Use(middleware.GlobalRateLimiter(redisClient, cfg.RateLimitPerMinute))
	} else {
		logger.Logger.Warn().Msg("Rate limiting disabled (Redis not available)")
	}

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// customErrorHandler renders unhandled errors in the response envelope
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	return c.Status(code).JSON(routes.Response{
		Success: false,
		Error:   message,
	})
}
