package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"google.golang.org/grpc"

	_ "github.com/tair/payment-service/docs"
	"github.com/tair/payment-service/internal/payment"
	"github.com/tair/payment-service/internal/payment/cache"
	"github.com/tair/payment-service/internal/payment/config"
	paymentgrpc "github.com/tair/payment-service/internal/payment/delivery/grpc"
	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/internal/payment/handler"
	"github.com/tair/payment-service/internal/payment/processor"
	"github.com/tair/payment-service/kafka"
	"github.com/tair/payment-service/pkg/auth"
	"github.com/tair/payment-service/pkg/database"
	"github.com/tair/payment-service/pkg/logger"
	"github.com/tair/payment-service/pkg/tracing"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting payment service")

	// Initialize tracer
	tp, err := tracing.InitTracer(cfg.Tracing)
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

	// Connect to database
	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&domain.Payment{}); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Logger.Info().Msg("Database initialized successfully")

	paymentCache := newCache(cfg)

	paymentProcessor, err := processor.New(cfg.Processor, cfg.ProcessorConfig)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize payment processor")
	}
	logger.Logger.Info().Str("processor", paymentProcessor.Name()).Msg("Payment processor initialized")

	var publisher domain.EventPublisher
	var kafkaPublisher *kafka.Publisher
	if cfg.EventsEnabled() {
		kafkaPublisher, err = kafka.NewPublisher(cfg.KafkaBrokers)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to initialize Kafka publisher - events disabled")
		} else {
			publisher = kafkaPublisher
			defer kafkaPublisher.Close()
		}
	} else {
		logger.Logger.Warn().Msg("KAFKA_BROKERS not set - events disabled")
	}

	svc, err := payment.InitializeService(db, paymentCache, paymentProcessor, publisher)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize service")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.EventsEnabled() {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to initialize Kafka consumer")
		} else {
			consumer.RegisterProcessHandler(payment.NewProcessRequestHandler(svc.Handlers.Commands.ProcessHandler))
			consumer.Start(ctx)
			defer consumer.Close()
		}
	}

	authManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if authManager == nil {
		logger.Logger.Warn().Msg("JWT_SECRET not set - authentication disabled")
	}

	httpServer := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: handler.NewRouter(svc.HTTP, handler.DefaultMiddlewareConfig(authManager), cfg.AllowedOrigins,
			httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	grpcServer := paymentgrpc.NewServer(svc.GRPC, authManager)
	go startGRPCServer(grpcServer, cfg.GRPCPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down servers...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP server forced to shutdown")
	}
	grpcServer.GracefulStop()

	logger.Logger.Info().Msg("Payment service stopped")
}

// newCache connects to Redis when configured. A nil cache disables caching.
func newCache(cfg *config.Config) domain.PaymentCache {
	if !cfg.CacheEnabled() {
		logger.Logger.Warn().Msg("REDIS_ADDR not set - payment cache disabled")
		return nil
	}

	client := redis.NewClient(cache.ClientOptions(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// Reads fall through to the store until Redis comes back.
		logger.Logger.Warn().Err(err).Str("redis_addr", cfg.RedisAddr).Msg("Redis not reachable at startup")
	} else {
		logger.Logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("Connected to Redis for payment cache")
	}

	return cache.NewRedisCache(client)
}

func startGRPCServer(server *grpc.Server, port string) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("port", port).Msg("Failed to listen for gRPC")
	}

	logger.Logger.Info().Str("port", port).Msg("gRPC server started")
	if err := server.Serve(lis); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to serve gRPC")
	}
}
