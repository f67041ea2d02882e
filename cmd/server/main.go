package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/config"
	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	"github.com/trailhead-stays/service-booking/internal/domain/payment"
	bookingEvents "github.com/trailhead-stays/service-booking/internal/events"
	"github.com/trailhead-stays/service-booking/internal/handler"
	"github.com/trailhead-stays/service-booking/internal/platform/auth"
	"github.com/trailhead-stays/service-booking/internal/platform/database"
	"github.com/trailhead-stays/service-booking/internal/platform/health"
	"github.com/trailhead-stays/service-booking/internal/platform/kafka"
	"github.com/trailhead-stays/service-booking/internal/platform/logger"
	"github.com/trailhead-stays/service-booking/internal/platform/middleware"
	"github.com/trailhead-stays/service-booking/internal/platform/telemetry"
	"github.com/trailhead-stays/service-booking/internal/platform/validation"
	"github.com/trailhead-stays/service-booking/internal/repository"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
		zap.String("timezone", cfg.Timezone),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tracing
	shutdownTracing, err := telemetry.Init(ctx, cfg.OTel, cfg.AppEnv)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	if err := validation.Register(); err != nil {
		log.Fatal("failed to register validators", zap.Error(err))
	}

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.UserModel{},
			&repository.CampsiteModel{},
			&repository.BookingModel{},
			&repository.ReviewModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT verifier
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, 15*time.Minute)

	// Initialize Kafka producer
	var producer kafka.Publisher = kafka.NopPublisher{}
	if cfg.KafkaConfig.Enabled {
		producer = kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	} else {
		log.Info("kafka disabled, domain events will not be published")
	}
	defer func() { _ = producer.Close() }()

	// Initialize payment simulator
	outcomes, err := payment.NewOutcomeSource(cfg.Payment.ForceOutcome, cfg.Payment.SuccessRate, cfg.Payment.Seed)
	if err != nil {
		log.Fatal("failed to configure payment simulator", zap.Error(err))
	}

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	campsiteRepo := repository.NewGormCampsiteRepository(db)
	reviewRepo := repository.NewGormReviewRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	transactor := repository.NewGormTransactor(db, cfg.DBConfig.MaxTxRetries, log)

	// Initialize application services
	clock := application.NewSystemClock(cfg.Location())
	bookingService := application.NewBookingService(
		bookingRepo,
		campsiteRepo,
		userRepo,
		bookingDomain.NewNightlyPricingStrategy(),
		transactor,
		clock,
		producer,
		log,
	)
	paymentService := application.NewPaymentService(bookingRepo, outcomes, transactor, clock, producer, log)
	reviewService := application.NewReviewService(reviewRepo, campsiteRepo, bookingRepo, userRepo, transactor, clock, producer, log)
	campsiteService := application.NewCampsiteService(campsiteRepo, bookingRepo, userRepo, transactor, clock, log)
	userService := application.NewUserService(userRepo, clock, log)

	// Start the identity event consumer in a goroutine
	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
		identityConsumer := bookingEvents.NewIdentityEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			userService,
			log,
		)
		defer func() { _ = identityConsumer.Close() }()

		go func() {
			log.Info("starting identity event consumer")
			if err := identityConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("identity event consumer error", zap.Error(err))
			}
		}()
	}

	// Health checks
	healthHandler := health.NewHandler(serviceName).
		AddCheck("postgres", func(ctx context.Context) error { return database.Ping(ctx, db) })

	// Payment idempotency
	var idempotency gin.HandlerFunc
	if cfg.RedisConfig.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer func() { _ = rdb.Close() }()

		idempotency = middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{
			Store:  rdb,
			TTL:    cfg.RedisConfig.IdempotencyTTL,
			Logger: log,
		})
		healthHandler.AddCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterConfig{
		JWT:         jwtManager,
		Logger:      log,
		Idempotency: idempotency,
		Health:      healthHandler,
	}, handler.Services{
		Bookings:  bookingService,
		Payments:  paymentService,
		Reviews:   reviewService,
		Campsites: campsiteService,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}
