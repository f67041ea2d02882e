//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/config"
	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	"github.com/trailhead-stays/service-booking/internal/domain/payment"
	bookingEvents "github.com/trailhead-stays/service-booking/internal/events"
	"github.com/trailhead-stays/service-booking/internal/platform/database"
	"github.com/trailhead-stays/service-booking/internal/platform/kafka"
	"github.com/trailhead-stays/service-booking/internal/repository"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// bookingStack holds wired-up service components backed by Postgres and Kafka.
type bookingStack struct {
	Bookings        *application.BookingService
	Payments        *application.PaymentService
	Campsites       *application.CampsiteService
	BookingRepo     *repository.GormBookingRepository
	Consumer        *bookingEvents.IdentityEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the
// embedded migrations and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	// Start PostgreSQL with a log-based wait strategy.
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbCfg := config.DatabaseConfig{
		Host:            pgHost,
		Port:            pgPort.Int(),
		User:            "test",
		Password:        "test",
		DBName:          "test_booking",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
		MaxTxRetries:    config.DefaultMaxTxRetries,
	}

	db, err := database.Connect(dbCfg, logger)
	require.NoError(t, err, "PostgreSQL not ready for connections")
	require.NoError(t, database.RunMigrations(dbCfg.DatabaseURL(), logger))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers,
		application.TopicBookingEvents,
		application.TopicReviewEvents,
		application.TopicIdentityEvents,
	)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupBookingStack wires up the services the way cmd/server does.
func setupBookingStack(t *testing.T, db *gorm.DB, brokers []string) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	bookingRepo := repository.NewGormBookingRepository(db)
	campsiteRepo := repository.NewGormCampsiteRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	tx := repository.NewGormTransactor(db, config.DefaultMaxTxRetries, logger)
	clock := application.NewSystemClock(time.UTC)
	producer := kafka.NewProducer(brokers, logger)

	bookings := application.NewBookingService(bookingRepo, campsiteRepo, userRepo,
		bookingDomain.NewNightlyPricingStrategy(), tx, clock, producer, logger)
	payments := application.NewPaymentService(bookingRepo, payment.AlwaysSucceed, tx, clock, producer, logger)
	campsites := application.NewCampsiteService(campsiteRepo, bookingRepo, userRepo, tx, clock, logger)
	users := application.NewUserService(userRepo, clock, logger)

	groupID := fmt.Sprintf("test-booking-%s", uuid.New().String()[:8])
	consumer := bookingEvents.NewIdentityEventConsumer(brokers, groupID, users, logger)

	return &bookingStack{
		Bookings:        bookings,
		Payments:        payments,
		Campsites:       campsites,
		BookingRepo:     bookingRepo,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, key, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, key, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForUserName polls the users projection until the name matches.
func waitForUserName(t *testing.T, db *gorm.DB, userID uuid.UUID, expectedName string, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		var model repository.UserModel
		if err := db.Where("id = ?", userID).First(&model).Error; err != nil {
			return false
		}
		return model.Name == expectedName
	}, timeout, 200*time.Millisecond, "user %s was not projected as %q", userID, expectedName)
}

// consumeEventFor scans the single-partition topic from the beginning for an
// event of eventType keyed by key.
func consumeEventFor(t *testing.T, brokers []string, topic, key, eventType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer func() { _ = reader.Close() }()
	require.NoError(t, reader.SetOffset(kafkago.FirstOffset))

	for {
		msg, err := reader.ReadMessage(ctx)
		if ctx.Err() != nil {
			t.Fatalf("no %q event for key %s on %q within %s", eventType, key, topic, timeout)
		}
		if err != nil || string(msg.Key) != key {
			continue
		}
		if ce, err := kafka.ParseCloudEvent(msg.Value); err == nil && ce.Type == eventType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
