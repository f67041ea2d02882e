package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/trailhead-stays/service-booking/internal/platform/database"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/telemetry"
)

type txKey struct{}

// ContentionMessage is reported when a unit of work keeps losing to
// concurrent writers until its retries run out.
const ContentionMessage = "The request conflicted with concurrent changes, please try again"

// GormTransactor runs units of work in SERIALIZABLE transactions, or READ
// COMMITTED ones for callers that serialize through row locks, and re-runs
// them when Postgres reports a serialization failure or deadlock.
type GormTransactor struct {
	db         *gorm.DB
	maxRetries int
	logger     *zap.Logger
}

// NewGormTransactor creates a new GormTransactor. maxRetries is the total
// number of attempts and is at least 1.
func NewGormTransactor(db *gorm.DB, maxRetries int, logger *zap.Logger) *GormTransactor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &GormTransactor{db: db, maxRetries: maxRetries, logger: logger}
}

// WithinTransaction implements application.Transactor. A call made with a ctx
// that already carries a transaction joins it.
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.run(ctx, sql.LevelSerializable, fn)
}

// WithinLockingTransaction implements application.Transactor.
func (t *GormTransactor) WithinLockingTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.run(ctx, sql.LevelReadCommitted, fn)
}

func (t *GormTransactor) run(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	ctx, span := telemetry.StartSpan(ctx, "db.transaction", attribute.String("db.isolation", isolation.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	for attempt := 1; ; attempt++ {
		err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		}, &sql.TxOptions{Isolation: isolation})

		if err == nil || !database.IsRetryable(err) {
			return err
		}
		if attempt >= t.maxRetries {
			t.logger.Warn("transaction retries exhausted", zap.Int("attempts", attempt), zap.Error(err))
			return contentionError(attempt, err)
		}
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		t.logger.Warn("retrying transaction after serialization failure",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

// contentionError reports a retryable failure that outlasted every attempt as
// a conflict the client may retry, keeping the store error for logs.
func contentionError(attempts int, err error) error {
	return fmt.Errorf("%w: gave up after %d attempts: %w", domain.NewConflictError(ContentionMessage), attempts, err)
}

// conn returns the transaction carried by ctx, or the pool.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
