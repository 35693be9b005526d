package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rmtechsolution/valentine-backend/services/story-service/config"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Retry controls how often opening the database is attempted and how long
// to wait before attempt n (1-based) is retried.
type Retry struct {
	Attempts int
	Delay    func(attempt int) time.Duration
}

// DefaultRetry waits 2s, 4s, 6s... between attempts, for up to 10 attempts.
var DefaultRetry = Retry{
	Attempts: 10,
	Delay:    func(attempt int) time.Duration { return time.Duration(attempt) * 2 * time.Second },
}

// DSN builds the postgres connection string from cfg.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.PostgresHost, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB,
		cfg.PostgresPort, cfg.PostgresSSLMode, cfg.PostgresTimeZone,
	)
}

// ConnectPostgres opens the database described by cfg and migrates tables.
func ConnectPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger, tables ...any) (*gorm.DB, error) {
	return open(ctx, postgres.Open(DSN(cfg)), DefaultRetry, logger, tables...)
}

func open(ctx context.Context, dialector gorm.Dialector, retry Retry, logger *zap.Logger, tables ...any) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
		if err == nil {
			configurePool(db)
			logger.Info("Connected to PostgreSQL", zap.Int("attempt", attempt))
			if len(tables) > 0 {
				if err := db.WithContext(ctx).AutoMigrate(tables...); err != nil {
					return nil, fmt.Errorf("auto-migrate: %w", err)
				}
			}
			return db, nil
		}
		lastErr = err
		if attempt == retry.Attempts {
			break
		}

		delay := retry.Delay(attempt)
		logger.Warn("PostgreSQL not reachable, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to PostgreSQL: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("connect to PostgreSQL after %d attempts: %w", retry.Attempts, lastErr)
}

func configurePool(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Minute)
}

// Connect opens DB with the ledger and promo catalog tables.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := ConnectPostgres(ctx, cfg, logger, &models.PaymentAttempt{}, &models.PromoCode{})
	if err != nil {
		return err
	}
	DB = db
	return nil
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
