package database

import (
	"fmt"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DB is the process-wide connection pool.
var DB *gorm.DB

// DSN returns DATABASE_URL when set (hosted Postgres), otherwise a keyword
// DSN assembled from the DB_* variables.
func DSN() string {
	if url := env.GetEnv("DATABASE_URL", ""); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_USER", "fastlog"),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_NAME", "fastlog"),
		env.GetEnv("DB_PORT", "5432"),
		env.GetEnv("DB_SSLMODE", "disable"),
	)
}

func SetupDatabase() {
	var err error
	logLevel := logger.Warn
	if env.IsDev() {
		logLevel = logger.Info
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.New(postgres.Config{
			DSN: DSN(),
			// pgbouncer in transaction mode does not support prepared statements
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			Logger: logger.Default.LogMode(logLevel),
			// unique violations surface as gorm.ErrDuplicatedKey
			TranslateError: true,
		})
		if err == nil {
			if sqlDB, sqlErr := DB.DB(); sqlErr == nil {
				sqlDB.SetMaxOpenConns(20)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(30 * time.Minute)
			}
			// Schema changes go through cmd/migrate; dev databases are
			// kept in sync automatically.
			if env.IsDev() {
				if err := DB.AutoMigrate(
					&models.Profile{},
					&models.Fast{},
					&models.BillingWebhookEvent{},
				); err != nil {
					log.Warnf("database: automigrate failed: %v", err)
				}
			}
			return
		}

		log.Warnf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// GetDB returns the shared connection pool.
func GetDB() *gorm.DB {
	return DB
}
