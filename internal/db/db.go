package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wemaster/booking-core/internal/config"
	"github.com/wemaster/booking-core/internal/models"
)

func NewDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		PrepareStmt: true,
		Logger:      gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return db, nil
}

// Models lists every table AutoMigrate owns. Constraints gorm tags cannot
// express live in the goose migrations.
func Models() []any {
	return []any{
		&models.Course{},
		&models.TimeSlot{},
		&models.Booking{},
		&models.RescheduleRequest{},
		&models.PaymentRecord{},
		&models.Appeal{},
		&models.AppealEvidence{},
		&models.WalletBalance{},
		&models.WalletTransaction{},
		&models.AuditLog{},
	}
}
