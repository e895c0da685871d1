package database

import (
	"strings"

	"qabackend/config"
	"qabackend/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// NewDB opens MySQL, or SQLite when the DSN starts with sqlite:// (local runs
// and tests).
func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector := mysql.Open(cfg.DSN)
	sqliteDSN, isSQLite := strings.CutPrefix(cfg.DSN, sqlitePrefix)
	if isSQLite {
		dialector = sqlite.Open(sqliteDSN)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// SQLite allows one writer; a single connection keeps shared-cache
		// memory databases free of lock errors.
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.QuestionType{},
		&models.Question{},
		&models.Answer{},
		&models.Earning{},
		&models.Refund{},
		&models.PaymentEvent{},
		&models.Notification{},
		&models.Withdrawal{},
	)
}
