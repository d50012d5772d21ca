package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"signalengine/src/model"
)

// MainDB is the primary read/write database connection used by the engine.
var MainDB *gorm.DB

// InitMainDB initializes the main database connection and runs migrations.
// Call once at startup.
func InitMainDB() error {
	config := GetConfig()

	dialector, err := dialectorFor(config)
	if err != nil {
		return err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB from GORM: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	// Assign to the global only after a successful connection.
	MainDB = db

	logrus.WithField("driver", config.Driver).Info("[database] MainDB connection established")

	if err := MainDB.AutoMigrate(
		&model.SignalRecord{},
		&model.ClosedPositionRecord{},
		&model.OHLCVCandle1m{},
	); err != nil {
		return fmt.Errorf("failed to run migrations on MainDB: %w", err)
	}

	logrus.Info("[database] MainDB migrations completed")

	return nil
}

func dialectorFor(config Config) (gorm.Dialector, error) {
	switch config.Driver {
	case "postgres":
		return postgres.Open(config.DatabaseURL), nil
	case "sqlite":
		return sqlite.Open(config.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.Driver)
	}
}
