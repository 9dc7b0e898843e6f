// database/db.go - Database Connection (PostgreSQL)
package database

import (
	"fmt"
	"time"

	"teetime/config"
	"teetime/logging"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

// InitDB connects to PostgreSQL, configures the pool and runs migrations.
func InitDB(cfg config.App) (*gorm.DB, error) {
	conn, err := Open(postgres.Open(cfg.DSN()), cfg.DBLogLevel)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logging.Info().Msg("PostgreSQL database connected")

	if err := Migrate(conn); err != nil {
		return nil, err
	}

	db = conn
	return conn, nil
}

// Open opens a GORM connection with the settings every dialect shares.
// Timestamps are stored in UTC and unique violations surface as
// gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector, logLevel string) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         logging.NewGormLogger(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// CloseDB closes the database connection
func CloseDB() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	logging.Info().Msg("Database connection closed")
	return nil
}

// Ping checks the connection for the health endpoint.
func Ping(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
