package config

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/competition-scorer/internal/models"
)

// InitDatabase opens the record store, sizes its pool and migrates the
// competitions, test_datasets and submissions tables.
func InitDatabase(cfg *Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	pool := cfg.Database.pool()
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	log.Printf("✅ Database connected (pool: %d open, %d idle)\n", pool.MaxOpenConns, pool.MaxIdleConns)

	// Competitions before the tables that reference them.
	if err := db.AutoMigrate(
		&models.Competition{},
		&models.TestDataset{},
		&models.Submission{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("✅ Database migration completed (one answer key per competition phase)")

	return db, nil
}

// pool clamps the connection settings: at least one open connection, idle
// never above open.
func (d DatabaseConfig) pool() DatabaseConfig {
	if d.MaxOpenConns <= 0 {
		d.MaxOpenConns = 10
	}
	if d.MaxIdleConns < 0 {
		d.MaxIdleConns = 0
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		d.MaxIdleConns = d.MaxOpenConns
	}
	if d.ConnMaxLifetime < 0 {
		d.ConnMaxLifetime = 0
	}
	return d
}
