package service

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ifuryst/pagemill/internal/config"
	"github.com/ifuryst/pagemill/internal/models"
)

// MaxBatchWrites is the hard per-commit operation limit for batched writes.
const MaxBatchWrites = 400

func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
			cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode, cfg.TimeZone)
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == "sqlite" {
		// Single writer; concurrent job goroutines would otherwise hit SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Location{},
		&models.Service{},
		&models.Page{},
		&models.GenerationJob{},
		&models.HealthScanJob{},
		&models.Fingerprint{},
		&models.FingerprintContributor{},
		&models.ErrorLog{},
		&models.DashboardSummary{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// commitInChunks applies ops in transactions of at most limit operations each.
func commitInChunks(ctx context.Context, db *gorm.DB, limit int, ops []func(tx *gorm.DB) error) error {
	if limit <= 0 || limit > MaxBatchWrites {
		limit = MaxBatchWrites
	}
	for start := 0; start < len(ops); start += limit {
		end := start + limit
		if end > len(ops) {
			end = len(ops)
		}
		chunk := ops[start:end]
		if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, op := range chunk {
				if err := op(tx); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
