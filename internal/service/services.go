package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/pagemill/internal/config"
	"github.com/ifuryst/pagemill/internal/service/fingerprint"
	"github.com/ifuryst/pagemill/internal/service/qa"
)

// Services is the wired set of application services shared by the HTTP
// server and the CLI commands.
type Services struct {
	Runner     *JobRunner
	Catalog    *CatalogService
	Pages      *PageService
	Monitoring *MonitoringService
	Generation *GenerationService
	Scan       *HealthScanService
	Index      fingerprint.Index

	redis *redis.Client
}

func NewServices(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*Services, error) {
	index, rdb, err := newIndex(cfg, db, logger)
	if err != nil {
		return nil, err
	}

	runner := NewJobRunner(logger)
	catalog := NewCatalogService(db, logger)
	pages := NewPageService(&cfg.Generation, db, catalog, logger)
	monitoring := NewMonitoringService(db, logger)
	engine := qa.NewEngine(qa.Thresholds{
		MinTotalChars:   cfg.QA.MinTotalChars,
		MinSectionChars: cfg.QA.MinSectionChars,
		MinHeroChars:    cfg.QA.MinHeroChars,
		MinFAQChars:     cfg.QA.MinFAQChars,
		MinCTAChars:     cfg.QA.MinCTAChars,
	})

	return &Services{
		Runner:     runner,
		Catalog:    catalog,
		Pages:      pages,
		Monitoring: monitoring,
		Generation: NewGenerationService(&cfg.Generation, db, catalog, pages, monitoring, runner, logger),
		Scan:       NewHealthScanService(&cfg.Scan, db, index, engine, monitoring, runner, logger),
		Index:      index,
		redis:      rdb,
	}, nil
}

func newIndex(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (fingerprint.Index, *redis.Client, error) {
	switch cfg.Fingerprint.Backend {
	case "", "db":
		return fingerprint.NewDBIndex(db, cfg.Fingerprint.SampleLimit), nil, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		logger.Info("Using redis fingerprint index", zap.String("addr", cfg.Redis.Addr))
		return fingerprint.NewRedisIndex(rdb, cfg.Redis.Prefix, cfg.Fingerprint.SampleLimit), rdb, nil
	default:
		return nil, nil, fmt.Errorf("unsupported fingerprint backend %q", cfg.Fingerprint.Backend)
	}
}

// Close stops running jobs and releases the redis connection.
func (s *Services) Close(ctx context.Context) error {
	err := s.Runner.Stop(ctx)
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
