package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/pagemill/internal/config"
	"github.com/ifuryst/pagemill/internal/models"
)

// Scheduler submits a full-corpus health scan on a fixed interval.
type Scheduler struct {
	config      *config.SchedulerConfig
	logger      *zap.Logger
	scanService *HealthScanService
	monitoring  *MonitoringService
	ticker      *time.Ticker
	stopCh      chan struct{}
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, scanService *HealthScanService, monitoring *MonitoringService) *Scheduler {
	return &Scheduler{
		config:      cfg,
		logger:      logger,
		scanService: scanService,
		monitoring:  monitoring,
		stopCh:      make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.ScanInterval)
	if err != nil {
		s.logger.Error("Invalid scan interval", zap.String("interval", s.config.ScanInterval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler", zap.String("scan_interval", s.config.ScanInterval))

	s.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.logger.Info("Running scheduled health scan")
				if err := s.runScan(ctx); err != nil {
					s.logger.Error("Scheduled health scan failed", zap.Error(err))
				}
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown completed")
}

// runScan submits a scan of every page unless one is already queued or running.
func (s *Scheduler) runScan(ctx context.Context) error {
	active, err := s.scanService.HasActiveScan(ctx)
	if err != nil {
		return err
	}
	if active {
		s.logger.Info("Skipping scheduled scan, another scan is in progress")
		return nil
	}

	job, err := s.scanService.Submit(ctx, models.ScanInput{Scope: models.ScanScopeAll})
	if err != nil {
		if recErr := s.monitoring.RecordError(ctx, "error", SourceScheduler, "Scheduled scan submission failed", err.Error()); recErr != nil {
			s.logger.Error("Failed to record scheduled scan error",
				zap.NamedError("submit_error", err),
				zap.Error(recErr))
		}
		return err
	}

	s.logger.Info("Scheduled health scan submitted", zap.String("job_id", job.ID))
	return nil
}
