package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const statsRetentionDays = 90

// StatsUpdater handles periodic dashboard refreshes and housekeeping
type StatsUpdater struct {
	monitoringService *MonitoringService
	sessions          *SessionStore
	logger            *zap.Logger
	ticker            *time.Ticker
	done              chan bool
}

// NewStatsUpdater creates a new stats updater. sessions may be nil when
// login is disabled.
func NewStatsUpdater(monitoringService *MonitoringService, sessions *SessionStore, logger *zap.Logger, interval time.Duration) *StatsUpdater {
	return &StatsUpdater{
		monitoringService: monitoringService,
		sessions:          sessions,
		logger:            logger,
		ticker:            time.NewTicker(interval),
		done:              make(chan bool),
	}
}

// Start begins the periodic stats update process
func (s *StatsUpdater) Start(ctx context.Context) {
	go func() {
		s.logger.Info("Starting stats updater")
		s.updateStats(ctx)
		for {
			select {
			case <-s.done:
				s.logger.Info("Stats updater stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Stats updater stopped due to context cancellation")
				return
			case <-s.ticker.C:
				s.updateStats(ctx)
			}
		}
	}()
}

// Stop stops the stats updater
func (s *StatsUpdater) Stop() {
	s.ticker.Stop()
	close(s.done)
}

func (s *StatsUpdater) updateStats(ctx context.Context) {
	s.logger.Debug("Updating statistics")

	if err := s.monitoringService.UpdateDashboardSummary(ctx); err != nil {
		s.logger.Error("Failed to update dashboard summary", zap.Error(err))
	}

	if err := s.monitoringService.CleanupOldData(ctx, statsRetentionDays); err != nil {
		s.logger.Error("Failed to cleanup old data", zap.Error(err))
	}

	if s.sessions != nil {
		if removed := s.sessions.Purge(); removed > 0 {
			s.logger.Debug("Purged expired sessions", zap.Int("count", removed))
		}
	}

	s.logger.Debug("Statistics updated successfully")
}
