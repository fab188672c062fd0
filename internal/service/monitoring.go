package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ifuryst/pagemill/internal/models"
)

const (
	SourceGeneration = "generation"
	SourceScan       = "scan"
	SourceScheduler  = "scheduler"
)

type MonitoringService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewMonitoringService(db *gorm.DB, logger *zap.Logger) *MonitoringService {
	return &MonitoringService{
		db:     db,
		logger: logger,
	}
}

// RecordError stores an operator-visible error log entry
func (m *MonitoringService) RecordError(ctx context.Context, level, source, title, message string, options ...ErrorLogOption) error {
	errorLog := &models.ErrorLog{
		Level:   level,
		Source:  source,
		Title:   title,
		Message: message,
	}

	for _, option := range options {
		option(errorLog)
	}

	if err := m.db.WithContext(ctx).Create(errorLog).Error; err != nil {
		m.logger.Error("Failed to record error log",
			zap.String("source", source),
			zap.String("title", title),
			zap.Error(err))
		return err
	}
	return nil
}

// ErrorLogOption sets optional error log fields
type ErrorLogOption func(*models.ErrorLog)

func WithJob(jobID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.JobID = jobID
	}
}

func WithPage(pageID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.PageID = pageID
	}
}

func WithCode(code string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.Code = code
	}
}

func WithStackTrace(stackTrace string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.StackTrace = stackTrace
	}
}

func WithContext(context map[string]interface{}) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.Context = datatypes.JSONMap(context)
	}
}

// UpdateDashboardSummary recomputes the single dashboard rollup row
func (m *MonitoringService) UpdateDashboardSummary(ctx context.Context) error {
	db := m.db.WithContext(ctx)
	today := time.Now().Truncate(24 * time.Hour)

	count := func(model interface{}, query string, args ...interface{}) (int, error) {
		var n int64
		q := db.Model(model)
		if query != "" {
			q = q.Where(query, args...)
		}
		if err := q.Count(&n).Error; err != nil {
			return 0, err
		}
		return int(n), nil
	}

	summary := models.DashboardSummary{ID: 1}
	counters := []struct {
		dst   *int
		model interface{}
		query string
		args  []interface{}
	}{
		{&summary.TotalPages, &models.Page{}, "", nil},
		{&summary.DraftPages, &models.Page{}, "status = ?", []interface{}{models.PageStatusDraft}},
		{&summary.PublishedPages, &models.Page{}, "status = ?", []interface{}{models.PageStatusPublished}},
		{&summary.ReviewPages, &models.Page{}, "status = ?", []interface{}{models.PageStatusReview}},
		{&summary.ArchivedPages, &models.Page{}, "status = ?", []interface{}{models.PageStatusArchived}},
		{&summary.HealthOKPages, &models.Page{}, "health_status = ?", []interface{}{models.HealthOK}},
		{&summary.HealthWarnPages, &models.Page{}, "health_status = ?", []interface{}{models.HealthWarn}},
		{&summary.HealthFailPages, &models.Page{}, "health_status = ?", []interface{}{models.HealthFail}},
		{&summary.UnscannedPages, &models.Page{}, "health_status = '' OR health_status IS NULL", nil},
		{&summary.RunningGenerations, &models.GenerationJob{}, "status IN ?", []interface{}{[]string{models.JobStatusQueued, models.JobStatusRunning}}},
		{&summary.RunningScans, &models.HealthScanJob{}, "status IN ?", []interface{}{[]string{models.ScanStatusQueued, models.ScanStatusRunning}}},
		{&summary.UnresolvedErrors, &models.ErrorLog{}, "resolved = ?", []interface{}{false}},
	}
	for _, c := range counters {
		n, err := count(c.model, c.query, c.args...)
		if err != nil {
			return fmt.Errorf("failed to count dashboard stats: %w", err)
		}
		*c.dst = n
	}

	failedGenerations, err := count(&models.GenerationJob{}, "status = ? AND created_at >= ?", models.JobStatusError, today)
	if err != nil {
		return fmt.Errorf("failed to count failed jobs: %w", err)
	}
	failedScans, err := count(&models.HealthScanJob{}, "status = ? AND created_at >= ?", models.ScanStatusFailed, today)
	if err != nil {
		return fmt.Errorf("failed to count failed scans: %w", err)
	}
	summary.FailedJobsToday = failedGenerations + failedScans

	var lastGeneration models.GenerationJob
	if err := db.Where("finished_at IS NOT NULL").Order("finished_at desc").Take(&lastGeneration).Error; err == nil {
		summary.LastGenerationAt = lastGeneration.FinishedAt
	}
	var lastScan models.HealthScanJob
	if err := db.Where("finished_at IS NOT NULL").Order("finished_at desc").Take(&lastScan).Error; err == nil {
		summary.LastScanAt = lastScan.FinishedAt
	}

	return db.Save(&summary).Error
}

// GetDashboardSummary returns the rollup row, computing it on first use
func (m *MonitoringService) GetDashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	var summary models.DashboardSummary
	err := m.db.WithContext(ctx).First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := m.UpdateDashboardSummary(ctx); err != nil {
			return nil, err
		}
		err = m.db.WithContext(ctx).First(&summary).Error
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// GetRecentErrors lists the newest error logs, optionally only unresolved ones
func (m *MonitoringService) GetRecentErrors(ctx context.Context, limit int, unresolvedOnly bool) ([]models.ErrorLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := m.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if unresolvedOnly {
		query = query.Where("resolved = ?", false)
	}

	var logs []models.ErrorLog
	err := query.Find(&logs).Error
	return logs, err
}

// ResolveError marks an error log entry as handled by an operator
func (m *MonitoringService) ResolveError(ctx context.Context, id uint) error {
	now := time.Now()
	res := m.db.WithContext(ctx).Model(&models.ErrorLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"resolved": true, "resolved_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to resolve error log: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrErrorLogNotFound
	}
	return nil
}

// CleanupOldData removes resolved error logs and finished jobs older than daysToKeep
func (m *MonitoringService) CleanupOldData(ctx context.Context, daysToKeep int) error {
	db := m.db.WithContext(ctx)
	cutoffDate := time.Now().AddDate(0, 0, -daysToKeep)

	if err := db.Where("created_at < ? AND resolved = ?", cutoffDate, true).Delete(&models.ErrorLog{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup resolved errors: %w", err)
	}

	terminal := []string{models.JobStatusDone, models.JobStatusCanceled, models.JobStatusError}
	if err := db.Where("finished_at < ? AND status IN ?", cutoffDate, terminal).Delete(&models.GenerationJob{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup generation jobs: %w", err)
	}

	finished := []string{models.ScanStatusSucceeded, models.ScanStatusFailed}
	if err := db.Where("finished_at < ? AND status IN ?", cutoffDate, finished).Delete(&models.HealthScanJob{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup scan jobs: %w", err)
	}

	return nil
}
