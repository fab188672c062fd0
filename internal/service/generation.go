package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ifuryst/pagemill/internal/config"
	"github.com/ifuryst/pagemill/internal/models"
)

const jobKindGeneration = "generation"

// GenerationService runs batch generation jobs over location × service selections.
type GenerationService struct {
	cfg        *config.GenerationConfig
	db         *gorm.DB
	catalog    *CatalogService
	pages      *PageService
	monitoring *MonitoringService
	runner     *JobRunner
	logger     *zap.Logger

	now   func() time.Time
	build func(loc models.Location, svc models.Service, publish bool, jobID string) (*models.Page, error)
}

func NewGenerationService(
	cfg *config.GenerationConfig,
	db *gorm.DB,
	catalog *CatalogService,
	pages *PageService,
	monitoring *MonitoringService,
	runner *JobRunner,
	logger *zap.Logger,
) *GenerationService {
	return &GenerationService{
		cfg:        cfg,
		db:         db,
		catalog:    catalog,
		pages:      pages,
		monitoring: monitoring,
		runner:     runner,
		logger:     logger,
		now:        time.Now,
		build:      pages.Build,
	}
}

func (g *GenerationService) batchSize() int {
	if g.cfg.BatchSize <= 0 {
		return 25
	}
	return g.cfg.BatchSize
}

func (g *GenerationService) failFast() bool {
	return g.cfg.FailFast == nil || *g.cfg.FailFast
}

// Submit resolves the selection, stores a queued job and starts it in the
// background. Unresolvable refs return a *ResolutionError and no job.
func (g *GenerationService) Submit(ctx context.Context, sel *Selection) (*models.GenerationJob, error) {
	if sel.MaxPages < 0 || sel.MaxPages > g.cfg.MaxPagesLimit {
		return nil, &ValidationError{Field: "maxPages", Reason: fmt.Sprintf("must be between 1 and %d", g.cfg.MaxPagesLimit)}
	}

	locations, missingLocations, err := g.catalog.ResolveLocations(ctx, sel.LocationRefs)
	if err != nil {
		return nil, err
	}
	services, missingServices, err := g.catalog.ResolveServices(ctx, sel.ServiceRefs)
	if err != nil {
		return nil, err
	}
	if len(missingLocations) > 0 || len(missingServices) > 0 {
		return nil, &ResolutionError{Locations: missingLocations, Services: missingServices}
	}
	if len(locations) == 0 || len(services) == 0 {
		return nil, &ValidationError{Reason: "selection resolves to no locations or services"}
	}

	product := len(locations) * len(services)
	if sel.MaxPages == 0 && product > g.cfg.MaxPagesLimit {
		return nil, &ValidationError{
			Field:  "maxPages",
			Reason: fmt.Sprintf("selection expands to %d pages, above the limit of %d; pass a cap", product, g.cfg.MaxPagesLimit),
		}
	}

	plan := PlanPairs(locations, services, sel.MaxPages)
	job := &models.GenerationJob{
		ID:               uuid.NewString(),
		Status:           models.JobStatusQueued,
		Phase:            models.JobPhaseResolving,
		Total:            len(plan.Pairs),
		CurrentOperation: "Queued",
		Selection:        datatypes.NewJSONType(plan.Snapshot(sel)),
	}
	if err := g.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create generation job: %w", err)
	}

	g.logger.Info("Generation job submitted",
		zap.String("job_id", job.ID),
		zap.Int("locations", len(plan.Locations)),
		zap.Int("services", len(plan.Services)),
		zap.Int("total", job.Total))

	jobID := job.ID
	g.runner.Go(jobKindGeneration, jobID, func(ctx context.Context) {
		if err := g.Execute(ctx, jobID); err != nil {
			g.logger.Error("Generation job failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}, func(err error, stack string) {
		g.finish(context.Background(), jobID, models.JobStatusError, &JobError{Code: CodePanic, Err: err}, stack)
	})

	return job, nil
}

type jobProgress struct {
	started   time.Time
	total     int
	completed int
}

func (p *jobProgress) eta(now time.Time) int {
	if p.completed == 0 {
		return 0
	}
	perItem := now.Sub(p.started).Seconds() / float64(p.completed)
	return int(math.Ceil(perItem * float64(p.total-p.completed)))
}

// Execute runs a queued job to a terminal state. It returns the job's
// terminal error, if any; the same error is stored on the job record.
func (g *GenerationService) Execute(ctx context.Context, jobID string) error {
	started := g.now()
	res := g.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusQueued).
		Updates(map[string]interface{}{
			"status":            models.JobStatusRunning,
			"phase":             models.JobPhaseGenerating,
			"started_at":        started,
			"current_operation": "Loading selection",
		})
	if res.Error != nil {
		return fmt.Errorf("failed to start generation job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Already started elsewhere or finished.
		return nil
	}

	job, err := g.Get(ctx, jobID)
	if err != nil {
		return err
	}
	snap := job.Selection.Data()

	locations, err := g.catalog.LocationsByIDs(ctx, snap.LocationIDs)
	if err != nil {
		return g.fail(ctx, jobID, &JobError{Code: CodeGenerate, Err: err})
	}
	services, err := g.catalog.ServicesByKeys(ctx, snap.ServiceKeys)
	if err != nil {
		return g.fail(ctx, jobID, &JobError{Code: CodeGenerate, Err: err})
	}

	plan := PlanPairs(locations, services, snap.MaxPages)
	progress := &jobProgress{started: started, total: len(plan.Pairs)}
	batch := g.batchSize()
	var lastItemErr error

	for start := 0; start < len(plan.Pairs); start += batch {
		if ctx.Err() != nil {
			return g.fail(ctx, jobID, &JobError{Code: CodeInterrupted, Err: ctx.Err()})
		}

		canceled, err := g.isCanceled(ctx, jobID)
		if err != nil {
			return g.fail(ctx, jobID, g.classify(ctx, "read job", err))
		}
		if canceled {
			g.finish(ctx, jobID, models.JobStatusCanceled, nil, "")
			g.logger.Info("Generation job canceled",
				zap.String("job_id", jobID),
				zap.Int("completed", progress.completed))
			return nil
		}

		end := start + batch
		if end > len(plan.Pairs) {
			end = len(plan.Pairs)
		}
		for _, pair := range plan.Pairs[start:end] {
			outcome, err := g.processItem(ctx, jobID, pair, snap.Publish)
			if err != nil {
				if g.failFast() || outcome == outcomeStoreError {
					return g.fail(ctx, jobID, err)
				}
				lastItemErr = err
				g.recordItemError(ctx, jobID, PageID(pair.Location, pair.Service), err)
			}

			progress.completed++
			if err := g.writeProgress(ctx, jobID, progress, outcome, pair); err != nil {
				return g.fail(ctx, jobID, g.classify(ctx, "update job progress", err))
			}
		}
	}

	g.finish(ctx, jobID, models.JobStatusDone, nil, "")
	if lastItemErr != nil {
		// Keep the last item error visible on a partial-success job.
		err := g.db.WithContext(context.WithoutCancel(ctx)).Model(&models.GenerationJob{}).
			Where("id = ?", jobID).
			Update("error_message", lastItemErr.Error()).Error
		if err != nil {
			g.logger.Error("Failed to store last item error",
				zap.String("job_id", jobID),
				zap.NamedError("item_error", lastItemErr),
				zap.Error(err))
		}
	}

	g.logger.Info("Generation job finished",
		zap.String("job_id", jobID),
		zap.Int("completed", progress.completed),
		zap.Duration("elapsed", g.now().Sub(started)))
	return nil
}

// recordItemError reports a page that failed while the job kept going.
func (g *GenerationService) recordItemError(ctx context.Context, jobID, pageID string, err error) {
	code := CodeGenerate
	var coded *JobError
	if errors.As(err, &coded) {
		code = coded.Code
	}
	g.logger.Warn("Generation item failed",
		zap.String("job_id", jobID),
		zap.String("page_id", pageID),
		zap.Error(err))

	if g.monitoring == nil {
		return
	}
	if recErr := g.monitoring.RecordError(context.WithoutCancel(ctx), "warn", SourceGeneration, "Generation item failed", err.Error(),
		WithJob(jobID), WithPage(pageID), WithCode(code)); recErr != nil {
		g.logger.Warn("Failed to record generation item error",
			zap.String("job_id", jobID),
			zap.String("page_id", pageID),
			zap.Error(recErr))
	}
}

type itemOutcome int

const (
	outcomeCreated itemOutcome = iota
	outcomeSkipped
	outcomeGenerateError
	outcomeStoreError
)

func (g *GenerationService) processItem(ctx context.Context, jobID string, pair Pair, publish bool) (itemOutcome, error) {
	pageID := PageID(pair.Location, pair.Service)

	exists, err := g.pages.Exists(ctx, pageID)
	if err != nil {
		return outcomeStoreError, g.classify(ctx, "check page "+pageID, err)
	}
	if exists {
		return outcomeSkipped, nil
	}

	page, err := g.build(pair.Location, pair.Service, publish, jobID)
	if err != nil {
		return outcomeGenerateError, &JobError{Code: CodeGenerate, Err: fmt.Errorf("failed to generate page %s: %w", pageID, err)}
	}

	created, err := g.pages.Create(ctx, page)
	if err != nil {
		return outcomeStoreError, g.classify(ctx, "write page "+pageID, err)
	}
	if !created {
		// Another job materialized the same key between the check and the write.
		return outcomeSkipped, nil
	}
	return outcomeCreated, nil
}

func (g *GenerationService) writeProgress(ctx context.Context, jobID string, progress *jobProgress, outcome itemOutcome, pair Pair) error {
	updates := map[string]interface{}{
		"completed":                   gorm.Expr("completed + ?", 1),
		"estimated_seconds_remaining": progress.eta(g.now()),
		"current_operation": fmt.Sprintf("Generated %d of %d: %s in %s",
			progress.completed, progress.total, pair.Service.Name, pair.Location.Name),
	}
	switch outcome {
	case outcomeCreated:
		updates["created"] = gorm.Expr("created + ?", 1)
	case outcomeSkipped:
		updates["skipped"] = gorm.Expr("skipped + ?", 1)
	default:
		updates["failed"] = gorm.Expr("failed + ?", 1)
	}

	return g.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusRunning).
		Updates(updates).Error
}

func (g *GenerationService) isCanceled(ctx context.Context, jobID string) (bool, error) {
	var job models.GenerationJob
	if err := g.db.WithContext(ctx).Select("canceled").Where("id = ?", jobID).Take(&job).Error; err != nil {
		return false, err
	}
	return job.Canceled, nil
}

// classify turns a store error into a coded job error. Errors caused by the
// job context ending are reported as interrupted.
func (g *GenerationService) classify(ctx context.Context, op string, err error) *JobError {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return &JobError{Code: CodeInterrupted, Err: fmt.Errorf("failed to %s: %w", op, err)}
	}
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr
	}
	return storeError(op, err)
}

func (g *GenerationService) fail(ctx context.Context, jobID string, err error) error {
	g.finish(ctx, jobID, models.JobStatusError, err, "")
	return err
}

// finish moves a running job to a terminal status. The status guard keeps a
// terminal job from being overwritten.
func (g *GenerationService) finish(ctx context.Context, jobID, status string, jobErr error, stack string) {
	ctx = context.WithoutCancel(ctx)
	finished := g.now()

	updates := map[string]interface{}{
		"status":                      status,
		"phase":                       models.JobPhaseFinished,
		"finished_at":                 finished,
		"estimated_seconds_remaining": 0,
	}
	switch status {
	case models.JobStatusDone:
		updates["current_operation"] = "Finished"
	case models.JobStatusCanceled:
		updates["current_operation"] = "Canceled"
	case models.JobStatusError:
		updates["current_operation"] = "Failed"
	}

	code := ""
	if jobErr != nil {
		code = CodeGenerate
		var coded *JobError
		if errors.As(jobErr, &coded) {
			code = coded.Code
		}
		updates["error_code"] = code
		updates["error_message"] = jobErr.Error()
	}

	err := g.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ? AND status IN ?", jobID, []string{models.JobStatusQueued, models.JobStatusRunning}).
		Updates(updates).Error
	if err != nil {
		g.logger.Error("Failed to finish generation job",
			zap.String("job_id", jobID),
			zap.String("status", status),
			zap.Error(err))
	}

	if jobErr != nil && g.monitoring != nil {
		opts := []ErrorLogOption{WithJob(jobID), WithCode(code)}
		if stack != "" {
			opts = append(opts, WithStackTrace(stack))
		}
		if err := g.monitoring.RecordError(ctx, "error", SourceGeneration, "Generation job failed", jobErr.Error(), opts...); err != nil {
			g.logger.Error("Failed to record generation job error",
				zap.String("job_id", jobID),
				zap.Error(err))
		}
	}
}

// Cancel sets the cooperative cancel flag. The worker stops before its next
// sub-batch; a job that already finished is returned unchanged.
func (g *GenerationService) Cancel(ctx context.Context, jobID string) (*models.GenerationJob, error) {
	job, err := g.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		return job, nil
	}

	if err := g.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ?", jobID).
		Update("canceled", true).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel generation job: %w", err)
	}

	g.logger.Info("Generation job cancel requested", zap.String("job_id", jobID))
	return g.Get(ctx, jobID)
}

func (g *GenerationService) Get(ctx context.Context, jobID string) (*models.GenerationJob, error) {
	var job models.GenerationJob
	err := g.db.WithContext(ctx).Where("id = ?", jobID).Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation job: %w", err)
	}
	return &job, nil
}

func (g *GenerationService) List(ctx context.Context, limit int) ([]models.GenerationJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var jobs []models.GenerationJob
	if err := g.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list generation jobs: %w", err)
	}
	return jobs, nil
}
