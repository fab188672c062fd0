package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ifuryst/pagemill/internal/config"
	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/internal/service/fingerprint"
	"github.com/ifuryst/pagemill/internal/service/qa"
	"github.com/ifuryst/pagemill/pkg/util"
)

const (
	jobKindScan = "scan"

	// SlugSection is the fingerprint section used for slug-path uniqueness.
	SlugSection = "slug"

	noServiceScope = "_none"
)

// HealthScanService re-evaluates stored pages and writes health snapshots back.
//
// A scan runs in two passes over the same target set. The fingerprint pass
// records every page's section hashes; the evaluate pass reads the counts
// back, so both pages of a duplicate pair see each other in one scan.
type HealthScanService struct {
	cfg        *config.ScanConfig
	db         *gorm.DB
	index      fingerprint.Index
	engine     *qa.Engine
	monitoring *MonitoringService
	runner     *JobRunner
	logger     *zap.Logger

	now func() time.Time
}

func NewHealthScanService(
	cfg *config.ScanConfig,
	db *gorm.DB,
	index fingerprint.Index,
	engine *qa.Engine,
	monitoring *MonitoringService,
	runner *JobRunner,
	logger *zap.Logger,
) *HealthScanService {
	return &HealthScanService{
		cfg:        cfg,
		db:         db,
		index:      index,
		engine:     engine,
		monitoring: monitoring,
		runner:     runner,
		logger:     logger,
		now:        time.Now,
	}
}

// NormalizeScanInput validates the scope and drops parameters other scopes
// would ignore. Explicit id lists are deduplicated and may hold at most maxIDs ids.
func NormalizeScanInput(in models.ScanInput, maxIDs int) (models.ScanInput, error) {
	out := models.ScanInput{Scope: strings.TrimSpace(in.Scope)}
	switch out.Scope {
	case "", models.ScanScopeAll:
		out.Scope = models.ScanScopeAll
	case models.ScanScopeServiceKey:
		out.ServiceKey = strings.TrimSpace(in.ServiceKey)
		if out.ServiceKey == "" {
			return out, fmt.Errorf("%w: serviceKey scope requires serviceKey", ErrInvalidScope)
		}
	case models.ScanScopeZip:
		out.Zip = strings.TrimSpace(in.Zip)
		if !util.IsZip(out.Zip) {
			return out, fmt.Errorf("%w: zip scope requires a 5-digit zip", ErrInvalidScope)
		}
	case models.ScanScopePageIDs:
		ids := make([]string, 0, len(in.PageIDs))
		for _, id := range in.PageIDs {
			ids = append(ids, strings.TrimSpace(id))
		}
		ids = util.UniqueStrings(ids)
		if len(ids) == 0 {
			return out, fmt.Errorf("%w: pageIds scope requires at least one id", ErrInvalidScope)
		}
		if maxIDs > 0 && len(ids) > maxIDs {
			return out, fmt.Errorf("%w: pageIds accepts at most %d ids, got %d", ErrInvalidScope, maxIDs, len(ids))
		}
		out.PageIDs = ids
	default:
		return out, fmt.Errorf("%w: unknown scope %q", ErrInvalidScope, in.Scope)
	}
	return out, nil
}

// Submit stores a queued scan job and starts it in the background.
func (h *HealthScanService) Submit(ctx context.Context, in models.ScanInput) (*models.HealthScanJob, error) {
	in, err := NormalizeScanInput(in, h.cfg.MaxPageIDs)
	if err != nil {
		return nil, err
	}

	job := &models.HealthScanJob{
		ID:     uuid.NewString(),
		Status: models.ScanStatusQueued,
		Input:  datatypes.NewJSONType(in),
		Output: datatypes.NewJSONType(models.ScanOutput{}),
	}
	if err := h.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create scan job: %w", err)
	}

	h.logger.Info("Health scan submitted",
		zap.String("job_id", job.ID),
		zap.String("scope", in.Scope))

	jobID := job.ID
	h.runner.Go(jobKindScan, jobID, func(ctx context.Context) {
		if err := h.Execute(ctx, jobID); err != nil {
			h.logger.Error("Health scan failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}, func(err error, stack string) {
		h.finish(context.Background(), jobID, models.ScanStatusFailed, models.ScanOutput{}, models.ScanProgress{}, err, stack)
	})

	return job, nil
}

// HasActiveScan reports whether any scan is queued or running.
func (h *HealthScanService) HasActiveScan(ctx context.Context) (bool, error) {
	var n int64
	err := h.db.WithContext(ctx).Model(&models.HealthScanJob{}).
		Where("status IN ?", []string{models.ScanStatusQueued, models.ScanStatusRunning}).
		Count(&n).Error
	return n > 0, err
}

func (h *HealthScanService) scoped(ctx context.Context, in models.ScanInput) *gorm.DB {
	query := h.db.WithContext(ctx).Model(&models.Page{})
	switch in.Scope {
	case models.ScanScopeServiceKey:
		query = query.Where("service_key = ?", in.ServiceKey)
	case models.ScanScopeZip:
		query = query.Where("zip = ?", in.Zip)
	}
	return query
}

func (h *HealthScanService) countTargets(ctx context.Context, in models.ScanInput) (int, error) {
	if in.Scope == models.ScanScopePageIDs {
		return len(in.PageIDs), nil
	}
	var n int64
	if err := h.scoped(ctx, in).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// walk visits the target pages in stable order. visited is the number of
// targets consumed by the call, which can exceed len(pages) when listed ids
// no longer exist.
func (h *HealthScanService) walk(ctx context.Context, in models.ScanInput, visit func(pages []models.Page, visited int) error) error {
	if in.Scope == models.ScanScopePageIDs {
		for _, id := range in.PageIDs {
			var page models.Page
			err := h.db.WithContext(ctx).Where("id = ?", id).Take(&page).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := visit(nil, 1); err != nil {
					return err
				}
			case err != nil:
				return fmt.Errorf("failed to load page %s: %w", id, err)
			default:
				if err := visit([]models.Page{page}, 1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	size := h.cfg.PageSize
	if size <= 0 {
		size = 200
	}
	cursor := ""
	for {
		var pages []models.Page
		query := h.scoped(ctx, in)
		if cursor != "" {
			query = query.Where("id > ?", cursor)
		}
		if err := query.Order("id").Limit(size).Find(&pages).Error; err != nil {
			return fmt.Errorf("failed to page through targets: %w", err)
		}
		if len(pages) == 0 {
			return nil
		}
		if err := visit(pages, len(pages)); err != nil {
			return err
		}
		if len(pages) < size {
			return nil
		}
		cursor = pages[len(pages)-1].ID
	}
}

// occurrences returns the fingerprints a page contributes: one per required
// section with text, plus its slug path in the global scope.
func (h *HealthScanService) occurrences(page *models.Page, sections map[string]string) []fingerprint.Occurrence {
	stopwords := fingerprint.Stopwords(
		page.PlaceName,
		page.CityName,
		page.CountyName,
		page.Zip,
		page.ServiceName,
	)
	scope := page.ServiceKey
	if scope == "" {
		scope = noServiceScope
	}

	out := make([]fingerprint.Occurrence, 0, len(sections)+1)
	for _, key := range h.engine.RequiredSections() {
		hash := fingerprint.Hash(fingerprint.Normalize(sections[key], stopwords))
		if hash == "" {
			continue
		}
		out = append(out, fingerprint.Occurrence{Scope: scope, Section: key, Hash: hash, PageID: page.ID})
	}

	if slug := strings.ToLower(strings.TrimSpace(page.SlugPath)); slug != "" {
		out = append(out, fingerprint.Occurrence{
			Scope:   h.cfg.GlobalScope,
			Section: SlugSection,
			Hash:    fingerprint.Hash(slug),
			PageID:  page.ID,
		})
	}
	return out
}

// Execute runs a queued scan to a terminal state.
func (h *HealthScanService) Execute(ctx context.Context, jobID string) error {
	job, err := h.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.ScanStatusQueued {
		return nil
	}
	in := job.Input.Data()

	total, err := h.countTargets(ctx, in)
	if err != nil {
		return h.fail(ctx, jobID, models.ScanOutput{}, models.ScanProgress{}, fmt.Errorf("failed to count targets: %w", err))
	}

	started := h.now()
	progress := models.ScanProgress{Total: total}
	res := h.db.WithContext(ctx).Model(&models.HealthScanJob{}).
		Where("id = ? AND status = ?", jobID, models.ScanStatusQueued).
		Updates(map[string]interface{}{
			"status":           models.ScanStatusRunning,
			"phase":            models.ScanPhaseFingerprint,
			"started_at":       started,
			"progress_total":   total,
			"progress_done":    0,
			"progress_percent": 0,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to start scan job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}

	// Fingerprint pass.
	recorded := 0
	err = h.walk(ctx, in, func(pages []models.Page, visited int) error {
		for i := range pages {
			page := &pages[i]
			for _, occ := range h.occurrences(page, h.engine.Extract(page)) {
				if _, err := h.index.Record(ctx, occ); err != nil {
					return fmt.Errorf("failed to record fingerprint for page %s: %w", page.ID, err)
				}
			}
		}
		recorded += visited
		progress.Percent = percentOf(recorded, total, 0)
		return h.writeProgress(ctx, jobID, models.ScanPhaseFingerprint, progress)
	})
	if err != nil {
		return h.fail(ctx, jobID, models.ScanOutput{}, progress, err)
	}

	// Evaluate pass.
	var output models.ScanOutput
	err = h.walk(ctx, in, func(pages []models.Page, visited int) error {
		ops := make([]func(tx *gorm.DB) error, 0, len(pages))
		for i := range pages {
			page := &pages[i]
			snapshot, err := h.inspect(ctx, page, jobID)
			if err != nil {
				return err
			}

			output.Scanned++
			switch snapshot.Status {
			case models.HealthWarn:
				output.Warns++
			case models.HealthFail:
				output.Fails++
			}
			ops = append(ops, h.writeHealthOp(page.ID, snapshot, &output))
		}

		if err := commitInChunks(ctx, h.db, h.cfg.WriteBatchLimit, ops); err != nil {
			return fmt.Errorf("failed to write health results: %w", err)
		}

		progress.Done += visited
		if progress.Done > total {
			progress.Done = total
		}
		progress.Percent = percentOf(progress.Done, total, 50)
		return h.writeProgress(ctx, jobID, models.ScanPhaseEvaluate, progress)
	})
	if err != nil {
		return h.fail(ctx, jobID, output, progress, err)
	}

	progress.Done = total
	progress.Percent = 100
	h.finish(ctx, jobID, models.ScanStatusSucceeded, output, progress, nil, "")

	h.logger.Info("Health scan finished",
		zap.String("job_id", jobID),
		zap.Int("scanned", output.Scanned),
		zap.Int("updated", output.Updated),
		zap.Int("warns", output.Warns),
		zap.Int("fails", output.Fails),
		zap.Duration("elapsed", h.now().Sub(started)))
	return nil
}

// inspect evaluates one page against the rules and the current fingerprint counts.
func (h *HealthScanService) inspect(ctx context.Context, page *models.Page, jobID string) (*models.HealthSnapshot, error) {
	sections := h.engine.Extract(page)
	ev := h.engine.Evaluate(page, sections)

	var duplicates []models.DuplicateHit
	for _, occ := range h.occurrences(page, sections) {
		entry, err := h.index.Lookup(ctx, occ.Scope, occ.Section, occ.Hash)
		if err != nil {
			return nil, fmt.Errorf("failed to look up fingerprint for page %s: %w", page.ID, err)
		}
		if entry.Count > 1 {
			duplicates = append(duplicates, models.DuplicateHit{
				Section:   occ.Section,
				Scope:     occ.Scope,
				Hash:      occ.Hash,
				Count:     entry.Count,
				SampleIDs: entry.SampleIDs,
			})
		}
	}

	missing := len(ev.MissingRequired)
	return &models.HealthSnapshot{
		Status:          qa.Status(missing, ev.Failures, len(duplicates)),
		Score:           qa.Score(missing, ev.Failures, len(duplicates)),
		Failures:        ev.Failures,
		MissingRequired: ev.MissingRequired,
		Duplicates:      duplicates,
		SectionLengths:  ev.SectionLengths,
		TotalChars:      ev.TotalChars,
		ScanJobID:       jobID,
		ScannedAt:       h.now(),
	}, nil
}

// writeHealthOp merges the snapshot and its flattened fields onto the page.
func (h *HealthScanService) writeHealthOp(pageID string, snapshot *models.HealthSnapshot, output *models.ScanOutput) func(tx *gorm.DB) error {
	warns, fails := qa.CountSeverities(snapshot.Failures)
	scannedAt := snapshot.ScannedAt
	return func(tx *gorm.DB) error {
		res := tx.Model(&models.Page{}).Where("id = ?", pageID).Updates(map[string]interface{}{
			"health":            datatypes.NewJSONType(snapshot),
			"health_status":     snapshot.Status,
			"health_score":      snapshot.Score,
			"health_warn_count": warns,
			"health_fail_count": fails + len(snapshot.MissingRequired),
			"health_dup_count":  len(snapshot.Duplicates),
			"health_scanned_at": scannedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			output.Updated++
		}
		return nil
	}
}

// percentOf maps one pass onto its half of the scan's percent range.
func percentOf(done, total, base int) int {
	if total <= 0 {
		return base
	}
	return base + done*50/total
}

func (h *HealthScanService) writeProgress(ctx context.Context, jobID, phase string, progress models.ScanProgress) error {
	return h.db.WithContext(ctx).Model(&models.HealthScanJob{}).
		Where("id = ? AND status = ?", jobID, models.ScanStatusRunning).
		Updates(map[string]interface{}{
			"phase":            phase,
			"progress_done":    progress.Done,
			"progress_total":   progress.Total,
			"progress_percent": progress.Percent,
		}).Error
}

func (h *HealthScanService) fail(ctx context.Context, jobID string, output models.ScanOutput, progress models.ScanProgress, err error) error {
	if ctx.Err() != nil {
		err = &JobError{Code: CodeInterrupted, Err: err}
	}
	h.finish(ctx, jobID, models.ScanStatusFailed, output, progress, err, "")
	return err
}

func (h *HealthScanService) finish(ctx context.Context, jobID, status string, output models.ScanOutput, progress models.ScanProgress, scanErr error, stack string) {
	ctx = context.WithoutCancel(ctx)

	updates := map[string]interface{}{
		"status":           status,
		"output":           datatypes.NewJSONType(output),
		"progress_done":    progress.Done,
		"progress_percent": progress.Percent,
		"finished_at":      h.now(),
	}
	if scanErr != nil {
		updates["error_message"] = scanErr.Error()
	}

	err := h.db.WithContext(ctx).Model(&models.HealthScanJob{}).
		Where("id = ? AND status IN ?", jobID, []string{models.ScanStatusQueued, models.ScanStatusRunning}).
		Updates(updates).Error
	if err != nil {
		h.logger.Error("Failed to finish scan job",
			zap.String("job_id", jobID),
			zap.String("status", status),
			zap.Error(err))
	}

	if scanErr != nil && h.monitoring != nil {
		opts := []ErrorLogOption{WithJob(jobID)}
		var coded *JobError
		if errors.As(scanErr, &coded) {
			opts = append(opts, WithCode(coded.Code))
		}
		if stack != "" {
			opts = append(opts, WithStackTrace(stack))
		}
		if err := h.monitoring.RecordError(ctx, "error", SourceScan, "Health scan failed", scanErr.Error(), opts...); err != nil {
			h.logger.Error("Failed to record health scan error",
				zap.String("job_id", jobID),
				zap.Error(err))
		}
	}
}

func (h *HealthScanService) Get(ctx context.Context, jobID string) (*models.HealthScanJob, error) {
	var job models.HealthScanJob
	err := h.db.WithContext(ctx).Where("id = ?", jobID).Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan job: %w", err)
	}
	return &job, nil
}

func (h *HealthScanService) List(ctx context.Context, limit int) ([]models.HealthScanJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var jobs []models.HealthScanJob
	if err := h.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list scan jobs: %w", err)
	}
	return jobs, nil
}
