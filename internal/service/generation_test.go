package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ifuryst/pagemill/internal/config"
	"github.com/ifuryst/pagemill/internal/models"
)

var expectedPageIDs = []string{
	"cook-county__evanston-il-60201__gutter-cleaning",
	"cook-county__evanston-il-60201__roof-repair",
	"cook-county__winnetka-il-60093__gutter-cleaning",
	"cook-county__winnetka-il-60093__roof-repair",
}

func fourPageSelection() *Selection {
	return &Selection{
		LocationRefs: []string{"L1", "L2", "L3"},
		ServiceRefs:  []string{"S1", "S2"},
		MaxPages:     4,
	}
}

func (e *testEnv) runGeneration(t *testing.T, sel *Selection) *models.GenerationJob {
	t.Helper()
	ctx := context.Background()

	job, err := e.services.Generation.Submit(ctx, sel)
	require.NoError(t, err)
	e.services.Runner.Wait()

	job, err = e.services.Generation.Get(ctx, job.ID)
	require.NoError(t, err)
	return job
}

func TestGenerationCreatesCappedPairs(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	job := env.runGeneration(t, fourPageSelection())

	assert.Equal(t, models.JobStatusDone, job.Status)
	assert.Equal(t, models.JobPhaseFinished, job.Phase)
	assert.Equal(t, 4, job.Total)
	assert.Equal(t, 4, job.Completed)
	assert.Equal(t, 4, job.Created)
	assert.Zero(t, job.Skipped)
	assert.Zero(t, job.Failed)
	assert.Empty(t, job.ErrorCode)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.FinishedAt)

	snap := job.Selection.Data()
	assert.Equal(t, []string{"L1", "L2"}, snap.LocationIDs)
	assert.Equal(t, []string{"roof-repair", "gutter-cleaning"}, snap.ServiceKeys)
	assert.Equal(t, 4, snap.Pairs)

	assert.Equal(t, expectedPageIDs, env.pageIDs(t))

	page, err := env.services.Pages.Get(context.Background(), "cook-county__winnetka-il-60093__roof-repair")
	require.NoError(t, err)
	assert.Equal(t, models.PageStatusDraft, page.Status)
	assert.Equal(t, "/roof-repair/winnetka-il", page.SlugPath)
	assert.Equal(t, job.ID, page.GenerationJobID)
	assert.Nil(t, page.Health.Data())
	assert.Nil(t, page.PublishedAt)
}

func TestGenerationIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	first := env.runGeneration(t, fourPageSelection())
	require.Equal(t, 4, first.Created)

	second := env.runGeneration(t, fourPageSelection())
	assert.Equal(t, models.JobStatusDone, second.Status)
	assert.Equal(t, 4, second.Completed)
	assert.Zero(t, second.Created)
	assert.Equal(t, 4, second.Skipped)

	// Skipped pages keep the job that created them.
	page, err := env.services.Pages.Get(context.Background(), expectedPageIDs[0])
	require.NoError(t, err)
	assert.Equal(t, first.ID, page.GenerationJobID)
	assert.Len(t, env.pageIDs(t), 4)
}

func TestGenerationPublish(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	sel := fourPageSelection()
	sel.Publish = true
	sel.MaxPages = 1
	job := env.runGeneration(t, sel)
	require.Equal(t, 1, job.Created)

	page, err := env.services.Pages.Get(context.Background(), "cook-county__winnetka-il-60093__roof-repair")
	require.NoError(t, err)
	assert.Equal(t, models.PageStatusPublished, page.Status)
	assert.NotNil(t, page.PublishedAt)
}

func TestGenerationUnresolvedRefsCreateNoJob(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	_, err := env.services.Generation.Submit(context.Background(), &Selection{
		LocationRefs: []string{"winnetka-il", "atlantis"},
		ServiceRefs:  []string{"roof-repair", "chimney-sweep"},
	})

	var resolution *ResolutionError
	require.ErrorAs(t, err, &resolution)
	assert.Equal(t, []string{"atlantis"}, resolution.Locations)
	assert.Equal(t, []string{"chimney-sweep"}, resolution.Services)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	var jobs int64
	require.NoError(t, env.db.Model(&models.GenerationJob{}).Count(&jobs).Error)
	assert.Zero(t, jobs)
}

func TestGenerationRejectsUncappedOverflow(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Generation.MaxPagesLimit = 5 })
	env.seedCatalog(t)

	_, err := env.services.Generation.Submit(context.Background(), &Selection{
		LocationRefs: []string{"L1", "L2", "L3"},
		ServiceRefs:  []string{"S1", "S2"},
	})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "maxPages", validation.Field)

	_, err = env.services.Generation.Submit(context.Background(), &Selection{
		LocationRefs: []string{"L1"},
		ServiceRefs:  []string{"S1"},
		MaxPages:     6,
	})
	require.ErrorAs(t, err, &validation)
}

func TestGenerationFailFast(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	gen := env.services.Generation
	calls := 0
	gen.build = func(loc models.Location, svc models.Service, publish bool, jobID string) (*models.Page, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("template exploded")
		}
		return env.services.Pages.Build(loc, svc, publish, jobID)
	}

	job := env.runGeneration(t, fourPageSelection())

	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Equal(t, CodeGenerate, job.ErrorCode)
	assert.Contains(t, job.ErrorMessage, "template exploded")
	assert.Equal(t, 1, job.Completed)
	assert.Equal(t, 1, job.Created)
	assert.Len(t, env.pageIDs(t), 1)

	logs, err := env.services.Monitoring.GetRecentErrors(context.Background(), 10, true)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, SourceGeneration, logs[0].Source)
	assert.Equal(t, job.ID, logs[0].JobID)
	assert.Equal(t, CodeGenerate, logs[0].Code)
}

func TestGenerationContinuesPastItemErrors(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		failFast := false
		cfg.Generation.FailFast = &failFast
	})
	env.seedCatalog(t)

	gen := env.services.Generation
	calls := 0
	failedPage := ""
	gen.build = func(loc models.Location, svc models.Service, publish bool, jobID string) (*models.Page, error) {
		calls++
		if calls == 2 {
			failedPage = PageID(loc, svc)
			return nil, errors.New("template exploded")
		}
		return env.services.Pages.Build(loc, svc, publish, jobID)
	}

	job := env.runGeneration(t, fourPageSelection())

	assert.Equal(t, models.JobStatusDone, job.Status)
	assert.Empty(t, job.ErrorCode)
	assert.Contains(t, job.ErrorMessage, "template exploded")
	assert.Equal(t, 4, job.Completed)
	assert.Equal(t, 3, job.Created)
	assert.Equal(t, 1, job.Failed)
	assert.Len(t, env.pageIDs(t), 3)

	logs, err := env.services.Monitoring.GetRecentErrors(context.Background(), 10, true)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "warn", logs[0].Level)
	assert.Equal(t, SourceGeneration, logs[0].Source)
	assert.Equal(t, job.ID, logs[0].JobID)
	assert.Equal(t, failedPage, logs[0].PageID)
	assert.Equal(t, CodeGenerate, logs[0].Code)
	assert.Contains(t, logs[0].Message, "template exploded")
}

func TestGenerationLogsLostItemErrorMessage(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		failFast := false
		cfg.Generation.FailFast = &failFast
	})
	env.seedCatalog(t)

	// Reject only the single-column write that stores the last item error.
	require.NoError(t, env.db.Callback().Update().Before("gorm:update").Register("test:reject_error_message", func(tx *gorm.DB) {
		if m, ok := tx.Statement.Dest.(map[string]interface{}); ok && len(m) == 1 {
			if _, ok := m["error_message"]; ok {
				_ = tx.AddError(errors.New("disk full"))
			}
		}
	}))

	core, observed := observer.New(zap.WarnLevel)
	gen := env.services.Generation
	gen.logger = zap.New(core)
	calls := 0
	gen.build = func(loc models.Location, svc models.Service, publish bool, jobID string) (*models.Page, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("template exploded")
		}
		return env.services.Pages.Build(loc, svc, publish, jobID)
	}

	job := env.runGeneration(t, fourPageSelection())

	assert.Equal(t, models.JobStatusDone, job.Status)
	assert.Empty(t, job.ErrorMessage)

	lost := observed.FilterMessage("Failed to store last item error").All()
	require.Len(t, lost, 1)
	assert.Equal(t, job.ID, lost[0].ContextMap()["job_id"])
	assert.Contains(t, lost[0].ContextMap()["error"], "disk full")
}

func TestGenerationCancelStopsBeforeNextBatch(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Generation.BatchSize = 2 })
	env.seedCatalog(t)

	gen := env.services.Generation
	calls := 0
	gen.build = func(loc models.Location, svc models.Service, publish bool, jobID string) (*models.Page, error) {
		calls++
		if calls == 2 {
			job, err := gen.Cancel(context.Background(), jobID)
			if err != nil {
				return nil, err
			}
			if !job.Canceled {
				return nil, fmt.Errorf("cancel flag not set on %s", jobID)
			}
		}
		return env.services.Pages.Build(loc, svc, publish, jobID)
	}

	job := env.runGeneration(t, fourPageSelection())

	assert.Equal(t, models.JobStatusCanceled, job.Status)
	assert.True(t, job.Canceled)
	assert.Equal(t, 2, job.Completed)
	assert.Equal(t, 2, job.Created)
	assert.Empty(t, job.ErrorCode)
	assert.Len(t, env.pageIDs(t), 2)
}

func TestGenerationProgressIsMonotonic(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Generation.BatchSize = 3 })
	env.seedCatalog(t)

	gen := env.services.Generation
	var seen []int
	gen.build = func(loc models.Location, svc models.Service, publish bool, jobID string) (*models.Page, error) {
		job, err := gen.Get(context.Background(), jobID)
		if err != nil {
			return nil, err
		}
		seen = append(seen, job.Completed)
		if job.Status != models.JobStatusRunning {
			return nil, fmt.Errorf("job is %s while building", job.Status)
		}
		return env.services.Pages.Build(loc, svc, publish, jobID)
	}

	job := env.runGeneration(t, fourPageSelection())
	require.Equal(t, models.JobStatusDone, job.Status)
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
	assert.Equal(t, job.Total, job.Completed)
}

func TestGenerationTerminalJobIsNotResurrected(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	ctx := context.Background()

	job := env.runGeneration(t, fourPageSelection())
	require.Equal(t, models.JobStatusDone, job.Status)

	require.NoError(t, env.services.Generation.Execute(ctx, job.ID))

	canceled, err := env.services.Generation.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, canceled.Status)
	assert.False(t, canceled.Canceled)

	env.services.Generation.finish(ctx, job.ID, models.JobStatusError, &JobError{Code: CodeStoreWrite, Err: errors.New("late")}, "")
	after, err := env.services.Generation.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, after.Status)
	assert.Empty(t, after.ErrorCode)
	assert.Equal(t, job.Completed, after.Completed)
}

func TestGenerationInterruptedByContext(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	job := &models.GenerationJob{
		ID:     uuid.NewString(),
		Status: models.JobStatusQueued,
		Total:  4,
		Selection: datatypes.NewJSONType(models.SelectionSnapshot{
			LocationIDs: []string{"L1", "L2"},
			ServiceKeys: []string{"roof-repair", "gutter-cleaning"},
			MaxPages:    4,
			Pairs:       4,
		}),
	}
	require.NoError(t, env.db.Create(job).Error)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := env.services.Generation
	gen.build = func(loc models.Location, svc models.Service, publish bool, jobID string) (*models.Page, error) {
		cancel()
		return env.services.Pages.Build(loc, svc, publish, jobID)
	}

	err := gen.Execute(ctx, job.ID)
	require.Error(t, err)

	stored, err := gen.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, stored.Status)
	assert.Equal(t, CodeInterrupted, stored.ErrorCode)
	assert.Less(t, stored.Completed, 4)
}

func TestGetUnknownJob(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.services.Generation.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = env.services.Generation.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestClassifyStoreError(t *testing.T) {
	assert.Equal(t, CodeStoreQuota, classifyStoreError(errors.New("rpc error: code = ResourceExhausted desc = Quota exceeded")))
	assert.Equal(t, CodeStoreQuota, classifyStoreError(errors.New("pq: sorry, too many connections for role")))
	assert.Equal(t, CodeStoreWrite, classifyStoreError(errors.New("disk I/O error")))

	jobErr := storeError("write page p1", errors.New("quota exceeded"))
	assert.Equal(t, CodeStoreQuota, jobErr.Code)
	assert.Contains(t, jobErr.Error(), "failed to write page p1")
}
