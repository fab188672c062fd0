package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifuryst/pagemill/internal/models"
)

func TestPageID(t *testing.T) {
	svc := models.Service{Key: "roof-repair"}

	assert.Equal(t, "cook-county__winnetka-il-60093__roof-repair",
		PageID(models.Location{Slug: "winnetka-il", CountySlug: "cook-county", Zip: "60093"}, svc))
	assert.Equal(t, "nocounty__winnetka-60093__roof-repair",
		PageID(models.Location{Slug: "winnetka-60093", Zip: "60093"}, svc))
	assert.Equal(t, "nocounty__winnetka__roof-repair",
		PageID(models.Location{Slug: "winnetka"}, svc))
}

func TestBuildRejectsIncompleteRecords(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.services.Pages.Build(models.Location{ID: "x", Name: "Winnetka"}, models.Service{Key: "a", Slug: "a", Name: "A"}, false, "")
	assert.Error(t, err)

	_, err = env.services.Pages.Build(models.Location{Name: "Winnetka", Slug: "winnetka"}, models.Service{Name: "A", Slug: "a"}, false, "")
	assert.Error(t, err)
}

func TestCreateDoesNotOverwrite(t *testing.T) {
	env := newTestEnv(t)
	locations, services := env.seedCatalog(t)
	ctx := context.Background()

	page, err := env.services.Pages.Build(locations[0], services[0], false, "job-1")
	require.NoError(t, err)
	created, err := env.services.Pages.Create(ctx, page)
	require.NoError(t, err)
	assert.True(t, created)

	again, err := env.services.Pages.Build(locations[0], services[0], true, "job-2")
	require.NoError(t, err)
	created, err = env.services.Pages.Create(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := env.services.Pages.Get(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "job-1", stored.GenerationJobID)
	assert.Equal(t, models.PageStatusDraft, stored.Status)

	exists, err := env.services.Pages.Exists(ctx, page.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = env.services.Pages.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestListPagesCursor(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	env.runGeneration(t, fourPageSelection())
	ctx := context.Background()

	first, next, err := env.services.Pages.List(ctx, PageFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, expectedPageIDs[2], next)

	rest, next, err := env.services.Pages.List(ctx, PageFilter{Limit: 3, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, expectedPageIDs[3], rest[0].ID)
	assert.Empty(t, next)

	gutters, _, err := env.services.Pages.List(ctx, PageFilter{ServiceKey: "gutter-cleaning", Zip: "60201"})
	require.NoError(t, err)
	require.Len(t, gutters, 1)
	assert.Equal(t, expectedPageIDs[0], gutters[0].ID)
}

func TestRegenerateUsesCurrentCatalog(t *testing.T) {
	env := newTestEnv(t)
	locations, services := env.seedCatalog(t)
	ctx := context.Background()

	page, err := env.services.Pages.Build(locations[0], services[0], false, "job-1")
	require.NoError(t, err)
	_, err = env.services.Pages.Create(ctx, page)
	require.NoError(t, err)

	_, err = env.services.Catalog.UpsertServices(ctx, []models.Service{
		{Key: "roof-repair", Slug: "roof-repair", Name: "Roof Restoration", Category: "Roofing"},
	})
	require.NoError(t, err)

	rebuilt, err := env.services.Pages.Regenerate(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, page.ID, rebuilt.ID)
	assert.Equal(t, "Roof Restoration", rebuilt.ServiceName)
	assert.Equal(t, "Roof Restoration in Winnetka", rebuilt.ContentData().H1)
	assert.Equal(t, "job-1", rebuilt.GenerationJobID)

	_, err = env.services.Pages.Regenerate(ctx, "missing")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.services.Pages.Preview(
		models.Location{Name: "Winnetka", Slug: "winnetka", State: "IL"},
		models.Service{Name: "Roof Repair", Slug: "roof-repair", Category: "Roofing"},
	)
	require.NoError(t, err)
	assert.Equal(t, "/roof-repair/winnetka", result.CanonicalPath)

	_, err = env.services.Pages.Preview(models.Location{Name: "Winnetka"}, models.Service{Name: "Roof Repair", Slug: "roof-repair"})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "location", validation.Field)

	var pages int64
	require.NoError(t, env.db.Model(&models.Page{}).Count(&pages).Error)
	assert.Zero(t, pages)
}
