package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ifuryst/pagemill/internal/config"
	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/internal/service/generator"
)

const noCounty = "nocounty"

// PageID derives the idempotency key of the page for a (location, service) pair.
func PageID(loc models.Location, svc models.Service) string {
	county := loc.CountySlug
	if county == "" {
		county = noCounty
	}
	place := loc.Slug
	if loc.Zip != "" && !strings.HasSuffix(place, loc.Zip) {
		place += "-" + loc.Zip
	}
	return county + "__" + place + "__" + svc.Key
}

type PageFilter struct {
	Status       string
	HealthStatus string
	ServiceKey   string
	Zip          string
	Cursor       string
	Limit        int
}

// PageService builds and stores generated pages.
type PageService struct {
	cfg     *config.GenerationConfig
	db      *gorm.DB
	catalog *CatalogService
	logger  *zap.Logger

	now func() time.Time
}

func NewPageService(cfg *config.GenerationConfig, db *gorm.DB, catalog *CatalogService, logger *zap.Logger) *PageService {
	return &PageService{
		cfg:     cfg,
		db:      db,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

func generatorInputs(loc models.Location, svc models.Service) (generator.Location, generator.Service) {
	return generator.Location{
			Name:   loc.Name,
			Slug:   loc.Slug,
			County: loc.CountyName,
			State:  loc.State,
			Zip:    loc.Zip,
		}, generator.Service{
			Name:     svc.Name,
			Slug:     svc.Slug,
			Category: svc.Category,
		}
}

func (p *PageService) options() generator.Options {
	return generator.Options{
		BaseURL:   p.cfg.BaseURL,
		BrandName: p.cfg.BrandName,
	}
}

// Build generates a new page document for the pair without storing it.
// Records missing a name, slug or key are rejected.
func (p *PageService) Build(loc models.Location, svc models.Service, publish bool, jobID string) (*models.Page, error) {
	switch {
	case loc.Name == "" || loc.Slug == "":
		return nil, fmt.Errorf("location %q is missing a name or slug", loc.ID)
	case svc.Name == "" || svc.Slug == "" || svc.Key == "":
		return nil, fmt.Errorf("service %q is missing a name, slug or key", svc.ID)
	}

	gl, gs := generatorInputs(loc, svc)
	result := generator.Generate(gl, gs, p.options())

	page := &models.Page{
		ID:              PageID(loc, svc),
		Status:          models.PageStatusDraft,
		LocationID:      loc.ID,
		CountyName:      loc.CountyName,
		CountySlug:      loc.CountySlug,
		CityName:        loc.City,
		PlaceName:       loc.Name,
		PlaceSlug:       loc.Slug,
		State:           loc.State,
		Zip:             loc.Zip,
		ServiceID:       svc.ID,
		ServiceKey:      svc.Key,
		ServiceName:     svc.Name,
		ServiceSlug:     svc.Slug,
		ServiceCategory: svc.Category,
		SlugPath:        result.CanonicalPath,
		Content:         datatypes.NewJSONType(result.Content),
		SEO:             datatypes.NewJSONType(result.SEO),
		Health:          datatypes.NewJSONType[*models.HealthSnapshot](nil),
		GenerationJobID: jobID,
	}
	if publish {
		now := p.now()
		page.Status = models.PageStatusPublished
		page.PublishedAt = &now
	}
	return page, nil
}

// Exists reports whether a page is already stored under id.
func (p *PageService) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := p.db.WithContext(ctx).Model(&models.Page{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create stores page unless its id is taken. It reports whether a row was written.
func (p *PageService) Create(ctx context.Context, page *models.Page) (bool, error) {
	res := p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(page)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (p *PageService) Get(ctx context.Context, id string) (*models.Page, error) {
	var page models.Page
	err := p.db.WithContext(ctx).Where("id = ?", id).Take(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page %s: %w", id, err)
	}
	return &page, nil
}

// List returns pages ordered by id after filter.Cursor and the cursor for the next call.
func (p *PageService) List(ctx context.Context, filter PageFilter) ([]models.Page, string, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := p.db.WithContext(ctx).Model(&models.Page{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.HealthStatus != "" {
		query = query.Where("health_status = ?", filter.HealthStatus)
	}
	if filter.ServiceKey != "" {
		query = query.Where("service_key = ?", filter.ServiceKey)
	}
	if filter.Zip != "" {
		query = query.Where("zip = ?", filter.Zip)
	}
	if filter.Cursor != "" {
		query = query.Where("id > ?", filter.Cursor)
	}

	var pages []models.Page
	if err := query.Order("id").Limit(limit + 1).Find(&pages).Error; err != nil {
		return nil, "", fmt.Errorf("failed to list pages: %w", err)
	}

	next := ""
	if len(pages) > limit {
		pages = pages[:limit]
		next = pages[limit-1].ID
	}
	return pages, next, nil
}

// Regenerate rebuilds content and SEO of an existing page in place, using
// the current catalog records when they still exist.
func (p *PageService) Regenerate(ctx context.Context, id string) (*models.Page, error) {
	page, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	loc := models.Location{
		ID:         page.LocationID,
		Name:       page.PlaceName,
		Slug:       page.PlaceSlug,
		City:       page.CityName,
		CountyName: page.CountyName,
		CountySlug: page.CountySlug,
		State:      page.State,
		Zip:        page.Zip,
	}
	if current, err := p.catalog.GetLocation(ctx, page.LocationID); err == nil {
		loc = *current
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	svc := models.Service{
		ID:       page.ServiceID,
		Key:      page.ServiceKey,
		Name:     page.ServiceName,
		Slug:     page.ServiceSlug,
		Category: page.ServiceCategory,
	}
	if current, err := p.catalog.GetService(ctx, page.ServiceID); err == nil {
		svc = *current
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// The id stays stable even if the catalog record was renamed.
	rebuilt, err := p.Build(loc, svc, false, page.GenerationJobID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"place_name":       loc.Name,
		"city_name":        loc.City,
		"county_name":      loc.CountyName,
		"service_name":     svc.Name,
		"service_category": svc.Category,
		"slug_path":        rebuilt.SlugPath,
		"content":          rebuilt.Content,
		"seo":              rebuilt.SEO,
	}
	if err := p.db.WithContext(ctx).Model(&models.Page{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to regenerate page %s: %w", id, err)
	}

	p.logger.Info("Regenerated page", zap.String("page_id", id))
	return p.Get(ctx, id)
}

// Preview runs the generator without touching the store.
func (p *PageService) Preview(loc models.Location, svc models.Service) (generator.Result, error) {
	if loc.Name == "" || loc.Slug == "" {
		return generator.Result{}, &ValidationError{Field: "location", Reason: "name and slug are required"}
	}
	if svc.Name == "" || svc.Slug == "" {
		return generator.Result{}, &ValidationError{Field: "service", Reason: "name and slug are required"}
	}
	gl, gs := generatorInputs(loc, svc)
	return generator.Generate(gl, gs, p.options()), nil
}
