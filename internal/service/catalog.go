package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/pkg/util"
)

// CatalogService owns the locations and services pages are generated for.
type CatalogService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCatalogService(db *gorm.DB, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		db:     db,
		logger: logger,
	}
}

// UpsertLocations inserts or updates locations keyed by slug, in chunks of MaxBatchWrites.
func (c *CatalogService) UpsertLocations(ctx context.Context, locations []models.Location) ([]models.Location, error) {
	for i := range locations {
		loc := &locations[i]
		loc.Name = strings.TrimSpace(loc.Name)
		if loc.Name == "" {
			return nil, &ValidationError{Field: "name", Reason: fmt.Sprintf("location %d has no name", i)}
		}
		if loc.ID == "" {
			loc.ID = uuid.NewString()
		}
		if loc.Slug == "" {
			loc.Slug = util.GenerateSlug(strings.TrimSpace(loc.Name + " " + loc.State))
		}
		if loc.CountySlug == "" && loc.CountyName != "" {
			loc.CountySlug = util.GenerateSlug(loc.CountyName)
		}
		if loc.City == "" {
			loc.City = loc.Name
		}
		if loc.Zip != "" && !util.IsZip(loc.Zip) {
			return nil, &ValidationError{Field: "zip", Reason: fmt.Sprintf("%q is not a postal code", loc.Zip)}
		}
	}
	if len(locations) == 0 {
		return locations, nil
	}

	// A batch may not touch the same conflict key twice; the later entry wins.
	locations = dedupeBy(locations, func(l models.Location) string { return l.Slug })

	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "city", "county_name", "county_slug", "state", "zip", "updated_at"}),
		}).
		CreateInBatches(&locations, MaxBatchWrites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert locations: %w", err)
	}

	// Rows that hit the conflict path keep their stored ID, not the one assigned above.
	slugs := make([]string, len(locations))
	for i, loc := range locations {
		slugs[i] = loc.Slug
	}
	var stored []models.Location
	for _, chunk := range chunkStrings(slugs, MaxBatchWrites) {
		var rows []models.Location
		if err := c.db.WithContext(ctx).Where("slug IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to reload locations: %w", err)
		}
		stored = append(stored, rows...)
	}
	bySlug := make(map[string]models.Location, len(stored))
	for _, loc := range stored {
		bySlug[loc.Slug] = loc
	}
	for i := range locations {
		if loc, ok := bySlug[locations[i].Slug]; ok {
			locations[i] = loc
		}
	}

	c.logger.Info("Upserted locations", zap.Int("count", len(locations)))
	return locations, nil
}

// UpsertServices inserts or updates services keyed by key, in chunks of MaxBatchWrites.
func (c *CatalogService) UpsertServices(ctx context.Context, services []models.Service) ([]models.Service, error) {
	for i := range services {
		svc := &services[i]
		svc.Name = strings.TrimSpace(svc.Name)
		if svc.Name == "" {
			return nil, &ValidationError{Field: "name", Reason: fmt.Sprintf("service %d has no name", i)}
		}
		if svc.ID == "" {
			svc.ID = uuid.NewString()
		}
		if svc.Slug == "" {
			svc.Slug = util.GenerateSlug(svc.Name)
		}
		if svc.Key == "" {
			svc.Key = svc.Slug
		}
	}
	if len(services) == 0 {
		return services, nil
	}

	services = dedupeBy(services, func(s models.Service) string { return s.Key })

	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"slug", "name", "category", "updated_at"}),
		}).
		CreateInBatches(&services, MaxBatchWrites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert services: %w", err)
	}

	keys := make([]string, len(services))
	for i, svc := range services {
		keys[i] = svc.Key
	}
	var stored []models.Service
	for _, chunk := range chunkStrings(keys, MaxBatchWrites) {
		var rows []models.Service
		if err := c.db.WithContext(ctx).Where("key IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to reload services: %w", err)
		}
		stored = append(stored, rows...)
	}
	byKey := make(map[string]models.Service, len(stored))
	for _, svc := range stored {
		byKey[svc.Key] = svc
	}
	for i := range services {
		if svc, ok := byKey[services[i].Key]; ok {
			services[i] = svc
		}
	}

	c.logger.Info("Upserted services", zap.Int("count", len(services)))
	return services, nil
}

// dedupeBy keeps one entry per key at the position of its first occurrence,
// holding the value of its last occurrence.
func dedupeBy[T any](items []T, key func(T) string) []T {
	index := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

func chunkStrings(values []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

func (c *CatalogService) ListLocations(ctx context.Context, limit, offset int) ([]models.Location, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var locations []models.Location
	if err := c.db.WithContext(ctx).Order("slug").Limit(limit).Offset(offset).Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

func (c *CatalogService) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if err := c.db.WithContext(ctx).Order("key").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// ResolveLocations maps refs (id, slug or zip, in that priority) to
// locations. Resolved records keep the order of the refs and collapse
// duplicates; refs with no match are returned separately.
func (c *CatalogService) ResolveLocations(ctx context.Context, refs []string) ([]models.Location, []string, error) {
	refs = util.UniqueStrings(refs)
	if len(refs) == 0 {
		return nil, nil, nil
	}

	lowered := make([]string, len(refs))
	for i, r := range refs {
		lowered[i] = strings.ToLower(r)
	}

	var candidates []models.Location
	err := c.db.WithContext(ctx).
		Where("id IN ? OR slug IN ? OR zip IN ?", refs, lowered, refs).
		Order("slug").
		Find(&candidates).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve locations: %w", err)
	}

	byID := make(map[string]models.Location)
	bySlug := make(map[string]models.Location)
	byZip := make(map[string]models.Location)
	for _, loc := range candidates {
		byID[loc.ID] = loc
		bySlug[loc.Slug] = loc
		// Several places can share a zip; the first by slug wins.
		if _, ok := byZip[loc.Zip]; !ok && loc.Zip != "" {
			byZip[loc.Zip] = loc
		}
	}

	var resolved []models.Location
	var unresolved []string
	seen := make(map[string]struct{})
	for i, ref := range refs {
		loc, ok := byID[ref]
		if !ok {
			loc, ok = bySlug[lowered[i]]
		}
		if !ok && util.IsZip(ref) {
			loc, ok = byZip[ref]
		}
		if !ok {
			unresolved = append(unresolved, ref)
			continue
		}
		if _, dup := seen[loc.ID]; dup {
			continue
		}
		seen[loc.ID] = struct{}{}
		resolved = append(resolved, loc)
	}
	return resolved, unresolved, nil
}

// ResolveServices maps refs (id, key or slug) to services, like ResolveLocations.
func (c *CatalogService) ResolveServices(ctx context.Context, refs []string) ([]models.Service, []string, error) {
	refs = util.UniqueStrings(refs)
	if len(refs) == 0 {
		return nil, nil, nil
	}

	lowered := make([]string, len(refs))
	for i, r := range refs {
		lowered[i] = strings.ToLower(r)
	}

	var candidates []models.Service
	err := c.db.WithContext(ctx).
		Where("id IN ? OR key IN ? OR slug IN ?", refs, lowered, lowered).
		Order("key").
		Find(&candidates).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve services: %w", err)
	}

	byID := make(map[string]models.Service)
	byKey := make(map[string]models.Service)
	bySlug := make(map[string]models.Service)
	for _, svc := range candidates {
		byID[svc.ID] = svc
		byKey[svc.Key] = svc
		if _, ok := bySlug[svc.Slug]; !ok {
			bySlug[svc.Slug] = svc
		}
	}

	var resolved []models.Service
	var unresolved []string
	seen := make(map[string]struct{})
	for i, ref := range refs {
		svc, ok := byID[ref]
		if !ok {
			svc, ok = byKey[lowered[i]]
		}
		if !ok {
			svc, ok = bySlug[lowered[i]]
		}
		if !ok {
			unresolved = append(unresolved, ref)
			continue
		}
		if _, dup := seen[svc.ID]; dup {
			continue
		}
		seen[svc.ID] = struct{}{}
		resolved = append(resolved, svc)
	}
	return resolved, unresolved, nil
}

// LocationsByIDs loads locations in the order of ids. Missing ids are an error.
func (c *CatalogService) LocationsByIDs(ctx context.Context, ids []string) ([]models.Location, error) {
	var found []models.Location
	if err := c.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	byID := make(map[string]models.Location, len(found))
	for _, loc := range found {
		byID[loc.ID] = loc
	}

	out := make([]models.Location, 0, len(ids))
	var missing []string
	for _, id := range ids {
		loc, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, loc)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("locations no longer exist: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// ServicesByKeys loads services in the order of keys. Missing keys are an error.
func (c *CatalogService) ServicesByKeys(ctx context.Context, keys []string) ([]models.Service, error) {
	var found []models.Service
	if err := c.db.WithContext(ctx).Where("key IN ?", keys).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load services: %w", err)
	}
	byKey := make(map[string]models.Service, len(found))
	for _, svc := range found {
		byKey[svc.Key] = svc
	}

	out := make([]models.Service, 0, len(keys))
	var missing []string
	for _, key := range keys {
		svc, ok := byKey[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		out = append(out, svc)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("services no longer exist: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func (c *CatalogService) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	var loc models.Location
	if err := c.db.WithContext(ctx).Where("id = ?", id).Take(&loc).Error; err != nil {
		return nil, fmt.Errorf("failed to load location %s: %w", id, err)
	}
	return &loc, nil
}

func (c *CatalogService) GetService(ctx context.Context, id string) (*models.Service, error) {
	var svc models.Service
	if err := c.db.WithContext(ctx).Where("id = ?", id).Take(&svc).Error; err != nil {
		return nil, fmt.Errorf("failed to load service %s: %w", id, err)
	}
	return &svc, nil
}
