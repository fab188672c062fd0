package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/pagemill/internal/config"
	"github.com/ifuryst/pagemill/internal/models"
)

type testEnv struct {
	cfg      *config.Config
	db       *gorm.DB
	services *Services
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			Path: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func newTestEnv(t *testing.T, mutate ...func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db, err := NewDatabase(&cfg.Database)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	services, err := NewServices(cfg, db, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = services.Close(context.Background())
		_ = sqlDB.Close()
	})
	return &testEnv{cfg: cfg, db: db, services: services}
}

// seedCatalog stores locations L1..L3 and services S1..S2.
func (e *testEnv) seedCatalog(t *testing.T) ([]models.Location, []models.Service) {
	t.Helper()
	ctx := context.Background()

	locations, err := e.services.Catalog.UpsertLocations(ctx, []models.Location{
		{ID: "L1", Name: "Winnetka", State: "IL", CountyName: "Cook County", Zip: "60093"},
		{ID: "L2", Name: "Evanston", State: "IL", CountyName: "Cook County", Zip: "60201"},
		{ID: "L3", Name: "Naperville", State: "IL", CountyName: "DuPage County", Zip: "60540"},
	})
	require.NoError(t, err)

	services, err := e.services.Catalog.UpsertServices(ctx, []models.Service{
		{ID: "S1", Key: "roof-repair", Name: "Roof Repair", Category: "Roofing"},
		{ID: "S2", Key: "gutter-cleaning", Name: "Gutter Cleaning", Category: "Exterior"},
	})
	require.NoError(t, err)

	return locations, services
}

func (e *testEnv) pageIDs(t *testing.T) []string {
	t.Helper()
	var ids []string
	require.NoError(t, e.db.Model(&models.Page{}).Order("id").Pluck("id", &ids).Error)
	return ids
}
