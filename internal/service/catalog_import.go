package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ifuryst/pagemill/internal/models"
)

// CatalogFile is the YAML layout accepted by ImportCatalog.
type CatalogFile struct {
	Locations []models.Location `yaml:"locations"`
	Services  []models.Service  `yaml:"services"`
}

type ImportResult struct {
	Locations int `json:"locations"`
	Services  int `json:"services"`
}

// ImportCatalog upserts every location and service in a YAML catalog file.
func (c *CatalogService) ImportCatalog(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var file CatalogFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if err == io.EOF {
			return &ImportResult{}, nil
		}
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	locations, err := c.UpsertLocations(ctx, file.Locations)
	if err != nil {
		return nil, err
	}
	services, err := c.UpsertServices(ctx, file.Services)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Imported catalog",
		zap.Int("locations", len(locations)),
		zap.Int("services", len(services)))
	return &ImportResult{Locations: len(locations), Services: len(services)}, nil
}
