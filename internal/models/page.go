package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PageStatusDraft     = "draft"
	PageStatusPublished = "published"
	PageStatusReview    = "review"
	PageStatusArchived  = "archived"
)

const (
	HealthOK   = "ok"
	HealthWarn = "warn"
	HealthFail = "fail"
)

// Page is one generated landing page for a (location, service) pair. The ID
// is derived from the pair and is the idempotency key for generation.
type Page struct {
	ID     string `gorm:"primaryKey;size:255" json:"id"`
	Status string `gorm:"size:20;default:'draft';index" json:"status"`

	LocationID string `gorm:"size:64;index" json:"locationId"`
	CountyName string `gorm:"size:255" json:"countyName"`
	CountySlug string `gorm:"size:255" json:"countySlug"`
	CityName   string `gorm:"size:255" json:"cityName"`
	PlaceName  string `gorm:"size:255" json:"placeName"`
	PlaceSlug  string `gorm:"size:255" json:"placeSlug"`
	State      string `gorm:"size:8" json:"state"`
	Zip        string `gorm:"size:10;index" json:"zip"`

	ServiceID       string `gorm:"size:64" json:"serviceId"`
	ServiceKey      string `gorm:"size:255;index" json:"serviceKey"`
	ServiceName     string `gorm:"size:255" json:"serviceName"`
	ServiceSlug     string `gorm:"size:255" json:"serviceSlug"`
	ServiceCategory string `gorm:"size:255" json:"serviceCategory"`

	SlugPath string `gorm:"size:512;index" json:"slugPath"`

	Content datatypes.JSONType[PageContent]     `json:"content"`
	SEO     datatypes.JSONType[SEO]             `json:"seo"`
	Health  datatypes.JSONType[*HealthSnapshot] `json:"health"`

	// Flattened health fields for list filtering.
	HealthStatus    string     `gorm:"size:10;index" json:"healthStatus"`
	HealthScore     int        `json:"healthScore"`
	HealthWarnCount int        `json:"healthWarnCount"`
	HealthFailCount int        `json:"healthFailCount"`
	HealthDupCount  int        `json:"healthDupCount"`
	HealthScannedAt *time.Time `json:"healthScannedAt"`

	GenerationJobID string     `gorm:"size:64;index" json:"generationJobId"`
	PublishedAt     *time.Time `json:"publishedAt"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// QAFailure is one rule hit from a health scan. It is recomputed every scan.
type QAFailure struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// DuplicateHit records a section whose normalized text is shared with other pages.
type DuplicateHit struct {
	Section   string   `json:"section"`
	Scope     string   `json:"scope"`
	Hash      string   `json:"hash"`
	Count     int      `json:"count"`
	SampleIDs []string `json:"sampleIds"`
}

// HealthSnapshot is the result of the last scan of a page.
type HealthSnapshot struct {
	Status          string         `json:"status"`
	Score           int            `json:"score"`
	Failures        []QAFailure    `json:"failures"`
	MissingRequired []string       `json:"missingRequired"`
	Duplicates      []DuplicateHit `json:"duplicates"`
	SectionLengths  map[string]int `json:"sectionLengths"`
	TotalChars      int            `json:"totalChars"`
	ScanJobID       string         `json:"scanJobId"`
	ScannedAt       time.Time      `json:"scannedAt"`
}

func (p *Page) ContentData() PageContent {
	return p.Content.Data()
}

func (p *Page) SEOData() SEO {
	return p.SEO.Data()
}
