package models

import (
	"time"

	"gorm.io/datatypes"
)

// ErrorLog records terminal job failures and other operator-visible errors
type ErrorLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	Level      string            `gorm:"size:20;not null;index" json:"level"`   // error, warn
	Source     string            `gorm:"size:100;not null;index" json:"source"` // generation, scan, scheduler
	Code       string            `gorm:"size:50;index" json:"code"`
	JobID      string            `gorm:"size:64;index" json:"jobId"`
	PageID     string            `gorm:"size:255;index" json:"pageId"`
	Title      string            `gorm:"size:500;not null" json:"title"`
	Message    string            `gorm:"type:text;not null" json:"message"`
	StackTrace string            `gorm:"type:text" json:"stackTrace"`
	Context    datatypes.JSONMap `json:"context"`
	Resolved   bool              `gorm:"default:false;index" json:"resolved"`
	ResolvedAt *time.Time        `json:"resolvedAt"`
	CreatedAt  time.Time         `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

// DashboardSummary is a single-row rollup refreshed by the stats updater
type DashboardSummary struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	TotalPages         int        `gorm:"default:0" json:"totalPages"`
	DraftPages         int        `gorm:"default:0" json:"draftPages"`
	PublishedPages     int        `gorm:"default:0" json:"publishedPages"`
	ReviewPages        int        `gorm:"default:0" json:"reviewPages"`
	ArchivedPages      int        `gorm:"default:0" json:"archivedPages"`
	HealthOKPages      int        `gorm:"default:0" json:"healthOkPages"`
	HealthWarnPages    int        `gorm:"default:0" json:"healthWarnPages"`
	HealthFailPages    int        `gorm:"default:0" json:"healthFailPages"`
	UnscannedPages     int        `gorm:"default:0" json:"unscannedPages"`
	RunningGenerations int        `gorm:"default:0" json:"runningGenerations"`
	RunningScans       int        `gorm:"default:0" json:"runningScans"`
	FailedJobsToday    int        `gorm:"default:0" json:"failedJobsToday"`
	UnresolvedErrors   int        `gorm:"default:0" json:"unresolvedErrors"`
	LastGenerationAt   *time.Time `json:"lastGenerationAt"`
	LastScanAt         *time.Time `json:"lastScanAt"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}
