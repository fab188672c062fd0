package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	JobStatusQueued   = "queued"
	JobStatusRunning  = "running"
	JobStatusDone     = "done"
	JobStatusCanceled = "canceled"
	JobStatusError    = "error"
)

const (
	JobPhaseResolving  = "resolving"
	JobPhaseGenerating = "generating"
	JobPhaseFinished   = "finished"

	ScanPhaseFingerprint = "fingerprint"
	ScanPhaseEvaluate    = "evaluate"
)

const (
	ScanStatusQueued    = "queued"
	ScanStatusRunning   = "running"
	ScanStatusSucceeded = "succeeded"
	ScanStatusFailed    = "failed"
)

const (
	ScanScopeAll        = "all"
	ScanScopeServiceKey = "serviceKey"
	ScanScopeZip        = "zip"
	ScanScopePageIDs    = "pageIds"
)

// SelectionSnapshot is the resolved input of a generation job, kept for auditing.
type SelectionSnapshot struct {
	LocationIDs []string `json:"locationIds"`
	ServiceKeys []string `json:"serviceKeys"`
	MaxPages    int      `json:"maxPages,omitempty"`
	Publish     bool     `json:"publish"`
	// Pairs is the number of (location, service) pairs after truncation.
	Pairs int `json:"pairs"`
}

// GenerationJob tracks one batch generation run.
type GenerationJob struct {
	ID     string `gorm:"primaryKey;size:64" json:"id"`
	Status string `gorm:"size:20;index" json:"status"`
	Phase  string `gorm:"size:20" json:"phase"`

	Total     int `json:"total"`
	Completed int `json:"completed"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	EstimatedSecondsRemaining int    `json:"estimatedSecondsRemaining"`
	CurrentOperation          string `gorm:"size:500" json:"currentOperation"`

	Selection datatypes.JSONType[SelectionSnapshot] `json:"selectionSnapshot"`

	// Canceled is the cooperative cancel flag; the worker checks it between sub-batches.
	Canceled     bool   `json:"canceled"`
	ErrorCode    string `gorm:"size:50" json:"errorCode,omitempty"`
	ErrorMessage string `gorm:"type:text" json:"errorMessage,omitempty"`

	StartedAt  *time.Time `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (j *GenerationJob) Terminal() bool {
	return IsTerminalJobStatus(j.Status)
}

func IsTerminalJobStatus(status string) bool {
	switch status {
	case JobStatusDone, JobStatusCanceled, JobStatusError:
		return true
	}
	return false
}

type ScanInput struct {
	Scope      string   `json:"scope"`
	ServiceKey string   `json:"serviceKey,omitempty"`
	Zip        string   `json:"zip,omitempty"`
	PageIDs    []string `json:"pageIds,omitempty"`
}

type ScanOutput struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Warns   int `json:"warns"`
	Fails   int `json:"fails"`
}

// ScanProgress reports a scan in two passes. Percent runs 0-50 while
// fingerprints are recorded and 50-100 while pages are evaluated. Done counts
// evaluated pages only, so it stays 0 through the first half.
type ScanProgress struct {
	Done    int `json:"done"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// HealthScanJob tracks one health re-scan over existing pages.
type HealthScanJob struct {
	ID     string `gorm:"primaryKey;size:64" json:"id"`
	Status string `gorm:"size:20;index" json:"status"`
	Phase  string `gorm:"size:20" json:"phase"`

	Input    datatypes.JSONType[ScanInput]  `json:"input"`
	Progress ScanProgress                   `gorm:"embedded;embeddedPrefix:progress_" json:"progress"`
	Output   datatypes.JSONType[ScanOutput] `json:"output"`

	ErrorMessage string `gorm:"type:text" json:"errorMessage,omitempty"`

	StartedAt  *time.Time `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}
