package models

import (
	"time"

	"gorm.io/datatypes"
)

// Fingerprint is one reverse-index row: every page whose normalized text for
// Section hashed to Hash within Scope.
type Fingerprint struct {
	Scope     string                      `gorm:"primaryKey;size:255" json:"scope"`
	Section   string                      `gorm:"primaryKey;size:100" json:"section"`
	Hash      string                      `gorm:"primaryKey;size:64" json:"hash"`
	Count     int                         `gorm:"column:contributor_count;not null;default:0" json:"count"`
	SampleIDs datatypes.JSONSlice[string] `json:"sampleIds"`
	CreatedAt time.Time                   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time                   `gorm:"autoUpdateTime" json:"updatedAt"`
}

// FingerprintContributor makes association of a page with a fingerprint idempotent.
type FingerprintContributor struct {
	Scope     string    `gorm:"primaryKey;size:255"`
	Section   string    `gorm:"primaryKey;size:100"`
	Hash      string    `gorm:"primaryKey;size:64"`
	PageID    string    `gorm:"primaryKey;size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
