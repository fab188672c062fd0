package models

import (
	"time"
)

// Location is a place pages are generated for (a city, town or zip area).
type Location struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Name       string    `gorm:"size:255;not null" json:"name" yaml:"name"`
	Slug       string    `gorm:"size:255;uniqueIndex;not null" json:"slug" yaml:"slug"`
	City       string    `gorm:"size:255" json:"city" yaml:"city"`
	CountyName string    `gorm:"size:255" json:"countyName" yaml:"county"`
	CountySlug string    `gorm:"size:255;index" json:"countySlug" yaml:"county_slug"`
	State      string    `gorm:"size:8" json:"state" yaml:"state"`
	Zip        string    `gorm:"size:10;index" json:"zip" yaml:"zip"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt" yaml:"-"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt" yaml:"-"`
}

// Service is a marketplace service offered in every location.
type Service struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Key       string    `gorm:"size:255;uniqueIndex;not null" json:"key" yaml:"key"`
	Slug      string    `gorm:"size:255;index" json:"slug" yaml:"slug"`
	Name      string    `gorm:"size:255;not null" json:"name" yaml:"name"`
	Category  string    `gorm:"size:255" json:"category" yaml:"category"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt" yaml:"-"`
}
