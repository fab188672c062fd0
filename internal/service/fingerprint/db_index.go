package fingerprint

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ifuryst/pagemill/internal/models"
)

// DBIndex keeps the reverse index in the relational store. A contributor row
// per (fingerprint, page) makes Record idempotent, and the counter is bumped
// with a server-side increment inside the same transaction.
type DBIndex struct {
	db          *gorm.DB
	sampleLimit int
}

func NewDBIndex(db *gorm.DB, sampleLimit int) *DBIndex {
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	return &DBIndex{db: db, sampleLimit: sampleLimit}
}

func (i *DBIndex) Record(ctx context.Context, occ Occurrence) (Entry, error) {
	if err := validate(occ); err != nil {
		return Entry{}, err
	}

	var entry Entry
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fp := models.Fingerprint{
			Scope:     occ.Scope,
			Section:   occ.Section,
			Hash:      occ.Hash,
			SampleIDs: datatypes.JSONSlice[string]{},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fp).Error; err != nil {
			return fmt.Errorf("failed to upsert fingerprint: %w", err)
		}

		contributor := models.FingerprintContributor{
			Scope:   occ.Scope,
			Section: occ.Section,
			Hash:    occ.Hash,
			PageID:  occ.PageID,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&contributor)
		if res.Error != nil {
			return fmt.Errorf("failed to add contributor: %w", res.Error)
		}

		if res.RowsAffected == 1 {
			if err := byKey(tx.Model(&models.Fingerprint{}), occ.Scope, occ.Section, occ.Hash).
				Update("contributor_count", gorm.Expr("contributor_count + ?", 1)).Error; err != nil {
				return fmt.Errorf("failed to increment fingerprint count: %w", err)
			}
		}

		current, err := i.take(tx, occ.Scope, occ.Section, occ.Hash)
		if err != nil {
			return err
		}

		samples := appendSample([]string(current.SampleIDs), occ.PageID, i.sampleLimit)
		if len(samples) != len(current.SampleIDs) {
			if err := byKey(tx.Model(&models.Fingerprint{}), occ.Scope, occ.Section, occ.Hash).
				Update("sample_ids", datatypes.JSONSlice[string](samples)).Error; err != nil {
				return fmt.Errorf("failed to update fingerprint samples: %w", err)
			}
		}

		entry = Entry{Count: current.Count, SampleIDs: samples}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (i *DBIndex) Lookup(ctx context.Context, scope, section, hash string) (Entry, error) {
	if hash == "" {
		return Entry{}, ErrEmptyHash
	}
	current, err := i.take(i.db.WithContext(ctx), scope, section, hash)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, nil
	}
	if err != nil {
		return Entry{}, err
	}
	return Entry{Count: current.Count, SampleIDs: []string(current.SampleIDs)}, nil
}

func (i *DBIndex) take(tx *gorm.DB, scope, section, hash string) (*models.Fingerprint, error) {
	var fp models.Fingerprint
	if err := byKey(tx, scope, section, hash).Take(&fp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read fingerprint: %w", err)
	}
	return &fp, nil
}

func byKey(tx *gorm.DB, scope, section, hash string) *gorm.DB {
	return tx.Where("scope = ? AND section = ? AND hash = ?", scope, section, hash)
}
