package fingerprint

import (
	"context"
	"errors"
)

const DefaultSampleLimit = 50

var ErrEmptyHash = errors.New("fingerprint: empty hash")

// Occurrence is one page producing a given normalized hash for a section.
type Occurrence struct {
	Scope   string
	Section string
	Hash    string
	PageID  string
}

// Entry is the reverse-index state for one (scope, section, hash).
type Entry struct {
	Count     int
	SampleIDs []string
}

// Index is the duplicate-detection reverse index.
//
// Record associates a page with a hash. It is idempotent per page: recording
// the same occurrence again never increases Count. Lookup reads the current
// state without modifying it; a missing entry returns a zero Entry.
type Index interface {
	Record(ctx context.Context, occ Occurrence) (Entry, error)
	Lookup(ctx context.Context, scope, section, hash string) (Entry, error)
}

func validate(occ Occurrence) error {
	if occ.Hash == "" {
		return ErrEmptyHash
	}
	if occ.PageID == "" {
		return errors.New("fingerprint: empty page id")
	}
	return nil
}

func appendSample(samples []string, pageID string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	if len(samples) >= limit {
		return samples
	}
	for _, id := range samples {
		if id == pageID {
			return samples
		}
	}
	return append(samples, pageID)
}
