package fingerprint

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ifuryst/pagemill/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Fingerprint{}, &models.FingerprintContributor{}))
	return db
}

// testIndexes returns the gorm index and, when PAGEMILL_TEST_REDIS_ADDR is
// set, the redis index.
func testIndexes(t *testing.T, sampleLimit int) map[string]Index {
	indexes := map[string]Index{
		"db": NewDBIndex(newTestDB(t), sampleLimit),
	}

	if addr := os.Getenv("PAGEMILL_TEST_REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		t.Cleanup(func() { _ = rdb.Close() })
		indexes["redis"] = NewRedisIndex(rdb, "pagemill-test-"+uuid.NewString(), sampleLimit)
	}
	return indexes
}

func TestRecordIsIdempotentPerPage(t *testing.T) {
	for name, index := range testIndexes(t, 50) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			occ := Occurrence{Scope: "roof-repair", Section: "overview", Hash: Hash("same text"), PageID: "p1"}

			for i := 0; i < 3; i++ {
				entry, err := index.Record(ctx, occ)
				require.NoError(t, err)
				assert.Equal(t, 1, entry.Count)
				assert.Equal(t, []string{"p1"}, entry.SampleIDs)
			}

			entry, err := index.Lookup(ctx, occ.Scope, occ.Section, occ.Hash)
			require.NoError(t, err)
			assert.Equal(t, 1, entry.Count)
		})
	}
}

func TestRecordCountsDistinctPages(t *testing.T) {
	for name, index := range testIndexes(t, 50) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			hash := Hash("shared boilerplate")

			_, err := index.Record(ctx, Occurrence{Scope: "roof-repair", Section: "cost", Hash: hash, PageID: "p1"})
			require.NoError(t, err)
			entry, err := index.Record(ctx, Occurrence{Scope: "roof-repair", Section: "cost", Hash: hash, PageID: "p2"})
			require.NoError(t, err)

			assert.Equal(t, 2, entry.Count)
			assert.Equal(t, []string{"p1", "p2"}, entry.SampleIDs)

			// Same hash in another scope or section is a separate bucket.
			other, err := index.Record(ctx, Occurrence{Scope: "painting", Section: "cost", Hash: hash, PageID: "p3"})
			require.NoError(t, err)
			assert.Equal(t, 1, other.Count)

			other, err = index.Record(ctx, Occurrence{Scope: "roof-repair", Section: "timeline", Hash: hash, PageID: "p3"})
			require.NoError(t, err)
			assert.Equal(t, 1, other.Count)
		})
	}
}

func TestSampleListIsBounded(t *testing.T) {
	for name, index := range testIndexes(t, 2) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			hash := Hash("bounded")

			var entry Entry
			var err error
			for i := 1; i <= 4; i++ {
				entry, err = index.Record(ctx, Occurrence{Scope: "s", Section: "faqs", Hash: hash, PageID: fmt.Sprintf("p%d", i)})
				require.NoError(t, err)
			}

			assert.Equal(t, 4, entry.Count)
			assert.Equal(t, []string{"p1", "p2"}, entry.SampleIDs)
		})
	}
}

func TestRecordRejectsEmptyHash(t *testing.T) {
	for name, index := range testIndexes(t, 50) {
		t.Run(name, func(t *testing.T) {
			_, err := index.Record(context.Background(), Occurrence{Scope: "s", Section: "hero", Hash: "", PageID: "p1"})
			assert.ErrorIs(t, err, ErrEmptyHash)

			_, err = index.Record(context.Background(), Occurrence{Scope: "s", Section: "hero", Hash: Hash("x"), PageID: ""})
			assert.Error(t, err)
		})
	}
}

func TestLookupMissing(t *testing.T) {
	for name, index := range testIndexes(t, 50) {
		t.Run(name, func(t *testing.T) {
			entry, err := index.Lookup(context.Background(), "s", "hero", Hash("never recorded"))
			require.NoError(t, err)
			assert.Equal(t, 0, entry.Count)
			assert.Empty(t, entry.SampleIDs)
		})
	}
}
