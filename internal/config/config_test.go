package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	t.Setenv("PAGEMILL_TEST_DB_PASSWORD", "s3cret")

	path := filepath.Join(t.TempDir(), "pagemill.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  type: postgres
  password: ${PAGEMILL_TEST_DB_PASSWORD}
generation:
  batch_size: 10
  fail_fast: false
scan:
  write_batch_limit: 1000
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, 10, cfg.Generation.BatchSize)
	require.NotNil(t, cfg.Generation.FailFast)
	assert.False(t, *cfg.Generation.FailFast)
	assert.Equal(t, 20000, cfg.Generation.MaxPagesLimit)
	assert.Equal(t, 400, cfg.Scan.WriteBatchLimit)
	assert.Equal(t, "_global", cfg.Scan.GlobalScope)
	assert.Equal(t, 120, cfg.QA.MinSectionChars)
	assert.Equal(t, "db", cfg.Fingerprint.Backend)
}

func TestApplyDefaultsFailFastOn(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	require.NotNil(t, cfg.Generation.FailFast)
	assert.True(t, *cfg.Generation.FailFast)
	assert.Equal(t, 25, cfg.Generation.BatchSize)
	assert.Equal(t, 500, cfg.Scan.MaxPageIDs)
}
