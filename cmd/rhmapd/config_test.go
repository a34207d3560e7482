package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workload.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buckets: 128\nworkers: 8\n"), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(128), cfg.Buckets)
	assert.Equal(t, 8, cfg.Workers)
	// Fields the file didn't set retain their defaults.
	assert.Equal(t, defaultConfig().Keyspace, cfg.Keyspace)
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	_, err := loadConfig("/does/not/exist.yaml")
	assert.Error(t, err)
}
