package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.SearchEnabled)
	assert.Equal(t, "fs", cfg.BlobDriver)

	optional, err := cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, optional)
}

func TestFromEnvCustomValues(t *testing.T) {
	t.Setenv("HISA_LISTEN_ADDR", ":9000")
	t.Setenv("HISA_DB_DRIVER", "Postgres")
	t.Setenv("HISA_DB_DSN", "postgres://localhost/hisa")
	t.Setenv("HISA_SEARCH_ENABLED", "true")
	t.Setenv("HISA_SEARCH_MIN_SIMILARITY", "0.5")
	t.Setenv("HISA_SEARCH_QUEUE", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.True(t, cfg.SearchEnabled)
	assert.InDelta(t, 0.5, cfg.SearchMinSimilarity, 1e-9)
	assert.Equal(t, 256, cfg.SearchQueueSize)
}

func TestValidateCoreErrors(t *testing.T) {
	t.Setenv("HISA_DB_DRIVER", "oracle")
	_, err := FromEnv().Validate()
	assert.Error(t, err)

	t.Setenv("HISA_DB_DRIVER", "postgres")
	_, err = FromEnv().Validate()
	assert.Error(t, err)

	t.Setenv("HISA_DB_DRIVER", "sqlite")
	t.Setenv("HISA_LOG_FORMAT", "xml")
	_, err = FromEnv().Validate()
	assert.Error(t, err)
}

func TestValidateOptionalComponents(t *testing.T) {
	t.Setenv("HISA_SEARCH_ENABLED", "1")
	t.Setenv("HISA_EMBEDDING_PROVIDER", "openai")
	t.Setenv("HISA_BLOB_DRIVER", "s3")

	optional, err := FromEnv().Validate()
	require.NoError(t, err)
	require.Len(t, optional, 2)
	assert.Equal(t, "search", optional[0].Component)
	assert.Equal(t, "photos", optional[1].Component)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HISA_BLOB_FS_ROOT=/srv/photos\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("HISA_BLOB_FS_ROOT")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/photos", cfg.BlobFSRoot)
}

func TestLoadWithoutDotEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
