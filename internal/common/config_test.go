package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "tesseract", cfg.Recognizer.Provider)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_URL", "postgres://localhost/receipts")
	t.Setenv("PIPELINE_WORKERS", "8")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/receipts", cfg.Database.DSN)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
}

func TestLoadConfigFileOverlay(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET: from-file\nS3_BUCKET: receipts-bucket\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret, "file overlay wins over env")
	assert.Equal(t, "receipts-bucket", cfg.Storage.Bucket)
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Auth.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = ""
	assert.Error(t, cfg.Validate())

	cfg.Database.DSN = "postgres://localhost/x"
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Backend = "s3"
	cfg.Storage.Bucket = ""
	assert.Error(t, cfg.Validate())
}
