package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "./data/portfolio.db", cfg.DatabasePath)
	assert.Equal(t, "STOCK", cfg.DefaultAssetType)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("DEFAULT_ASSET_TYPE", "FII")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	assert.Equal(t, "FII", cfg.DefaultAssetType)
	assert.True(t, cfg.DevMode)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := &Config{Port: 0, DatabasePath: "x.db"}
	assert.Error(t, cfg.Validate())

	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresDatabasePath(t *testing.T) {
	cfg := &Config{Port: 8000}
	assert.Error(t, cfg.Validate())
}
