package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, "server:\n  mode: debug\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, DriverMongo, cfg.Database.Driver)
	require.Equal(t, "smart_learning", cfg.Database.Mongo.Database)
	require.Equal(t, 10*time.Minute, cfg.Store.RecommendationCacheTTL)
	require.Equal(t, 20, cfg.Store.DefaultPageSize)
	require.Equal(t, "debug", cfg.Server.Mode)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, "database:\n  driver: mongo\n")
	t.Setenv("MONGO_DATABASE", "analytics_test")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, "analytics_test", cfg.Database.Mongo.Database)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	dir := writeConfig(t, "database:\n  driver: cassandra\n")

	_, err := LoadConfig(dir)
	require.Error(t, err)
}

func TestLoadConfigMySQLRequiresHost(t *testing.T) {
	dir := writeConfig(t, "database:\n  driver: mysql\n  mysql:\n    dbname: x\n")

	_, err := LoadConfig(dir)
	require.Error(t, err)
}
