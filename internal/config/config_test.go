package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.OptimizerTimeout)
	assert.Equal(t, "server1", cfg.PermissionServer)
	assert.Equal(t, "X-Remote-User", cfg.UserHeader)
	assert.Equal(t, "file", cfg.JournalBackend)
	assert.False(t, cfg.ApplyPermissions)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestFromEnvReadsEnvironment(t *testing.T) {
	t.Setenv("APPLY_PERMISSIONS", "true")
	t.Setenv("OPTIMIZER_URL", "http://optimizer:9000")
	t.Setenv("OPTIMIZER_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("JOURNAL_BACKEND", "Redis")

	cfg := FromEnv()
	assert.True(t, cfg.ApplyPermissions)
	assert.Equal(t, "http://optimizer:9000", cfg.OptimizerURL)
	assert.Equal(t, 5*time.Second, cfg.OptimizerTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "redis", cfg.JournalBackend)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":7000")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--http-addr=:9999", "--require-user"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.True(t, cfg.RequireUser)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimizer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("permission_server: hive1\nkafka_topic: uploads\n"), 0o644))
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "hive1", cfg.PermissionServer)
	assert.Equal(t, "uploads", cfg.KafkaTopic)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("OPTIMIZER_TIMEOUT", "soon")
	_, err := Load(nil)
	assert.Error(t, err)
}
