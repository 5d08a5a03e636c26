package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every CIWATCH_ env var that Load() reads.
var allConfigKeys = []string{
	"CIWATCH_GITHUB_TOKEN",
	"CIWATCH_GITHUB_USERNAME",
	"CIWATCH_REPOSITORY",
	"CIWATCH_REPO_PATH",
	"CIWATCH_POLL_INTERVAL",
	"CIWATCH_MIN_CHECK_INTERVAL",
	"CIWATCH_LISTEN_ADDR",
	"CIWATCH_DB_PATH",
	"CIWATCH_SECRET_KEY",
	"CIWATCH_NOTIFIER",
	"CIWATCH_LOG_LEVEL",
	"CIWATCH_ENV_FILE",
}

// isolateConfigEnv saves and unsets all CIWATCH_ env vars so tests don't
// inherit values from the host environment. It also points CIWATCH_ENV_FILE
// at a file that does not exist so a developer's .env is never read.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
	t.Setenv("CIWATCH_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CIWATCH_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("CIWATCH_GITHUB_USERNAME", "testuser")
	t.Setenv("CIWATCH_REPOSITORY", "octo/widgets")
	t.Setenv("CIWATCH_REPO_PATH", "/src/widgets")
	t.Setenv("CIWATCH_POLL_INTERVAL", "2m")
	t.Setenv("CIWATCH_MIN_CHECK_INTERVAL", "30s")
	t.Setenv("CIWATCH_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("CIWATCH_DB_PATH", "/tmp/test.db")
	t.Setenv("CIWATCH_NOTIFIER", "LOG")
	t.Setenv("CIWATCH_LOG_LEVEL", "debug")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, "testuser", cfg.GitHubUsername)
	assert.Equal(t, "octo/widgets", cfg.Repository)
	assert.Equal(t, "/src/widgets", cfg.RepoPath)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.MinCheckInterval)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, NotifierLog, cfg.Notifier)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.HasGitHubCredentials())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.MinCheckInterval)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "ciwatch.db", cfg.DBPath)
	assert.Equal(t, NotifierDesktop, cfg.Notifier)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.Repository)
	assert.Nil(t, cfg.SecretKey)
	assert.False(t, cfg.HasGitHubCredentials())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad poll interval", "CIWATCH_POLL_INTERVAL", "soon", "CIWATCH_POLL_INTERVAL"},
		{"negative poll interval", "CIWATCH_POLL_INTERVAL", "-1m", "CIWATCH_POLL_INTERVAL"},
		{"bad min interval", "CIWATCH_MIN_CHECK_INTERVAL", "10", "CIWATCH_MIN_CHECK_INTERVAL"},
		{"repository without owner", "CIWATCH_REPOSITORY", "widgets", "CIWATCH_REPOSITORY"},
		{"repository with extra segment", "CIWATCH_REPOSITORY", "octo/widgets/x", "CIWATCH_REPOSITORY"},
		{"unknown notifier", "CIWATCH_NOTIFIER", "slack", "CIWATCH_NOTIFIER"},
		{"unknown log level", "CIWATCH_LOG_LEVEL", "loud", "CIWATCH_LOG_LEVEL"},
		{"short secret key", "CIWATCH_SECRET_KEY", "deadbeef", "CIWATCH_SECRET_KEY"},
		{"non-hex secret key", "CIWATCH_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", "CIWATCH_SECRET_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_SecretKey_Valid(t *testing.T) {
	isolateConfigEnv(t)
	// 64 hex chars = 32 bytes
	t.Setenv("CIWATCH_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_EnvFile(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CIWATCH_DB_PATH=/from/file.db\nCIWATCH_LISTEN_ADDR=127.0.0.1:1111\n"), 0o600))
	t.Setenv("CIWATCH_ENV_FILE", path)
	t.Setenv("CIWATCH_LISTEN_ADDR", "127.0.0.1:2222")
	t.Cleanup(func() { os.Unsetenv("CIWATCH_DB_PATH") })

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "/from/file.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:2222", cfg.ListenAddr, "existing environment wins over the file")
}
