// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Notifier names accepted by CIWATCH_NOTIFIER.
const (
	NotifierDesktop = "desktop"
	NotifierLog     = "log"
	NotifierNone    = "none"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken      string
	GitHubUsername   string
	Repository       string // Initial current repository, owner/name.
	RepoPath         string // Local clone of Repository.
	PollInterval     time.Duration
	MinCheckInterval time.Duration
	ListenAddr       string
	DBPath           string
	SecretKey        []byte // nil when CIWATCH_SECRET_KEY is unset.
	Notifier         string
	LogLevel         slog.Level
}

// HasGitHubCredentials returns true when both GitHubToken and GitHubUsername
// are non-empty.
func (c *Config) HasGitHubCredentials() bool {
	return c.GitHubToken != "" && c.GitHubUsername != ""
}

// Load reads configuration from the environment and returns a validated Config.
// Variables from CIWATCH_ENV_FILE (default .env) are applied first without
// overriding the existing environment; a missing file is not an error.
// GitHub credentials are optional: without them the app starts but cycles
// fail until a token is set through the API.
func Load() (*Config, error) {
	envFile := getenv("CIWATCH_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := &Config{
		GitHubToken:    os.Getenv("CIWATCH_GITHUB_TOKEN"),
		GitHubUsername: os.Getenv("CIWATCH_GITHUB_USERNAME"),
		Repository:     strings.TrimSpace(os.Getenv("CIWATCH_REPOSITORY")),
		RepoPath:       os.Getenv("CIWATCH_REPO_PATH"),
		ListenAddr:     getenv("CIWATCH_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:         getenv("CIWATCH_DB_PATH", "ciwatch.db"),
		Notifier:       strings.ToLower(getenv("CIWATCH_NOTIFIER", NotifierDesktop)),
	}

	var err error
	if cfg.PollInterval, err = durationEnv("CIWATCH_POLL_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.MinCheckInterval, err = durationEnv("CIWATCH_MIN_CHECK_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.Repository != "" {
		owner, name, ok := strings.Cut(cfg.Repository, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("CIWATCH_REPOSITORY must be owner/name, got %q", cfg.Repository)
		}
	}

	if v := os.Getenv("CIWATCH_SECRET_KEY"); v != "" {
		key, err := hex.DecodeString(v)
		if err != nil || len(key) != 32 {
			return nil, errors.New("CIWATCH_SECRET_KEY must be 64 hex characters (32 bytes)")
		}
		cfg.SecretKey = key
	}

	switch cfg.Notifier {
	case NotifierDesktop, NotifierLog, NotifierNone:
	default:
		return nil, fmt.Errorf("CIWATCH_NOTIFIER must be one of desktop, log, none; got %q", cfg.Notifier)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("CIWATCH_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("CIWATCH_LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}
