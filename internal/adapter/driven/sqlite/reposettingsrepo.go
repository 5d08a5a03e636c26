package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoSettingsStore = (*RepoSettingsRepo)(nil)

// RepoSettingsRepo is the SQLite implementation of the RepoSettingsStore port interface.
type RepoSettingsRepo struct {
	db *DB
}

// NewRepoSettingsRepo creates a new RepoSettingsRepo backed by the given DB.
func NewRepoSettingsRepo(db *DB) *RepoSettingsRepo {
	return &RepoSettingsRepo{db: db}
}

// GetSettings retrieves per-repository settings. Returns (nil, nil) if no
// settings exist for the repository; callers should apply defaults.
func (r *RepoSettingsRepo) GetSettings(ctx context.Context, repoFullName string) (*model.RepoSettings, error) {
	const query = `
		SELECT repo_full_name, notifications_enabled, scope
		FROM repo_settings
		WHERE repo_full_name = ?
	`

	var s model.RepoSettings
	var enabled int

	err := r.db.Reader.QueryRowContext(ctx, query, repoFullName).Scan(&s.RepoFullName, &enabled, &s.Scope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings for %s: %w", repoFullName, err)
	}

	s.NotificationsEnabled = enabled != 0

	return &s, nil
}

// SetSettings inserts or updates per-repository settings.
func (r *RepoSettingsRepo) SetSettings(ctx context.Context, settings model.RepoSettings) error {
	const query = `
		INSERT INTO repo_settings (repo_full_name, notifications_enabled, scope)
		VALUES (?, ?, ?)
		ON CONFLICT(repo_full_name) DO UPDATE SET
			notifications_enabled = excluded.notifications_enabled,
			scope = excluded.scope
	`

	enabled := 0
	if settings.NotificationsEnabled {
		enabled = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query, settings.RepoFullName, enabled, settings.Scope)
	if err != nil {
		return fmt.Errorf("set settings for %s: %w", settings.RepoFullName, err)
	}

	return nil
}
