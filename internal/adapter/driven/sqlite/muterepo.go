package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MuteStore = (*MuteRepo)(nil)

// MuteRepo is the SQLite implementation of the MuteStore port interface.
// Mutes are keyed by (repository, PR number) rather than the PR row ID so they
// survive the PR being pruned and re-fetched.
type MuteRepo struct {
	db *DB
}

// NewMuteRepo creates a new MuteRepo backed by the given DB.
func NewMuteRepo(db *DB) *MuteRepo {
	return &MuteRepo{db: db}
}

// Mute silences notifications for a PR. Idempotent; the original muted_at is kept.
func (r *MuteRepo) Mute(ctx context.Context, repoFullName string, prNumber int) error {
	const query = `INSERT OR IGNORE INTO muted_prs (repo_full_name, pr_number, muted_at) VALUES (?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query, repoFullName, prNumber, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mute %s#%d: %w", repoFullName, prNumber, err)
	}
	return nil
}

// Unmute removes a PR from the mute list. No-op if the PR is not muted.
func (r *MuteRepo) Unmute(ctx context.Context, repoFullName string, prNumber int) error {
	const query = `DELETE FROM muted_prs WHERE repo_full_name = ? AND pr_number = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, repoFullName, prNumber)
	if err != nil {
		return fmt.Errorf("unmute %s#%d: %w", repoFullName, prNumber, err)
	}
	return nil
}

// IsMuted returns whether notifications for the given PR are muted.
func (r *MuteRepo) IsMuted(ctx context.Context, repoFullName string, prNumber int) (bool, error) {
	const query = `SELECT COUNT(*) FROM muted_prs WHERE repo_full_name = ? AND pr_number = ?`
	var count int
	if err := r.db.Reader.QueryRowContext(ctx, query, repoFullName, prNumber).Scan(&count); err != nil {
		return false, fmt.Errorf("check muted %s#%d: %w", repoFullName, prNumber, err)
	}
	return count > 0, nil
}

// ListMuted returns the muted PRs of a repository, most recently muted first.
func (r *MuteRepo) ListMuted(ctx context.Context, repoFullName string) ([]model.MutedPR, error) {
	const query = `
		SELECT repo_full_name, pr_number, muted_at
		FROM muted_prs
		WHERE repo_full_name = ?
		ORDER BY muted_at DESC, pr_number
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, repoFullName)
	if err != nil {
		return nil, fmt.Errorf("list muted PRs for %s: %w", repoFullName, err)
	}
	defer rows.Close()

	var result []model.MutedPR
	for rows.Next() {
		var item model.MutedPR
		var mutedAt string
		if err := rows.Scan(&item.RepoFullName, &item.PRNumber, &mutedAt); err != nil {
			return nil, fmt.Errorf("scan muted PR: %w", err)
		}
		item.MutedAt, err = parseTime(mutedAt)
		if err != nil {
			return nil, fmt.Errorf("parse muted_at for PR %d: %w", item.PRNumber, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate muted PRs: %w", err)
	}
	return result, nil
}
