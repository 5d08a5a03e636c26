package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CheckStateStore = (*CheckStateRepo)(nil)

// CheckStateRepo is the SQLite implementation of the CheckStateStore port
// interface. The completed suite set and the reported failure keys are stored
// as sorted JSON arrays; a NULL reported_failures marks an entry written
// before that set was tracked.
type CheckStateRepo struct {
	db *DB
}

// NewCheckStateRepo creates a new CheckStateRepo backed by the given DB.
func NewCheckStateRepo(db *DB) *CheckStateRepo {
	return &CheckStateRepo{db: db}
}

// LoadEntries returns every stored dedup entry for the repository, ordered by PR number.
func (r *CheckStateRepo) LoadEntries(ctx context.Context, repoFullName string) ([]model.LastCheckedPullRequestEntry, error) {
	const query = `
		SELECT repo_full_name, pr_number, head_sha, status, conclusion, completed_suite_ids, reported_failures, checked_at
		FROM check_state
		WHERE repo_full_name = ?
		ORDER BY pr_number
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoFullName)
	if err != nil {
		return nil, fmt.Errorf("query check state for %s: %w", repoFullName, err)
	}
	defer rows.Close()

	var entries []model.LastCheckedPullRequestEntry
	for rows.Next() {
		var e model.LastCheckedPullRequestEntry
		var suitesJSON, checkedAt string
		var reportedJSON sql.NullString
		if err := rows.Scan(&e.RepoFullName, &e.PRNumber, &e.HeadSHA, &e.Status, &e.Conclusion, &suitesJSON, &reportedJSON, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan check state: %w", err)
		}

		var ids []int64
		if err := json.Unmarshal([]byte(suitesJSON), &ids); err != nil {
			return nil, fmt.Errorf("decode completed suites for PR %d: %w", e.PRNumber, err)
		}
		e.CompletedCheckSuiteIDs = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			e.CompletedCheckSuiteIDs[id] = struct{}{}
		}

		if reportedJSON.Valid {
			var keys []string
			if err := json.Unmarshal([]byte(reportedJSON.String), &keys); err != nil {
				return nil, fmt.Errorf("decode reported failures for PR %d: %w", e.PRNumber, err)
			}
			e.ReportedFailures = make(map[string]struct{}, len(keys))
			for _, k := range keys {
				e.ReportedFailures[k] = struct{}{}
			}
		}

		e.CheckedAt, err = parseTime(checkedAt)
		if err != nil {
			return nil, fmt.Errorf("parse checked_at for PR %d: %w", e.PRNumber, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check state: %w", err)
	}

	return entries, nil
}

// SaveEntry inserts or replaces the entry keyed by its repository and PR number.
func (r *CheckStateRepo) SaveEntry(ctx context.Context, entry model.LastCheckedPullRequestEntry) error {
	ids := entry.SuiteIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	suitesJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode completed suites for PR %d: %w", entry.PRNumber, err)
	}

	var reported any
	if entry.ReportedFailures != nil {
		b, err := json.Marshal(entry.ReportedKeys())
		if err != nil {
			return fmt.Errorf("encode reported failures for PR %d: %w", entry.PRNumber, err)
		}
		reported = string(b)
	}

	const query = `
		INSERT INTO check_state (repo_full_name, pr_number, head_sha, status, conclusion, completed_suite_ids, reported_failures, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_full_name, pr_number) DO UPDATE SET
			head_sha = excluded.head_sha,
			status = excluded.status,
			conclusion = excluded.conclusion,
			completed_suite_ids = excluded.completed_suite_ids,
			reported_failures = excluded.reported_failures,
			checked_at = excluded.checked_at
	`

	_, err = r.db.Writer.ExecContext(ctx, query,
		entry.RepoFullName, entry.PRNumber, entry.HeadSHA, entry.Status, entry.Conclusion,
		string(suitesJSON), reported, entry.CheckedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save check state for %s#%d: %w", entry.RepoFullName, entry.PRNumber, err)
	}

	return nil
}

// DeleteEntry removes the entry for a PR. No-op if it does not exist.
func (r *CheckStateRepo) DeleteEntry(ctx context.Context, repoFullName string, prNumber int) error {
	const query = `DELETE FROM check_state WHERE repo_full_name = ? AND pr_number = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, repoFullName, prNumber); err != nil {
		return fmt.Errorf("delete check state for %s#%d: %w", repoFullName, prNumber, err)
	}
	return nil
}
