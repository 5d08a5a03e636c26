package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CheckStore = (*CheckRepo)(nil)

// CheckRepo is the SQLite implementation of the CheckStore port interface.
type CheckRepo struct {
	db *DB
}

// NewCheckRepo creates a new CheckRepo backed by the given DB.
func NewCheckRepo(db *DB) *CheckRepo {
	return &CheckRepo{db: db}
}

const checkColumns = `id, pr_id, source, name, description, status, conclusion, app_name,
	check_suite_id, head_sha, html_url, details_url, output_summary, started_at, completed_at`

// ReplaceChecksForPR atomically replaces all cached checks for a PR.
// It deletes existing checks and inserts the provided checks in a single transaction.
func (r *CheckRepo) ReplaceChecksForPR(ctx context.Context, prID int64, checks []model.RefCheck) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	if _, err := tx.ExecContext(ctx, `DELETE FROM ref_checks WHERE pr_id = ?`, prID); err != nil {
		return fmt.Errorf("delete checks for PR %d: %w", prID, err)
	}

	const insertQuery = `
		INSERT OR REPLACE INTO ref_checks (` + checkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, c := range checks {
		if _, err := tx.ExecContext(ctx, insertQuery,
			c.ID, prID, c.Source, c.Name, c.Description, c.Status, c.Conclusion, c.AppName,
			c.CheckSuiteID, c.HeadSHA, c.HTMLURL, c.DetailsURL, c.OutputSummary,
			nullableTime(c.StartedAt), nullableTime(c.CompletedAt),
		); err != nil {
			return fmt.Errorf("insert check %s/%d for PR %d: %w", c.Source, c.ID, prID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checks for PR %d: %w", prID, err)
	}

	return nil
}

// GetChecksByPR returns all cached checks for the given PR, ordered by name.
func (r *CheckRepo) GetChecksByPR(ctx context.Context, prID int64) ([]model.RefCheck, error) {
	query := `SELECT ` + checkColumns + ` FROM ref_checks WHERE pr_id = ? ORDER BY name, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, prID)
	if err != nil {
		return nil, fmt.Errorf("query checks for PR %d: %w", prID, err)
	}
	defer rows.Close()

	var checks []model.RefCheck
	for rows.Next() {
		c, err := scanRefCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		checks = append(checks, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checks: %w", err)
	}

	return checks, nil
}

func scanRefCheck(s scanner) (*model.RefCheck, error) {
	var c model.RefCheck
	var startedAt, completedAt sql.NullString

	err := s.Scan(
		&c.ID, &c.PRID, &c.Source, &c.Name, &c.Description, &c.Status, &c.Conclusion, &c.AppName,
		&c.CheckSuiteID, &c.HeadSHA, &c.HTMLURL, &c.DetailsURL, &c.OutputSummary,
		&startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if c.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	return &c, nil
}
