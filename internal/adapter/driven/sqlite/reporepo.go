package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

const repoColumns = `id, full_name, owner, name, local_path, is_current, added_at`

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db *DB
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db}
}

// Add inserts a new repository. Returns an error wrapping ErrRepoAlreadyExists
// if a repository with the same full_name already exists. The IsCurrent flag
// is ignored; use SetCurrent to select a repository.
func (r *RepoRepo) Add(ctx context.Context, repo model.Repository) error {
	const query = `INSERT INTO repositories (full_name, owner, name, local_path, added_at) VALUES (?, ?, ?, ?, ?)`

	addedAt := repo.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query, repo.FullName, repo.Owner, repo.Name, repo.LocalPath, addedAt.UTC())
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("add repository %s: %w", repo.FullName, driven.ErrRepoAlreadyExists)
		}
		return fmt.Errorf("add repository %s: %w", repo.FullName, err)
	}

	return nil
}

// Remove deletes a repository by full name. Due to foreign key cascade, all
// associated pull requests and their cached checks are also deleted.
func (r *RepoRepo) Remove(ctx context.Context, fullName string) error {
	const query = `DELETE FROM repositories WHERE full_name = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, fullName)
	if err != nil {
		return fmt.Errorf("remove repository %s: %w", fullName, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove repository %s: %w", fullName, driven.ErrRepoNotFound)
	}

	return nil
}

// GetByFullName retrieves a repository by its full name. Returns nil, nil if
// the repository does not exist.
func (r *RepoRepo) GetByFullName(ctx context.Context, fullName string) (*model.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories WHERE full_name = ?`

	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query, fullName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", fullName, err)
	}

	return repo, nil
}

// ListAll returns all repositories ordered by full name.
func (r *RepoRepo) ListAll(ctx context.Context) ([]model.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories ORDER BY full_name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// SetCurrent marks fullName as the current repository and clears the flag on
// every other row in a single transaction.
func (r *RepoRepo) SetCurrent(ctx context.Context, fullName string) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	if _, err := tx.ExecContext(ctx, `UPDATE repositories SET is_current = 0 WHERE is_current = 1`); err != nil {
		return fmt.Errorf("clear current repository: %w", err)
	}

	result, err := tx.ExecContext(ctx, `UPDATE repositories SET is_current = 1 WHERE full_name = ?`, fullName)
	if err != nil {
		return fmt.Errorf("set current repository %s: %w", fullName, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set current repository %s: %w", fullName, driven.ErrRepoNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit current repository %s: %w", fullName, err)
	}

	return nil
}

// SetLocalPath updates the local clone path of the repository.
func (r *RepoRepo) SetLocalPath(ctx context.Context, fullName, localPath string) error {
	result, err := r.db.Writer.ExecContext(ctx,
		`UPDATE repositories SET local_path = ? WHERE full_name = ?`, localPath, fullName)
	if err != nil {
		return fmt.Errorf("set local path of %s: %w", fullName, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("set local path of %s: %w", fullName, driven.ErrRepoNotFound)
	}
	return nil
}

// GetCurrent returns the current repository, or nil, nil if none is selected.
func (r *RepoRepo) GetCurrent(ctx context.Context) (*model.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories WHERE is_current = 1 LIMIT 1`

	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current repository: %w", err)
	}

	return repo, nil
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var isCurrent int
	var addedAt string

	err := s.Scan(&repo.ID, &repo.FullName, &repo.Owner, &repo.Name, &repo.LocalPath, &isCurrent, &addedAt)
	if err != nil {
		return nil, err
	}

	repo.IsCurrent = isCurrent != 0

	repo.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &repo, nil
}
