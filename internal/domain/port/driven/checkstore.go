package driven

import (
	"context"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// CheckStore defines the driven port for cached check persistence.
// Uses full replacement strategy: all checks for a PR are replaced atomically.
type CheckStore interface {
	// ReplaceChecksForPR deletes all existing checks for the given PR
	// and inserts the provided checks atomically in a transaction.
	ReplaceChecksForPR(ctx context.Context, prID int64, checks []model.RefCheck) error
	// GetChecksByPR returns all checks for the given PR, ordered by name.
	GetChecksByPR(ctx context.Context, prID int64) ([]model.RefCheck, error)
}

// CheckStateStore persists the poller's dedup records so a restart does not
// re-notify failures that were already reported.
type CheckStateStore interface {
	// LoadEntries returns every stored entry for the repository.
	LoadEntries(ctx context.Context, repoFullName string) ([]model.LastCheckedPullRequestEntry, error)
	// SaveEntry inserts or replaces the entry for its (repo, PR number).
	SaveEntry(ctx context.Context, entry model.LastCheckedPullRequestEntry) error
	// DeleteEntry removes the entry for a PR. No-op if it does not exist.
	DeleteEntry(ctx context.Context, repoFullName string, prNumber int) error
}
