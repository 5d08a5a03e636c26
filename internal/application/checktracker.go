package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Observation is the outcome of feeding one PR's current checks to the tracker.
type Observation struct {
	// Unchanged is true when nothing completed since the previous observation.
	Unchanged bool
	// NewFailures are the failing checks that were not reported before.
	NewFailures []model.RefCheck
	// ShouldNotify is true when the aggregate failed and NewFailures is non-empty.
	ShouldNotify bool
}

// CheckTracker holds the last observed check state of every PR in the current
// repository. The in-memory map is authoritative; the optional store only
// carries it across restarts.
type CheckTracker struct {
	mu       sync.Mutex
	repo     string
	entries  map[int]model.LastCheckedPullRequestEntry
	store    driven.CheckStateStore
	readOnly bool
}

// NewCheckTracker creates a tracker. store may be nil for a tracker that
// forgets everything on restart.
func NewCheckTracker(store driven.CheckStateStore) *CheckTracker {
	return &CheckTracker{
		entries: make(map[int]model.LastCheckedPullRequestEntry),
		store:   store,
	}
}

// NewReadOnlyCheckTracker creates a tracker that restores entries from store
// but never writes to it, so a dry run leaves the recorded state untouched.
func NewReadOnlyCheckTracker(store driven.CheckStateStore) *CheckTracker {
	t := NewCheckTracker(store)
	t.readOnly = true
	return t
}

// Repository returns the repository the tracker currently holds entries for.
func (t *CheckTracker) Repository() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.repo
}

// Reset drops all entries and switches the tracker to repoFullName.
func (t *CheckTracker) Reset(repoFullName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.repo = repoFullName
	t.entries = make(map[int]model.LastCheckedPullRequestEntry)
}

// Load resets the tracker to repoFullName and restores persisted entries.
func (t *CheckTracker) Load(ctx context.Context, repoFullName string) error {
	t.Reset(repoFullName)
	if t.store == nil {
		return nil
	}

	entries, err := t.store.LoadEntries(ctx, repoFullName)
	if err != nil {
		return fmt.Errorf("load check state for %s: %w", repoFullName, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.repo != repoFullName {
		return nil
	}
	for _, e := range entries {
		t.entries[e.PRNumber] = e
	}
	return nil
}

// Entry returns the stored entry for a PR.
func (t *CheckTracker) Entry(prNumber int) (model.LastCheckedPullRequestEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[prNumber]
	return e, ok
}

// Forget drops the entry for a PR that is no longer open.
func (t *CheckTracker) Forget(ctx context.Context, prNumber int) {
	t.mu.Lock()
	repo := t.repo
	delete(t.entries, prNumber)
	t.mu.Unlock()

	if t.store != nil && !t.readOnly {
		if err := t.store.DeleteEntry(ctx, repo, prNumber); err != nil {
			slog.Warn("delete check state failed", "repo", repo, "pr", prNumber, "error", err)
		}
	}
}

// Observe compares the PR's current checks with the previous observation,
// replaces the stored entry, and reports whether a notification is due.
//
// Once the aggregate has failed, every failing check is recorded in the
// entry's reported set and never counts as new again on that commit. A
// re-run produces fresh check IDs, so its failures do count. A suite that is
// re-run drops out of the completed set while it runs, which makes its next
// completion a change.
func (t *CheckTracker) Observe(ctx context.Context, pr model.PullRequest, combined model.CombinedRefCheck, now time.Time) Observation {
	completed := combined.CompletedCheckSuiteIDs()

	t.mu.Lock()
	prev, hadPrev := t.entries[pr.Number]
	sameCommit := hadPrev && prev.HeadSHA == pr.HeadSHA

	reported := make(map[string]struct{})
	if sameCommit {
		for k := range prev.ReportedFailures {
			reported[k] = struct{}{}
		}
	}

	var newFailures []model.RefCheck
	for _, check := range combined.FailedChecks() {
		if !sameCommit || isNewFailure(check, prev) {
			newFailures = append(newFailures, check)
		}
		if combined.Conclusion == model.ConclusionFailure {
			reported[check.FailureKey()] = struct{}{}
		}
	}

	current := model.LastCheckedPullRequestEntry{
		RepoFullName:           pr.RepoFullName,
		PRNumber:               pr.Number,
		HeadSHA:                pr.HeadSHA,
		Status:                 combined.Status,
		Conclusion:             combined.Conclusion,
		CompletedCheckSuiteIDs: completed,
		ReportedFailures:       reported,
		CheckedAt:              now,
	}
	t.entries[pr.Number] = current
	t.mu.Unlock()

	unchanged := sameCommit &&
		prev.HasCompletedSuitesOf(completed) &&
		prev.Status == combined.Status &&
		prev.Conclusion == combined.Conclusion

	if !unchanged ||
		len(prev.CompletedCheckSuiteIDs) != len(completed) ||
		prev.ReportedFailures == nil ||
		len(prev.ReportedFailures) != len(reported) {
		t.persist(ctx, current)
	}

	if unchanged {
		return Observation{Unchanged: true}
	}

	return Observation{
		NewFailures:  newFailures,
		ShouldNotify: combined.Conclusion == model.ConclusionFailure && len(newFailures) > 0,
	}
}

// isNewFailure decides whether a failing check on an unchanged commit was
// already covered by the previous observation.
func isNewFailure(check model.RefCheck, prev model.LastCheckedPullRequestEntry) bool {
	if prev.ReportedFailures != nil {
		return !prev.HasReported(check)
	}
	// Entries restored from before the reported set existed fall back to
	// suite membership, and for commit statuses to the previous aggregate.
	if check.Source == model.CheckSourceCheckRun && check.CheckSuiteID != 0 {
		_, seen := prev.CompletedCheckSuiteIDs[check.CheckSuiteID]
		return !seen
	}
	return prev.Conclusion != model.ConclusionFailure
}

func (t *CheckTracker) persist(ctx context.Context, entry model.LastCheckedPullRequestEntry) {
	if t.store == nil || t.readOnly {
		return
	}
	if err := t.store.SaveEntry(ctx, entry); err != nil {
		slog.Warn("save check state failed", "repo", entry.RepoFullName, "pr", entry.PRNumber, "error", err)
	}
}
