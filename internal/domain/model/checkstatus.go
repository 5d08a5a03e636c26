package model

import (
	"strconv"
	"time"
)

// RefCheck is a single CI signal for a commit, unified from either a check
// run (Checks API) or a commit status (Status API).
type RefCheck struct {
	ID            int64           // Check run ID, or status ID for commit statuses.
	PRID          int64           // Foreign key to pull_requests; zero until stored.
	Source        CheckSource     // check_run or status.
	Name          string          // Check run name or status context.
	Description   string          // Output title or status description.
	Status        CheckStatus     // queued, in_progress, completed.
	Conclusion    CheckConclusion // Empty until completed.
	AppName       string          // GitHub App that created the run (e.g., "GitHub Actions").
	CheckSuiteID  int64           // Zero for commit statuses.
	HeadSHA       string          // Commit the check ran against.
	HTMLURL       string          // Check run page on github.com.
	DetailsURL    string          // Integrator's details page or status target URL.
	OutputSummary string          // Markdown summary from the check run output.
	StartedAt     time.Time
	CompletedAt   time.Time
}

// FailureKey identifies one failing check across observations. Check run
// and status IDs come from separate ID spaces, so the source is part of it.
// A re-run produces a new ID and therefore a new key.
func (c RefCheck) FailureKey() string {
	return string(c.Source) + ":" + strconv.FormatInt(c.ID, 10)
}

// IsActionsJob reports whether the check was produced by GitHub Actions, in
// which case the check run ID doubles as the workflow job ID.
func (c RefCheck) IsActionsJob() bool {
	return c.Source == CheckSourceCheckRun && (c.AppName == "GitHub Actions" || c.AppName == "github-actions")
}

// IsFailed reports whether the check completed with a failing conclusion.
func (c RefCheck) IsFailed() bool {
	return c.Conclusion.IsFailure()
}

// Duration returns how long the check ran. Zero if it has not completed.
func (c RefCheck) Duration() time.Duration {
	if c.StartedAt.IsZero() || c.CompletedAt.IsZero() {
		return 0
	}
	return c.CompletedAt.Sub(c.StartedAt)
}

// CombinedRefCheck aggregates all checks for a commit into a single
// status and conclusion.
type CombinedRefCheck struct {
	Status     CheckStatus
	Conclusion CheckConclusion
	Checks     []RefCheck
}

// FailedChecks returns the checks with a failing conclusion.
func (c CombinedRefCheck) FailedChecks() []RefCheck {
	var failed []RefCheck
	for _, check := range c.Checks {
		if check.IsFailed() {
			failed = append(failed, check)
		}
	}
	return failed
}

// CompletedCheckSuiteIDs returns the set of check-suite IDs whose runs have
// all completed. A suite with any run still queued or in progress is not
// considered completed.
func (c CombinedRefCheck) CompletedCheckSuiteIDs() map[int64]struct{} {
	pending := make(map[int64]bool)
	for _, check := range c.Checks {
		if check.Source != CheckSourceCheckRun || check.CheckSuiteID == 0 {
			continue
		}
		if check.Status != CheckStatusCompleted {
			pending[check.CheckSuiteID] = true
		} else if _, seen := pending[check.CheckSuiteID]; !seen {
			pending[check.CheckSuiteID] = false
		}
	}

	completed := make(map[int64]struct{}, len(pending))
	for id, isPending := range pending {
		if !isPending {
			completed[id] = struct{}{}
		}
	}
	return completed
}

// CombinedStatus represents the aggregated commit status from the GitHub Status API.
type CombinedStatus struct {
	State    string         // Overall state: success, failure, pending.
	Statuses []CommitStatus // Individual status entries.
}

// CommitStatus represents an individual status entry from the GitHub Status API.
type CommitStatus struct {
	ID          int64
	Context     string // CI service identifier (e.g., "ci/circleci").
	State       string // success, failure, pending, error.
	Description string
	TargetURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
