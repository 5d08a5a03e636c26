package model

// PRStatus represents the state of a pull request.
type PRStatus string

const (
	PRStatusOpen   PRStatus = "open"
	PRStatusClosed PRStatus = "closed"
	PRStatusMerged PRStatus = "merged"
)

// CheckStatus is the lifecycle state of a check run, status or aggregate.
type CheckStatus string

const (
	CheckStatusQueued     CheckStatus = "queued"
	CheckStatusInProgress CheckStatus = "in_progress"
	CheckStatusCompleted  CheckStatus = "completed"
)

// CheckConclusion is the outcome of a completed check. Empty means no
// conclusion has been reached yet.
type CheckConclusion string

const (
	ConclusionNone           CheckConclusion = ""
	ConclusionSuccess        CheckConclusion = "success"
	ConclusionFailure        CheckConclusion = "failure"
	ConclusionNeutral        CheckConclusion = "neutral"
	ConclusionCancelled      CheckConclusion = "cancelled" //nolint:misspell // GitHub API spelling.
	ConclusionSkipped        CheckConclusion = "skipped"
	ConclusionTimedOut       CheckConclusion = "timed_out"
	ConclusionActionRequired CheckConclusion = "action_required"
	ConclusionStale          CheckConclusion = "stale"
	ConclusionStartupFailure CheckConclusion = "startup_failure"
)

// IsFailure reports whether the conclusion counts as a failed check.
func (c CheckConclusion) IsFailure() bool {
	switch c {
	case ConclusionFailure, ConclusionTimedOut, ConclusionCancelled, ConclusionActionRequired, ConclusionStartupFailure:
		return true
	default:
		return false
	}
}

// IsSuccessful reports whether the conclusion should be treated as passing.
func (c CheckConclusion) IsSuccessful() bool {
	switch c {
	case ConclusionSuccess, ConclusionNeutral, ConclusionSkipped:
		return true
	default:
		return false
	}
}

// CheckSource distinguishes Checks API runs from legacy commit statuses.
type CheckSource string

const (
	CheckSourceCheckRun     CheckSource = "check_run"
	CheckSourceCommitStatus CheckSource = "status"
)

// NotifyScope controls which pull requests can raise notifications.
type NotifyScope string

const (
	NotifyScopeAuthored NotifyScope = "authored" // Only PRs authored by the configured user.
	NotifyScopeAll      NotifyScope = "all"
)
