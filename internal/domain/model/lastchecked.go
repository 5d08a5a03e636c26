package model

import (
	"slices"
	"time"
)

// LastCheckedPullRequestEntry records what the poller last observed for a
// pull request. It is the dedup record that keeps the same failure from
// being notified twice.
type LastCheckedPullRequestEntry struct {
	RepoFullName           string
	PRNumber               int
	HeadSHA                string
	Status                 CheckStatus
	Conclusion             CheckConclusion
	CompletedCheckSuiteIDs map[int64]struct{}
	// ReportedFailures holds the FailureKey of every failing check already
	// covered by a notification decision on HeadSHA. Nil for entries written
	// before the set was tracked.
	ReportedFailures map[string]struct{}
	CheckedAt        time.Time
}

// HasReported reports whether the failing check was already covered.
func (e LastCheckedPullRequestEntry) HasReported(check RefCheck) bool {
	_, ok := e.ReportedFailures[check.FailureKey()]
	return ok
}

// ReportedKeys returns the reported failure keys in sorted order.
func (e LastCheckedPullRequestEntry) ReportedKeys() []string {
	keys := make([]string, 0, len(e.ReportedFailures))
	for k := range e.ReportedFailures {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// HasCompletedSuitesOf reports whether every ID in suites is already in the
// entry's completed set.
func (e LastCheckedPullRequestEntry) HasCompletedSuitesOf(suites map[int64]struct{}) bool {
	for id := range suites {
		if _, ok := e.CompletedCheckSuiteIDs[id]; !ok {
			return false
		}
	}
	return true
}

// SuiteIDs returns the completed suite IDs as a slice.
func (e LastCheckedPullRequestEntry) SuiteIDs() []int64 {
	ids := make([]int64, 0, len(e.CompletedCheckSuiteIDs))
	for id := range e.CompletedCheckSuiteIDs {
		ids = append(ids, id)
	}
	return ids
}
