package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// FetchRefChecks loads both commit statuses and check runs for ref and
// combines them. Both requests must succeed: a partial view would make
// already-reported check suites look new again. Returns nil, nil when the
// commit has no checks at all.
func FetchRefChecks(ctx context.Context, client driven.GitHubClient, repoFullName, ref string) (*model.CombinedRefCheck, error) {
	combinedStatus, err := client.FetchCombinedStatus(ctx, repoFullName, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch statuses: %w", err)
	}

	runs, err := client.FetchCheckRuns(ctx, repoFullName, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch check runs: %w", err)
	}

	checks := make([]model.RefCheck, 0, len(runs))
	if combinedStatus != nil {
		for _, s := range combinedStatus.Statuses {
			checks = append(checks, commitStatusToRefCheck(s, ref))
		}
	}
	checks = append(checks, runs...)

	return CombineRefChecks(checks), nil
}

// CombineRefChecks aggregates checks into a single status and conclusion.
//   - Status is completed when every check completed, in_progress when any
//     check is running, queued otherwise.
//   - Conclusion is failure as soon as any check failed, success once every
//     check completed successfully, and empty otherwise.
//
// Returns nil for an empty slice.
func CombineRefChecks(checks []model.RefCheck) *model.CombinedRefCheck {
	if len(checks) == 0 {
		return nil
	}

	allCompleted, anyInProgress := true, false
	anyFailed, allSuccessful := false, true

	for _, c := range checks {
		switch c.Status {
		case model.CheckStatusCompleted:
		case model.CheckStatusInProgress:
			anyInProgress = true
			allCompleted = false
		default:
			allCompleted = false
		}

		if c.Conclusion.IsFailure() {
			anyFailed = true
		}
		if c.Status != model.CheckStatusCompleted || !c.Conclusion.IsSuccessful() {
			allSuccessful = false
		}
	}

	combined := &model.CombinedRefCheck{Checks: checks}

	switch {
	case allCompleted:
		combined.Status = model.CheckStatusCompleted
	case anyInProgress:
		combined.Status = model.CheckStatusInProgress
	default:
		combined.Status = model.CheckStatusQueued
	}

	switch {
	case anyFailed:
		combined.Conclusion = model.ConclusionFailure
	case allSuccessful:
		combined.Conclusion = model.ConclusionSuccess
	default:
		combined.Conclusion = model.ConclusionNone
	}

	return combined
}

// commitStatusToRefCheck maps a legacy commit status onto the check model.
// pending becomes in_progress, error becomes failure.
func commitStatusToRefCheck(s model.CommitStatus, sha string) model.RefCheck {
	check := model.RefCheck{
		ID:          s.ID,
		Source:      model.CheckSourceCommitStatus,
		Name:        s.Context,
		Description: s.Description,
		HeadSHA:     sha,
		DetailsURL:  s.TargetURL,
		StartedAt:   s.CreatedAt,
	}

	switch strings.ToLower(s.State) {
	case "success":
		check.Status = model.CheckStatusCompleted
		check.Conclusion = model.ConclusionSuccess
		check.CompletedAt = s.UpdatedAt
	case "failure", "error":
		check.Status = model.CheckStatusCompleted
		check.Conclusion = model.ConclusionFailure
		check.CompletedAt = s.UpdatedAt
	default:
		check.Status = model.CheckStatusInProgress
	}

	return check
}

// SortChecksForDisplay orders failed checks first, then running ones, then
// the rest, each group alphabetically.
func SortChecksForDisplay(checks []model.RefCheck) {
	rank := func(c model.RefCheck) int {
		switch {
		case c.IsFailed():
			return 0
		case c.Status != model.CheckStatusCompleted:
			return 1
		default:
			return 2
		}
	}

	sort.SliceStable(checks, func(i, j int) bool {
		ri, rj := rank(checks[i]), rank(checks[j])
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(checks[i].Name) < strings.ToLower(checks[j].Name)
	})
}
