package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

func TestCombineRefChecks(t *testing.T) {
	tests := []struct {
		name           string
		checks         []model.RefCheck
		wantStatus     model.CheckStatus
		wantConclusion model.CheckConclusion
	}{
		{
			name:           "all passed",
			checks:         []model.RefCheck{passedRun(1, 1), passedRun(2, 2)},
			wantStatus:     model.CheckStatusCompleted,
			wantConclusion: model.ConclusionSuccess,
		},
		{
			name:           "failure while running",
			checks:         []model.RefCheck{failedRun(1, 1), runningRun(2, 2)},
			wantStatus:     model.CheckStatusInProgress,
			wantConclusion: model.ConclusionFailure,
		},
		{
			name:           "queued only",
			checks:         []model.RefCheck{checkRun(1, 1, model.CheckStatusQueued, model.ConclusionNone)},
			wantStatus:     model.CheckStatusQueued,
			wantConclusion: model.ConclusionNone,
		},
		{
			name:           "skipped counts as success",
			checks:         []model.RefCheck{passedRun(1, 1), checkRun(2, 1, model.CheckStatusCompleted, model.ConclusionSkipped)},
			wantStatus:     model.CheckStatusCompleted,
			wantConclusion: model.ConclusionSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := application.CombineRefChecks(tt.checks)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantConclusion, got.Conclusion)
		})
	}

	assert.Nil(t, application.CombineRefChecks(nil))
}

func TestFetchRefChecks_MergesStatusesAndRuns(t *testing.T) {
	updated := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	gh := &mockGitHubClient{}
	gh.setCheckRuns("sha", passedRun(1, 10))
	gh.setStatuses("sha",
		model.CommitStatus{ID: 5, Context: "ci/jenkins", State: "error", TargetURL: "https://ci/5", UpdatedAt: updated},
		model.CommitStatus{ID: 6, Context: "deploy", State: "pending"},
	)

	got, err := application.FetchRefChecks(context.Background(), gh, testRepo, "sha")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Checks, 3)

	jenkins := got.Checks[0]
	assert.Equal(t, model.CheckSourceCommitStatus, jenkins.Source)
	assert.Equal(t, model.ConclusionFailure, jenkins.Conclusion)
	assert.Equal(t, "https://ci/5", jenkins.DetailsURL)
	assert.Equal(t, updated, jenkins.CompletedAt)
	assert.Equal(t, model.CheckStatusInProgress, got.Checks[1].Status)

	assert.Equal(t, model.CheckStatusInProgress, got.Status)
	assert.Equal(t, model.ConclusionFailure, got.Conclusion)
}

func TestFetchRefChecks_NoChecks(t *testing.T) {
	got, err := application.FetchRefChecks(context.Background(), &mockGitHubClient{}, testRepo, "sha")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFetchRefChecks_RequiresBothSources(t *testing.T) {
	gh := &mockGitHubClient{statusesErr: errString("rate limited")}
	gh.setCheckRuns("sha", failedRun(1, 10))

	_, err := application.FetchRefChecks(context.Background(), gh, testRepo, "sha")
	assert.Error(t, err)
}

func TestSortChecksForDisplay(t *testing.T) {
	a := passedRun(1, 1)
	a.Name = "Alpha"
	b := runningRun(2, 1)
	b.Name = "beta"
	c := failedRun(3, 1)
	c.Name = "zeta"
	d := failedRun(4, 1)
	d.Name = "eta"

	checks := []model.RefCheck{a, b, c, d}
	application.SortChecksForDisplay(checks)

	assert.Equal(t, []string{"eta", "zeta", "beta", "Alpha"}, names(checks))
}
