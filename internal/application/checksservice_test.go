package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

type checksFixture struct {
	gh     *mockGitHubClient
	prs    *mockPRStore
	checks *mockCheckStore
	repos  *mockRepoStore
	git    *mockGit
	opener *mockOpener
	prID   int64
	svc    *application.ChecksService
}

func newChecksFixture(t *testing.T) *checksFixture {
	t.Helper()

	f := &checksFixture{
		gh:     &mockGitHubClient{},
		prs:    newMockPRStore(),
		checks: newMockCheckStore(),
		repos:  newMockRepoStore(model.Repository{FullName: testRepo, LocalPath: "/src/widgets", IsCurrent: true}),
		git:    &mockGit{},
		opener: &mockOpener{},
	}

	require.NoError(t, f.prs.Upsert(context.Background(), model.PullRequest{
		Number:       7,
		RepoFullName: testRepo,
		HeadSHA:      headSHA,
		Branch:       "feature/widgets",
		HeadRepo:     testRepo,
	}))
	pr, err := f.prs.GetByNumber(context.Background(), testRepo, 7)
	require.NoError(t, err)
	f.prID = pr.ID

	lint := failedRun(1, 10)
	lint.Name = "lint"
	lint.HTMLURL = "https://github.com/octo/widgets/runs/1"
	build := passedRun(2, 10)
	build.Name = "build"
	external := checkRun(3, 30, model.CheckStatusCompleted, model.ConclusionFailure)
	external.Name = "circleci"
	external.AppName = "CircleCI Checks"
	external.DetailsURL = "https://circleci.com/build/3"

	f.gh.setCheckRuns(headSHA, build, lint, external)
	f.gh.setStatuses(headSHA, model.CommitStatus{ID: 50, Context: "ci/jenkins", State: "success"})
	f.gh.jobs = map[int64]*model.WorkflowJob{
		1: {ID: 1, RunID: 900, Name: "lint", Status: "completed", Conclusion: "failure"},
	}
	f.gh.logs = "2026-03-01T10:00:00Z running\n2026-03-01T10:00:01Z ##[error]lint failed\n"

	f.svc = application.NewChecksService(
		application.NewGitHubClientProvider(f.gh, "octocat"),
		f.prs, f.checks, f.repos, f.git, f.opener,
	)
	return f
}

func names(checks []model.RefCheck) []string {
	out := make([]string, len(checks))
	for i, c := range checks {
		out[i] = c.Name
	}
	return out
}

func TestChecksService_GetPullRequestChecks_Live(t *testing.T) {
	f := newChecksFixture(t)

	view, err := f.svc.GetPullRequestChecks(context.Background(), testRepo, 7)
	require.NoError(t, err)

	assert.True(t, view.Live)
	assert.Equal(t, []string{"circleci", "lint", "build", "ci/jenkins"}, names(view.Checks))
	assert.Equal(t, []string{"circleci", "lint"}, names(view.FailedChecks()))

	cached, err := f.checks.GetChecksByPR(context.Background(), f.prID)
	require.NoError(t, err)
	assert.Len(t, cached, 4)
}

func TestChecksService_GetPullRequestChecks_FallsBackToCache(t *testing.T) {
	f := newChecksFixture(t)
	require.NoError(t, f.checks.ReplaceChecksForPR(context.Background(), f.prID, []model.RefCheck{passedRun(2, 10), failedRun(1, 10)}))
	f.gh.checkRunsErr = errString("offline")

	view, err := f.svc.GetPullRequestChecks(context.Background(), testRepo, 7)
	require.NoError(t, err)

	assert.False(t, view.Live)
	require.Len(t, view.Checks, 2)
	assert.True(t, view.Checks[0].IsFailed())
}

func TestChecksService_GetPullRequestChecks_NotFound(t *testing.T) {
	f := newChecksFixture(t)

	_, err := f.svc.GetPullRequestChecks(context.Background(), testRepo, 404)
	assert.ErrorIs(t, err, application.ErrPRNotFound)
}

func TestChecksService_GetCheckLogs(t *testing.T) {
	f := newChecksFixture(t)
	ctx := context.Background()
	_, err := f.svc.GetPullRequestChecks(ctx, testRepo, 7)
	require.NoError(t, err)

	logs, err := f.svc.GetCheckLogs(ctx, testRepo, 7, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(900), logs.Job.RunID)
	assert.Equal(t, "https://logs.example.com/job", logs.LogsURL)
	assert.Equal(t, []string{"lint failed"}, logs.ErrorLines)
	assert.Equal(t, []string{"running", "##[error]lint failed"}, logs.Excerpt)

	// Completed jobs are served from the cache.
	_, err = f.svc.GetCheckLogs(ctx, testRepo, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.gh.downloadCalls)
}

func TestChecksService_GetCheckLogs_CacheDropsOldest(t *testing.T) {
	f := newChecksFixture(t)
	ctx := context.Background()

	total := int64(application.LogCacheSize + 1)
	checks := make([]model.RefCheck, 0, total)
	f.gh.jobs = make(map[int64]*model.WorkflowJob)
	for id := int64(1); id <= total; id++ {
		checks = append(checks, failedRun(id, 10))
		f.gh.jobs[id] = &model.WorkflowJob{ID: id, RunID: 900, Status: "completed", Conclusion: "failure"}
	}
	require.NoError(t, f.checks.ReplaceChecksForPR(ctx, f.prID, checks))

	for id := int64(1); id <= total; id++ {
		_, err := f.svc.GetCheckLogs(ctx, testRepo, 7, id)
		require.NoError(t, err)
	}
	require.Equal(t, int(total), f.gh.downloadCalls)

	// The newest job is still cached.
	_, err := f.svc.GetCheckLogs(ctx, testRepo, 7, total)
	require.NoError(t, err)
	assert.Equal(t, int(total), f.gh.downloadCalls)

	// The oldest was dropped and is downloaded again, pushing out job 2.
	_, err = f.svc.GetCheckLogs(ctx, testRepo, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int(total)+1, f.gh.downloadCalls)

	_, err = f.svc.GetCheckLogs(ctx, testRepo, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, int(total)+1, f.gh.downloadCalls)

	_, err = f.svc.GetCheckLogs(ctx, testRepo, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, int(total)+2, f.gh.downloadCalls)
}

func TestChecksService_GetCheckLogs_RunningJobNotCached(t *testing.T) {
	f := newChecksFixture(t)
	ctx := context.Background()
	f.gh.jobs[1].Status = "in_progress"
	_, err := f.svc.GetPullRequestChecks(ctx, testRepo, 7)
	require.NoError(t, err)

	for range 2 {
		_, err = f.svc.GetCheckLogs(ctx, testRepo, 7, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.gh.downloadCalls)
}

func TestChecksService_GetCheckLogs_Errors(t *testing.T) {
	f := newChecksFixture(t)
	ctx := context.Background()
	_, err := f.svc.GetPullRequestChecks(ctx, testRepo, 7)
	require.NoError(t, err)

	_, err = f.svc.GetCheckLogs(ctx, testRepo, 7, 3)
	assert.ErrorIs(t, err, application.ErrLogsUnavailable)

	_, err = f.svc.GetCheckLogs(ctx, testRepo, 7, 12345)
	assert.ErrorIs(t, err, application.ErrCheckNotFound)
}

func TestChecksService_RerunSingle(t *testing.T) {
	f := newChecksFixture(t)
	ctx := context.Background()
	_, err := f.svc.GetPullRequestChecks(ctx, testRepo, 7)
	require.NoError(t, err)

	n, err := f.svc.RerunChecks(ctx, testRepo, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, f.gh.rerunJobs)

	n, err = f.svc.RerunChecks(ctx, testRepo, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{30}, f.gh.rerequested)

	// 50 is a commit status, not a check run.
	_, err = f.svc.RerunChecks(ctx, testRepo, 7, 50)
	assert.ErrorIs(t, err, application.ErrCheckNotFound)
}

func TestChecksService_RerunAllFailed(t *testing.T) {
	f := newChecksFixture(t)

	n, err := f.svc.RerunChecks(context.Background(), testRepo, 7, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{900}, f.gh.rerunRuns)
	assert.Equal(t, []int64{30}, f.gh.rerequested)
	assert.Empty(t, f.gh.rerunJobs)
}

func TestChecksService_RerunAllFailed_NothingToRerun(t *testing.T) {
	f := newChecksFixture(t)
	f.gh.setCheckRuns(headSHA, passedRun(2, 10))

	_, err := f.svc.RerunChecks(context.Background(), testRepo, 7, 0)
	assert.ErrorIs(t, err, application.ErrNotRerunnable)
}

func TestChecksService_RerunWithoutClient(t *testing.T) {
	f := newChecksFixture(t)
	svc := application.NewChecksService(application.NewGitHubClientProvider(nil, ""), f.prs, f.checks, f.repos, f.git, f.opener)

	_, err := svc.RerunChecks(context.Background(), testRepo, 7, 1)
	assert.ErrorIs(t, err, application.ErrNoGitHubClient)
}

func TestChecksService_SwitchToPullRequest(t *testing.T) {
	f := newChecksFixture(t)

	branch, err := f.svc.SwitchToPullRequest(context.Background(), testRepo, 7)
	require.NoError(t, err)

	assert.Equal(t, "feature/widgets", branch)
	assert.Equal(t, []int{7}, f.git.checkedOut)
}

func TestChecksService_SwitchToPullRequest_NoLocalClone(t *testing.T) {
	f := newChecksFixture(t)
	f.repos.repos[testRepo] = model.Repository{FullName: testRepo}

	_, err := f.svc.SwitchToPullRequest(context.Background(), testRepo, 7)
	assert.ErrorIs(t, err, application.ErrNoLocalClone)
}

func TestLocalBranchName(t *testing.T) {
	assert.Equal(t, "main-fix", application.LocalBranchName(model.PullRequest{RepoFullName: testRepo, HeadRepo: testRepo, Branch: "main-fix"}))
	assert.Equal(t, "alice-patch-1", application.LocalBranchName(model.PullRequest{RepoFullName: testRepo, HeadRepo: "alice/widgets", Branch: "patch-1"}))
	assert.Equal(t, "pr/9", application.LocalBranchName(model.PullRequest{Number: 9}))
}

func TestChecksService_OpenCheckDetails(t *testing.T) {
	f := newChecksFixture(t)
	ctx := context.Background()
	_, err := f.svc.GetPullRequestChecks(ctx, testRepo, 7)
	require.NoError(t, err)

	require.NoError(t, f.svc.OpenCheckDetails(ctx, testRepo, 7, model.CheckSourceCheckRun, 1))
	require.NoError(t, f.svc.OpenCheckDetails(ctx, testRepo, 7, model.CheckSourceCheckRun, 3))

	assert.Equal(t, []string{"https://github.com/octo/widgets/runs/1", "https://circleci.com/build/3"}, f.opener.opened)

	err = f.svc.OpenCheckDetails(ctx, testRepo, 7, model.CheckSourceCommitStatus, 3)
	assert.ErrorIs(t, err, application.ErrCheckNotFound)
}

func TestChecksService_StatusAndCheckRunWithSameID(t *testing.T) {
	f := newChecksFixture(t)
	ctx := context.Background()
	f.gh.setStatuses(headSHA, model.CommitStatus{
		ID:        1,
		Context:   "ci/jenkins",
		State:     "failure",
		TargetURL: "https://jenkins.example.com/job/1",
	})
	_, err := f.svc.GetPullRequestChecks(ctx, testRepo, 7)
	require.NoError(t, err)

	require.NoError(t, f.svc.OpenCheckDetails(ctx, testRepo, 7, model.CheckSourceCommitStatus, 1))
	require.NoError(t, f.svc.OpenCheckDetails(ctx, testRepo, 7, model.CheckSourceCheckRun, 1))
	assert.Equal(t, []string{"https://jenkins.example.com/job/1", "https://github.com/octo/widgets/runs/1"}, f.opener.opened)

	logs, err := f.svc.GetCheckLogs(ctx, testRepo, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, "lint", logs.Check.Name)

	n, err := f.svc.RerunChecks(ctx, testRepo, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, f.gh.rerunJobs)
}
