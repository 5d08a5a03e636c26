package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

const headSHA = "abc1234def5678"

type notifyFixture struct {
	gh       *mockGitHubClient
	provider *application.GitHubClientProvider
	repos    *mockRepoStore
	prs      *mockPRStore
	checks   *mockCheckStore
	state    *mockCheckStateStore
	settings *mockSettingsStore
	mutes    *mockMuteStore
	history  *mockHistory
	git      *mockGit
	notifier *recordingNotifier
	now      time.Time
	dryRun   bool
}

func newNotifyFixture() *notifyFixture {
	gh := &mockGitHubClient{
		prs: []model.PullRequest{
			{Number: 7, RepoFullName: testRepo, Title: "Add widgets", Author: "octocat", HeadSHA: headSHA, Status: model.PRStatusOpen},
		},
	}
	gh.setCheckRuns(headSHA, failedRun(1, 10), passedRun(2, 10))

	return &notifyFixture{
		gh:       gh,
		provider: application.NewGitHubClientProvider(gh, "octocat"),
		repos: newMockRepoStore(model.Repository{
			FullName:  testRepo,
			Owner:     "octo",
			Name:      "widgets",
			LocalPath: "/src/widgets",
			IsCurrent: true,
		}),
		prs:      newMockPRStore(),
		checks:   newMockCheckStore(),
		state:    newMockCheckStateStore(),
		settings: &mockSettingsStore{},
		mutes:    &mockMuteStore{},
		history:  &mockHistory{},
		git:      &mockGit{},
		notifier: &recordingNotifier{},
		now:      t0,
	}
}

func (f *notifyFixture) service() *application.NotificationService {
	return application.NewNotificationService(application.NotificationDeps{
		Provider:         f.provider,
		Repos:            f.repos,
		PRs:              f.prs,
		Checks:           f.checks,
		Tracker:          application.NewCheckTracker(f.state),
		Settings:         f.settings,
		Mutes:            f.mutes,
		History:          f.history,
		Git:              f.git,
		Notifier:         f.notifier,
		PollInterval:     time.Hour,
		MinCheckInterval: 10 * time.Second,
		DialogBaseURL:    "http://127.0.0.1:8080/",
		DryRun:           f.dryRun,
		Now:              func() time.Time { return f.now },
	})
}

func TestNotificationService_NotifiesNewFailure(t *testing.T) {
	f := newNotifyFixture()
	svc := f.service()

	got, err := svc.RunOnce(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, got, 1)

	n := got[0]
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "Pull Request checks failed", n.Title)
	assert.Equal(t, "Add widgets #7 (abc1234)\n1 check not successful.", n.Body)
	assert.Equal(t, 1, n.FailedChecks)
	assert.Equal(t, "http://127.0.0.1:8080/checks/octo/widgets/7", n.DialogURL)
	assert.Equal(t, t0, n.CreatedAt)

	assert.Equal(t, 1, f.notifier.count())
	require.Len(t, f.history.added, 1)
	assert.Equal(t, n.ID, f.history.added[0].ID)

	pr, err := f.prs.GetByNumber(context.Background(), testRepo, 7)
	require.NoError(t, err)
	require.NotNil(t, pr)
	cached, err := f.checks.GetChecksByPR(context.Background(), pr.ID)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
	assert.Equal(t, pr.ID, cached[0].PRID)
}

func TestNotificationService_DoesNotRepeatKnownFailure(t *testing.T) {
	f := newNotifyFixture()
	svc := f.service()
	ctx := context.Background()

	_, err := svc.RunOnce(ctx, true)
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	got, err := svc.RunOnce(ctx, true)
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Equal(t, 1, f.notifier.count())
}

func TestNotificationService_RestartDoesNotRenotify(t *testing.T) {
	f := newNotifyFixture()
	ctx := context.Background()

	_, err := f.service().RunOnce(ctx, true)
	require.NoError(t, err)

	got, err := f.service().RunOnce(ctx, true)
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Equal(t, 1, f.notifier.count())
}

func TestNotificationService_RateLimit(t *testing.T) {
	f := newNotifyFixture()
	svc := f.service()
	ctx := context.Background()

	_, err := svc.RunOnce(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, f.gh.checkRunsCalls)

	f.now = f.now.Add(5 * time.Second)
	_, err = svc.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.gh.checkRunsCalls, "cycle within the minimum interval is skipped")

	_, err = svc.RunOnce(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.gh.checkRunsCalls, "forced cycle bypasses the limit")

	f.now = f.now.Add(11 * time.Second)
	_, err = svc.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, f.gh.checkRunsCalls)
}

func TestNotificationService_Filters(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *notifyFixture)
		notify bool
	}{
		{
			name:   "other author with authored scope",
			setup:  func(f *notifyFixture) { f.gh.prs[0].Author = "someone" },
			notify: false,
		},
		{
			name: "other author with all scope",
			setup: func(f *notifyFixture) {
				f.gh.prs[0].Author = "someone"
				f.settings.settings = map[string]model.RepoSettings{
					testRepo: {RepoFullName: testRepo, NotificationsEnabled: true, Scope: model.NotifyScopeAll},
				}
			},
			notify: true,
		},
		{
			name:   "author matches case-insensitively",
			setup:  func(f *notifyFixture) { f.gh.prs[0].Author = "OctoCat" },
			notify: true,
		},
		{
			name: "notifications disabled",
			setup: func(f *notifyFixture) {
				f.settings.settings = map[string]model.RepoSettings{
					testRepo: {RepoFullName: testRepo, NotificationsEnabled: false, Scope: model.NotifyScopeAll},
				}
			},
			notify: false,
		},
		{
			name:   "muted",
			setup:  func(f *notifyFixture) { f.mutes.muted = map[int]bool{7: true} },
			notify: false,
		},
		{
			name:   "head commit missing locally",
			setup:  func(f *notifyFixture) { f.git.missing = map[string]bool{headSHA: true} },
			notify: false,
		},
		{
			name: "no local clone skips commit lookup",
			setup: func(f *notifyFixture) {
				f.git.missing = map[string]bool{headSHA: true}
				f.repos.repos[testRepo] = model.Repository{FullName: testRepo, IsCurrent: true}
			},
			notify: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNotifyFixture()
			tt.setup(f)

			got, err := f.service().RunOnce(context.Background(), true)
			require.NoError(t, err)

			if tt.notify {
				assert.Len(t, got, 1)
				assert.Equal(t, 1, f.notifier.count())
			} else {
				assert.Empty(t, got)
				assert.Zero(t, f.notifier.count())
			}

			// Dedup state is updated regardless of filters.
			assert.Contains(t, f.state.entries, 7)
		})
	}
}

func TestNotificationService_DryRun(t *testing.T) {
	f := newNotifyFixture()
	f.dryRun = true

	got, err := f.service().RunOnce(context.Background(), true)
	require.NoError(t, err)

	assert.Len(t, got, 1)
	assert.Zero(t, f.notifier.count())
	assert.Empty(t, f.history.added)
}

func TestNotificationService_RemovesStalePullRequests(t *testing.T) {
	f := newNotifyFixture()
	svc := f.service()
	ctx := context.Background()

	_, err := svc.RunOnce(ctx, true)
	require.NoError(t, err)
	require.Contains(t, f.state.entries, 7)

	f.gh.prs = nil
	_, err = svc.RunOnce(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, []int{7}, f.prs.deletes)
	assert.NotContains(t, f.state.entries, 7)
}

func TestNotificationService_PerPRErrorsDoNotAbortCycle(t *testing.T) {
	f := newNotifyFixture()
	f.gh.checkRunsErr = errString("boom")

	got, err := f.service().RunOnce(context.Background(), true)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNotificationService_Preconditions(t *testing.T) {
	t.Run("no current repository", func(t *testing.T) {
		f := newNotifyFixture()
		f.repos = newMockRepoStore()

		_, err := f.service().RunOnce(context.Background(), true)
		assert.ErrorIs(t, err, application.ErrNoCurrentRepository)
	})

	t.Run("no client", func(t *testing.T) {
		f := newNotifyFixture()
		f.provider = application.NewGitHubClientProvider(nil, "")

		_, err := f.service().RunOnce(context.Background(), true)
		assert.ErrorIs(t, err, application.ErrNoGitHubClient)
	})

	t.Run("pull request fetch fails", func(t *testing.T) {
		f := newNotifyFixture()
		f.gh.fetchPRsErr = errString("unavailable")

		_, err := f.service().RunOnce(context.Background(), true)
		assert.Error(t, err)
	})
}

func TestNotificationService_StartAndRefresh(t *testing.T) {
	f := newNotifyFixture()
	svc := f.service()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	// The initial cycle notifies; the manual refresh sees nothing new.
	got, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, f.notifier.count())

	cancel()
	<-done
}

func TestNotificationService_SelectRepository(t *testing.T) {
	f := newNotifyFixture()
	require.NoError(t, f.repos.Add(context.Background(), model.Repository{FullName: "octo/gadgets"}))
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.SelectRepository(ctx, "octo/gadgets"))

	current, err := f.repos.GetCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "octo/gadgets", current.FullName)

	assert.ErrorIs(t, svc.SelectRepository(ctx, "octo/missing"), driven.ErrRepoNotFound)
}

func TestNotificationBody(t *testing.T) {
	pr := model.PullRequest{Number: 12, Title: "Fix flake", HeadSHA: "0123456789"}

	assert.Equal(t, "Fix flake #12 (0123456)\n1 check not successful.", application.NotificationBody(pr, 1))
	assert.Equal(t, "Fix flake #12 (0123456)\n3 checks not successful.", application.NotificationBody(pr, 3))
}

func TestDialogURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000/checks/octo/widgets/3", application.DialogURL("http://localhost:9000", testRepo, 3))
	assert.Empty(t, application.DialogURL("", testRepo, 3))
}

func TestNotificationService_ScheduleFollowsActivity(t *testing.T) {
	f := newNotifyFixture()
	svc := f.service()

	assert.Equal(t, application.TierHot, svc.Schedule().Tier)

	// Completed checks on a PR with no recent update back off.
	_, err := svc.RunOnce(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, application.TierStale, svc.Schedule().Tier)
	assert.Equal(t, t0, svc.Schedule().LastPolled)

	// A running check brings polling back to the base interval.
	f.gh.setCheckRuns(headSHA, failedRun(1, 10), runningRun(3, 11))
	_, err = svc.RunOnce(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, application.TierHot, svc.Schedule().Tier)
	assert.Equal(t, time.Hour, svc.Schedule().Interval)
}
