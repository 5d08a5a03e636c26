// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// NotificationTitle is the title of every failed-checks notification.
const NotificationTitle = "Pull Request checks failed"

// Default timings of the check cycle.
const (
	DefaultPollInterval     = time.Minute
	DefaultMinCheckInterval = 10 * time.Second
)

// NotificationDeps groups the collaborators of a NotificationService.
type NotificationDeps struct {
	Provider *GitHubClientProvider
	Repos    driven.RepoStore
	PRs      driven.PRStore
	Checks   driven.CheckStore
	Tracker  *CheckTracker
	Settings driven.RepoSettingsStore
	Mutes    driven.MuteStore
	History  driven.NotificationStore
	Git      driven.GitRepository // Optional.
	Notifier driven.Notifier

	PollInterval     time.Duration
	MinCheckInterval time.Duration
	// DialogBaseURL is the root of the local web UI, e.g. http://127.0.0.1:8080.
	DialogBaseURL string
	// DryRun builds notifications without showing or recording them.
	DryRun bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// refreshRequest represents a manual refresh trigger.
type refreshRequest struct {
	done chan refreshResult
}

type refreshResult struct {
	notifications []model.Notification
	err           error
}

// NotificationService polls the current repository's open pull requests and
// raises a notification when their checks newly fail.
type NotificationService struct {
	deps NotificationDeps

	// mu serializes check cycles.
	mu        sync.Mutex
	lastCheck time.Time
	tier      ActivityTier

	refreshCh chan refreshRequest
	kickCh    chan struct{}
}

// NewNotificationService creates a service. Zero intervals fall back to the
// defaults.
func NewNotificationService(deps NotificationDeps) *NotificationService {
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultPollInterval
	}
	if deps.MinCheckInterval <= 0 {
		deps.MinCheckInterval = DefaultMinCheckInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tracker == nil {
		deps.Tracker = NewCheckTracker(nil)
	}
	return &NotificationService{
		deps:      deps,
		refreshCh: make(chan refreshRequest),
		kickCh:    make(chan struct{}, 1),
	}
}

// Start runs an immediate cycle, then polls on an interval that adapts to
// the repository's activity tier. It also serves manual refreshes and
// repository switches. Start blocks until the context is canceled.
func (s *NotificationService) Start(ctx context.Context) {
	s.runLogged(ctx, true)

	timer := time.NewTimer(s.Schedule().Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("notification service stopped")
			return
		case <-timer.C:
			s.runLogged(ctx, false)
		case <-s.kickCh:
			s.runLogged(ctx, true)
		case req := <-s.refreshCh:
			notifications, err := s.RunOnce(ctx, true)
			req.done <- refreshResult{notifications: notifications, err: err}
		}

		// Go 1.23+ timers drop stale ticks on Reset.
		timer.Reset(s.Schedule().Interval)
	}
}

// Schedule reports the current activity tier and the polling interval
// derived from it.
func (s *NotificationService) Schedule() ScheduleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScheduleInfo{
		Tier:       s.tier,
		Interval:   tierInterval(s.tier, s.deps.PollInterval),
		LastPolled: s.lastCheck,
	}
}

func (s *NotificationService) runLogged(ctx context.Context, force bool) {
	if _, err := s.RunOnce(ctx, force); err != nil && !errors.Is(err, ErrNoCurrentRepository) && !errors.Is(err, ErrNoGitHubClient) {
		slog.Error("check cycle failed", "error", err)
	} else if err != nil {
		slog.Debug("check cycle skipped", "reason", err)
	}
}

// Refresh forces a cycle on the running service loop and returns the
// notifications it raised. It blocks until the cycle completes or the context
// is canceled.
func (s *NotificationService) Refresh(ctx context.Context) ([]model.Notification, error) {
	done := make(chan refreshResult, 1)

	select {
	case s.refreshCh <- refreshRequest{done: done}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-done:
		return res.notifications, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SelectRepository makes fullName the current repository, resets the dedup
// state to that repository's persisted entries, and schedules a forced cycle.
func (s *NotificationService) SelectRepository(ctx context.Context, fullName string) error {
	if err := s.deps.Repos.SetCurrent(ctx, fullName); err != nil {
		return fmt.Errorf("select repository %s: %w", fullName, err)
	}

	s.mu.Lock()
	s.lastCheck = time.Time{}
	s.tier = TierHot
	err := s.deps.Tracker.Load(ctx, fullName)
	s.mu.Unlock()
	if err != nil {
		slog.Warn("restore check state failed", "repo", fullName, "error", err)
	}

	select {
	case s.kickCh <- struct{}{}:
	default:
	}
	slog.Info("current repository selected", "repo", fullName)
	return nil
}

// RunOnce performs one check cycle over the current repository. Unless force
// is set, the cycle is skipped when the previous one started less than
// MinCheckInterval ago. It returns the notifications raised.
func (s *NotificationService) RunOnce(ctx context.Context, force bool) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.deps.Repos.GetCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("get current repository: %w", err)
	}
	if repo == nil {
		return nil, ErrNoCurrentRepository
	}

	now := s.deps.Now()
	if !force && !s.lastCheck.IsZero() && now.Sub(s.lastCheck) < s.deps.MinCheckInterval {
		slog.Debug("check cycle rate limited", "repo", repo.FullName, "since_last", now.Sub(s.lastCheck))
		return nil, nil
	}
	s.lastCheck = now

	client, err := s.deps.Provider.require()
	if err != nil {
		return nil, err
	}

	if s.deps.Tracker.Repository() != repo.FullName {
		if err := s.deps.Tracker.Load(ctx, repo.FullName); err != nil {
			slog.Warn("restore check state failed", "repo", repo.FullName, "error", err)
		}
	}

	settings := model.DefaultRepoSettings(repo.FullName)
	if stored, err := s.deps.Settings.GetSettings(ctx, repo.FullName); err != nil {
		slog.Warn("load repo settings failed, using defaults", "repo", repo.FullName, "error", err)
	} else if stored != nil {
		settings = *stored
	}

	prs, err := s.refreshPullRequests(ctx, client, repo.FullName)
	if err != nil {
		return nil, err
	}

	var notifications []model.Notification
	var failedPRs int
	for _, pr := range prs {
		if ctx.Err() != nil {
			return notifications, ctx.Err()
		}

		n, err := s.checkPullRequest(ctx, client, *repo, settings, pr, now)
		if err != nil {
			slog.Error("pull request check failed", "repo", repo.FullName, "pr", pr.Number, "error", err)
			failedPRs++
			continue
		}
		if n != nil {
			notifications = append(notifications, *n)
		}
	}

	s.tier = classifyActivity(s.hasPendingChecks(prs), freshestActivity(prs), now)

	slog.Info("check cycle complete",
		"repo", repo.FullName,
		"prs", len(prs),
		"notified", len(notifications),
		"errors", failedPRs,
		"tier", s.tier,
		"duration", s.deps.Now().Sub(now).Round(time.Millisecond),
	)

	return notifications, nil
}

// hasPendingChecks reports whether any PR's head commit still has checks
// queued or running.
func (s *NotificationService) hasPendingChecks(prs []model.PullRequest) bool {
	for _, pr := range prs {
		entry, ok := s.deps.Tracker.Entry(pr.Number)
		if ok && entry.HeadSHA == pr.HeadSHA && entry.Status != model.CheckStatusCompleted {
			return true
		}
	}
	return false
}

// refreshPullRequests syncs the PR cache with the open PRs on GitHub and
// returns the stored PRs, which carry their database IDs.
func (s *NotificationService) refreshPullRequests(ctx context.Context, client driven.GitHubClient, repoFullName string) ([]model.PullRequest, error) {
	fetched, err := client.FetchPullRequests(ctx, repoFullName)
	if err != nil {
		return nil, fmt.Errorf("fetch pull requests: %w", err)
	}

	stored, err := s.deps.PRs.GetByRepository(ctx, repoFullName)
	if err != nil {
		return nil, fmt.Errorf("load stored pull requests: %w", err)
	}

	open := make(map[int]bool, len(fetched))
	for _, pr := range fetched {
		open[pr.Number] = true
		if err := s.deps.PRs.Upsert(ctx, pr); err != nil {
			slog.Error("upsert failed", "repo", repoFullName, "pr", pr.Number, "error", err)
		}
	}

	var cleanedUp int
	for _, pr := range stored {
		if open[pr.Number] {
			continue
		}
		if err := s.deps.PRs.Delete(ctx, repoFullName, pr.Number); err != nil {
			slog.Error("stale cleanup failed", "repo", repoFullName, "pr", pr.Number, "error", err)
			continue
		}
		s.deps.Tracker.Forget(ctx, pr.Number)
		cleanedUp++
	}

	slog.Debug("pull requests refreshed", "repo", repoFullName, "open", len(fetched), "cleaned_up", cleanedUp)

	prs, err := s.deps.PRs.GetByRepository(ctx, repoFullName)
	if err != nil {
		return nil, fmt.Errorf("load stored pull requests: %w", err)
	}
	return prs, nil
}

// checkPullRequest evaluates one PR and returns the notification it raised,
// if any.
func (s *NotificationService) checkPullRequest(
	ctx context.Context,
	client driven.GitHubClient,
	repo model.Repository,
	settings model.RepoSettings,
	pr model.PullRequest,
	now time.Time,
) (*model.Notification, error) {
	if pr.HeadSHA == "" {
		return nil, nil
	}

	combined, err := FetchRefChecks(ctx, client, repo.FullName, pr.HeadSHA)
	if err != nil {
		return nil, err
	}
	if combined == nil {
		return nil, nil
	}

	for i := range combined.Checks {
		combined.Checks[i].PRID = pr.ID
	}
	if err := s.deps.Checks.ReplaceChecksForPR(ctx, pr.ID, combined.Checks); err != nil {
		slog.Warn("cache checks failed", "repo", repo.FullName, "pr", pr.Number, "error", err)
	}

	obs := s.deps.Tracker.Observe(ctx, pr, *combined, now)
	if !obs.ShouldNotify {
		return nil, nil
	}

	if !settings.NotificationsEnabled {
		slog.Debug("notifications disabled", "repo", repo.FullName, "pr", pr.Number)
		return nil, nil
	}
	if settings.Scope != model.NotifyScopeAll && !strings.EqualFold(pr.Author, s.deps.Provider.Username()) {
		return nil, nil
	}

	muted, err := s.deps.Mutes.IsMuted(ctx, repo.FullName, pr.Number)
	if err != nil {
		return nil, fmt.Errorf("check mute: %w", err)
	}
	if muted {
		slog.Debug("pull request muted", "repo", repo.FullName, "pr", pr.Number)
		return nil, nil
	}

	if repo.LocalPath != "" && s.deps.Git != nil {
		if _, err := s.deps.Git.GetCommit(ctx, repo.LocalPath, pr.HeadSHA); errors.Is(err, driven.ErrCommitNotFound) {
			slog.Debug("head commit not in local clone", "repo", repo.FullName, "pr", pr.Number, "sha", pr.ShortSHA())
			return nil, nil
		} else if err != nil {
			slog.Warn("read head commit failed", "repo", repo.FullName, "pr", pr.Number, "error", err)
		}
	}

	failed := len(combined.FailedChecks())
	n := model.Notification{
		ID:           uuid.NewString(),
		RepoFullName: repo.FullName,
		PRNumber:     pr.Number,
		HeadSHA:      pr.HeadSHA,
		Title:        NotificationTitle,
		Body:         NotificationBody(pr, failed),
		FailedChecks: failed,
		DialogURL:    DialogURL(s.deps.DialogBaseURL, repo.FullName, pr.Number),
		CreatedAt:    now,
	}

	if s.deps.DryRun {
		return &n, nil
	}

	if err := s.deps.Notifier.Notify(ctx, n); err != nil {
		slog.Error("show notification failed", "repo", repo.FullName, "pr", pr.Number, "error", err)
	}
	if err := s.deps.History.Add(ctx, n); err != nil {
		slog.Error("record notification failed", "repo", repo.FullName, "pr", pr.Number, "error", err)
	}

	return &n, nil
}

// NotificationBody formats the notification text for a PR with failed checks.
func NotificationBody(pr model.PullRequest, failed int) string {
	noun := "checks"
	if failed == 1 {
		noun = "check"
	}
	return fmt.Sprintf("%s #%d (%s)\n%d %s not successful.", pr.Title, pr.Number, pr.ShortSHA(), failed, noun)
}

// DialogURL returns the page listing a PR's checks. Empty if baseURL is empty.
func DialogURL(baseURL, repoFullName string, prNumber int) string {
	if baseURL == "" {
		return ""
	}
	owner, name, _ := strings.Cut(repoFullName, "/")
	return strings.TrimRight(baseURL, "/") + "/checks/" + url.PathEscape(owner) + "/" + url.PathEscape(name) + "/" + strconv.Itoa(prNumber)
}
