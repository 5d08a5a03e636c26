package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// PullRequestChecks is the dialog view of one pull request.
type PullRequestChecks struct {
	PR     model.PullRequest
	Checks []model.RefCheck
	// Live is false when GitHub could not be reached and the cached checks
	// are shown.
	Live bool
}

// FailedChecks returns the failing checks in display order.
func (p PullRequestChecks) FailedChecks() []model.RefCheck {
	var failed []model.RefCheck
	for _, c := range p.Checks {
		if c.IsFailed() {
			failed = append(failed, c)
		}
	}
	return failed
}

// ChecksService backs the failed-checks dialog and its actions.
type ChecksService struct {
	provider *GitHubClientProvider
	prStore  driven.PRStore
	checks   driven.CheckStore
	repos    driven.RepoStore
	git      driven.GitRepository
	opener   driven.URLOpener

	mu       sync.Mutex
	logCache map[int64]model.CheckLogs
	logOrder []int64 // Cached job IDs, oldest first.
}

// LogCacheSize is how many completed job logs ChecksService keeps.
// The oldest entry is dropped first.
const LogCacheSize = 64

// NewChecksService creates a ChecksService.
func NewChecksService(
	provider *GitHubClientProvider,
	prStore driven.PRStore,
	checks driven.CheckStore,
	repos driven.RepoStore,
	git driven.GitRepository,
	opener driven.URLOpener,
) *ChecksService {
	return &ChecksService{
		provider: provider,
		prStore:  prStore,
		checks:   checks,
		repos:    repos,
		git:      git,
		opener:   opener,
		logCache: make(map[int64]model.CheckLogs),
	}
}

// GetPullRequestChecks returns the PR's checks, failures first. It refreshes
// them from GitHub when possible and falls back to the cache otherwise.
func (s *ChecksService) GetPullRequestChecks(ctx context.Context, repoFullName string, prNumber int) (*PullRequestChecks, error) {
	pr, err := s.getPR(ctx, repoFullName, prNumber)
	if err != nil {
		return nil, err
	}

	view := &PullRequestChecks{PR: *pr}

	if client := s.provider.Get(); client != nil && pr.HeadSHA != "" {
		combined, err := FetchRefChecks(ctx, client, repoFullName, pr.HeadSHA)
		if err != nil {
			slog.Warn("live check fetch failed, using cache", "repo", repoFullName, "pr", prNumber, "error", err)
		} else {
			view.Live = true
			if combined != nil {
				for i := range combined.Checks {
					combined.Checks[i].PRID = pr.ID
				}
				view.Checks = combined.Checks
			}
			if err := s.checks.ReplaceChecksForPR(ctx, pr.ID, view.Checks); err != nil {
				slog.Warn("cache checks failed", "repo", repoFullName, "pr", prNumber, "error", err)
			}
		}
	}

	if !view.Live {
		cached, err := s.checks.GetChecksByPR(ctx, pr.ID)
		if err != nil {
			return nil, fmt.Errorf("load cached checks: %w", err)
		}
		view.Checks = cached
	}

	SortChecksForDisplay(view.Checks)
	return view, nil
}

// GetCheckLogs loads the Actions job behind a check and its log excerpt.
// Logs of completed jobs are cached per job.
func (s *ChecksService) GetCheckLogs(ctx context.Context, repoFullName string, prNumber int, checkID int64) (*model.CheckLogs, error) {
	check, err := s.findCheck(ctx, repoFullName, prNumber, model.CheckSourceCheckRun, checkID)
	if err != nil {
		return nil, err
	}
	if !check.IsActionsJob() {
		return nil, ErrLogsUnavailable
	}

	s.mu.Lock()
	cached, ok := s.logCache[check.ID]
	s.mu.Unlock()
	if ok {
		return &cached, nil
	}

	client, err := s.provider.require()
	if err != nil {
		return nil, err
	}

	job, err := client.FetchWorkflowJob(ctx, repoFullName, check.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch job %d: %w", check.ID, err)
	}

	logsURL, err := client.FetchJobLogsURL(ctx, repoFullName, check.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch logs url for job %d: %w", check.ID, err)
	}

	content, err := client.DownloadLogs(ctx, logsURL)
	if err != nil {
		return nil, fmt.Errorf("download logs for job %d: %w", check.ID, err)
	}

	parsed := ParseActionsLog(content, DefaultLogExcerptLines)
	logs := model.CheckLogs{
		Check:      *check,
		Job:        *job,
		LogsURL:    logsURL,
		ErrorLines: parsed.ErrorLines,
		Excerpt:    parsed.Excerpt,
		Truncated:  parsed.Truncated,
	}

	if job.Status == string(model.CheckStatusCompleted) {
		s.cacheLogs(check.ID, logs)
	}

	return &logs, nil
}

// RerunChecks re-runs one check run, or every failed check of the PR when
// checkID is zero. It returns how many re-run requests were sent.
func (s *ChecksService) RerunChecks(ctx context.Context, repoFullName string, prNumber int, checkID int64) (int, error) {
	client, err := s.provider.require()
	if err != nil {
		return 0, err
	}

	if checkID != 0 {
		check, err := s.findCheck(ctx, repoFullName, prNumber, model.CheckSourceCheckRun, checkID)
		if err != nil {
			return 0, err
		}
		if err := rerunCheck(ctx, client, repoFullName, *check); err != nil {
			return 0, err
		}
		s.evictLogs(check.ID)
		slog.Info("check re-run requested", "repo", repoFullName, "pr", prNumber, "check", check.Name)
		return 1, nil
	}

	view, err := s.GetPullRequestChecks(ctx, repoFullName, prNumber)
	if err != nil {
		return 0, err
	}

	runs := make(map[int64]struct{})
	suites := make(map[int64]struct{})
	for _, check := range view.FailedChecks() {
		switch {
		case check.IsActionsJob():
			job, err := client.FetchWorkflowJob(ctx, repoFullName, check.ID)
			if err != nil {
				return 0, fmt.Errorf("fetch job %d: %w", check.ID, err)
			}
			runs[job.RunID] = struct{}{}
			s.evictLogs(check.ID)
		case check.Source == model.CheckSourceCheckRun && check.CheckSuiteID != 0:
			suites[check.CheckSuiteID] = struct{}{}
		}
	}

	if len(runs) == 0 && len(suites) == 0 {
		return 0, ErrNotRerunnable
	}

	var errs []error
	var sent int
	for _, runID := range sortedIDs(runs) {
		if err := client.RerunFailedJobs(ctx, repoFullName, runID); err != nil {
			errs = append(errs, fmt.Errorf("re-run workflow run %d: %w", runID, err))
			continue
		}
		sent++
	}
	for _, suiteID := range sortedIDs(suites) {
		if err := client.RerequestCheckSuite(ctx, repoFullName, suiteID); err != nil {
			errs = append(errs, fmt.Errorf("re-request check suite %d: %w", suiteID, err))
			continue
		}
		sent++
	}

	slog.Info("failed checks re-run requested", "repo", repoFullName, "pr", prNumber, "requests", sent, "errors", len(errs))
	return sent, errors.Join(errs...)
}

func rerunCheck(ctx context.Context, client driven.GitHubWriter, repoFullName string, check model.RefCheck) error {
	switch {
	case check.IsActionsJob():
		if err := client.RerunJob(ctx, repoFullName, check.ID); err != nil {
			return fmt.Errorf("re-run job %d: %w", check.ID, err)
		}
	case check.Source == model.CheckSourceCheckRun && check.CheckSuiteID != 0:
		if err := client.RerequestCheckSuite(ctx, repoFullName, check.CheckSuiteID); err != nil {
			return fmt.Errorf("re-request check suite %d: %w", check.CheckSuiteID, err)
		}
	default:
		return ErrNotRerunnable
	}
	return nil
}

// SwitchToPullRequest checks out the PR head in the repository's local clone
// and returns the local branch name.
func (s *ChecksService) SwitchToPullRequest(ctx context.Context, repoFullName string, prNumber int) (string, error) {
	repo, err := s.repos.GetByFullName(ctx, repoFullName)
	if err != nil {
		return "", fmt.Errorf("get repository: %w", err)
	}
	if repo == nil {
		return "", driven.ErrRepoNotFound
	}
	if repo.LocalPath == "" || s.git == nil {
		return "", ErrNoLocalClone
	}

	pr, err := s.getPR(ctx, repoFullName, prNumber)
	if err != nil {
		return "", err
	}

	branch := LocalBranchName(*pr)
	if err := s.git.CheckoutPullRequest(ctx, repo.LocalPath, pr.Number, branch); err != nil {
		return "", fmt.Errorf("checkout pull request %d: %w", pr.Number, err)
	}

	slog.Info("switched to pull request", "repo", repoFullName, "pr", prNumber, "branch", branch)
	return branch, nil
}

// LocalBranchName is the branch a PR is checked out into. Fork branches are
// prefixed with the fork owner to avoid clashing with local branches.
func LocalBranchName(pr model.PullRequest) string {
	if pr.Branch == "" {
		return fmt.Sprintf("pr/%d", pr.Number)
	}
	if pr.IsFromFork() {
		owner, _, _ := strings.Cut(pr.HeadRepo, "/")
		return owner + "-" + pr.Branch
	}
	return pr.Branch
}

// OpenCheckDetails opens the check's page in the browser. Check run and
// status IDs overlap, so the source selects which one checkID names.
func (s *ChecksService) OpenCheckDetails(ctx context.Context, repoFullName string, prNumber int, source model.CheckSource, checkID int64) error {
	check, err := s.findCheck(ctx, repoFullName, prNumber, source, checkID)
	if err != nil {
		return err
	}

	target := check.HTMLURL
	if target == "" {
		target = check.DetailsURL
	}
	if target == "" {
		return fmt.Errorf("check %q has no details url", check.Name)
	}

	return s.opener.OpenURL(target)
}

func (s *ChecksService) getPR(ctx context.Context, repoFullName string, prNumber int) (*model.PullRequest, error) {
	pr, err := s.prStore.GetByNumber(ctx, repoFullName, prNumber)
	if err != nil {
		return nil, fmt.Errorf("get pull request: %w", err)
	}
	if pr == nil {
		return nil, ErrPRNotFound
	}
	return pr, nil
}

// findCheck looks up a check among the PR's cached checks.
func (s *ChecksService) findCheck(ctx context.Context, repoFullName string, prNumber int, source model.CheckSource, checkID int64) (*model.RefCheck, error) {
	pr, err := s.getPR(ctx, repoFullName, prNumber)
	if err != nil {
		return nil, err
	}

	checks, err := s.checks.GetChecksByPR(ctx, pr.ID)
	if err != nil {
		return nil, fmt.Errorf("load cached checks: %w", err)
	}

	for i := range checks {
		if checks[i].Source == source && checks[i].ID == checkID {
			return &checks[i], nil
		}
	}
	return nil, ErrCheckNotFound
}

func (s *ChecksService) cacheLogs(jobID int64, logs model.CheckLogs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logCache[jobID]; !ok {
		s.logOrder = append(s.logOrder, jobID)
	}
	s.logCache[jobID] = logs
	for len(s.logOrder) > LogCacheSize {
		delete(s.logCache, s.logOrder[0])
		s.logOrder = s.logOrder[1:]
	}
}

func (s *ChecksService) evictLogs(jobID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logCache[jobID]; !ok {
		return
	}
	delete(s.logCache, jobID)
	s.logOrder = slices.DeleteFunc(s.logOrder, func(id int64) bool { return id == jobID })
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
