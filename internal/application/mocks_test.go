package application_test

import (
	"context"
	"sort"
	"sync"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// --- GitHub ---

type mockGitHubClient struct {
	mu sync.Mutex

	prs            []model.PullRequest
	fetchPRsErr    error
	checkRuns      map[string][]model.RefCheck
	checkRunsErr   error
	statuses       map[string]*model.CombinedStatus
	statusesErr    error
	jobs           map[int64]*model.WorkflowJob
	logs           string
	logsURLCalls   int
	downloadCalls  int
	rerunJobs      []int64
	rerunRuns      []int64
	rerequested    []int64
	rerunErr       error
	checkRunsCalls int
}

var _ driven.GitHubAPI = (*mockGitHubClient)(nil)

func (m *mockGitHubClient) FetchPullRequests(_ context.Context, _ string) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchPRsErr != nil {
		return nil, m.fetchPRsErr
	}
	return append([]model.PullRequest(nil), m.prs...), nil
}

func (m *mockGitHubClient) FetchCheckRuns(_ context.Context, _ string, ref string) ([]model.RefCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkRunsCalls++
	if m.checkRunsErr != nil {
		return nil, m.checkRunsErr
	}
	return append([]model.RefCheck(nil), m.checkRuns[ref]...), nil
}

func (m *mockGitHubClient) FetchCombinedStatus(_ context.Context, _ string, ref string) (*model.CombinedStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusesErr != nil {
		return nil, m.statusesErr
	}
	return m.statuses[ref], nil
}

func (m *mockGitHubClient) FetchWorkflowJob(_ context.Context, _ string, jobID int64) (*model.WorkflowJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, errNotFound
	}
	return job, nil
}

func (m *mockGitHubClient) FetchJobLogsURL(_ context.Context, _ string, jobID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logsURLCalls++
	return "https://logs.example.com/job", nil
}

func (m *mockGitHubClient) DownloadLogs(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadCalls++
	return m.logs, nil
}

func (m *mockGitHubClient) RerunJob(_ context.Context, _ string, jobID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rerunJobs = append(m.rerunJobs, jobID)
	return m.rerunErr
}

func (m *mockGitHubClient) RerunFailedJobs(_ context.Context, _ string, runID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rerunRuns = append(m.rerunRuns, runID)
	return m.rerunErr
}

func (m *mockGitHubClient) RerequestCheckSuite(_ context.Context, _ string, suiteID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rerequested = append(m.rerequested, suiteID)
	return m.rerunErr
}

func (m *mockGitHubClient) setCheckRuns(ref string, runs ...model.RefCheck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checkRuns == nil {
		m.checkRuns = make(map[string][]model.RefCheck)
	}
	m.checkRuns[ref] = runs
}

func (m *mockGitHubClient) setStatuses(ref string, statuses ...model.CommitStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = make(map[string]*model.CombinedStatus)
	}
	m.statuses[ref] = &model.CombinedStatus{Statuses: statuses}
}

// --- Stores ---

type errString string

func (e errString) Error() string { return string(e) }

const errNotFound = errString("not found")

type mockRepoStore struct {
	mu    sync.Mutex
	repos map[string]model.Repository
}

func newMockRepoStore(repos ...model.Repository) *mockRepoStore {
	m := &mockRepoStore{repos: make(map[string]model.Repository)}
	for _, r := range repos {
		m.repos[r.FullName] = r
	}
	return m
}

func (m *mockRepoStore) Add(_ context.Context, repo model.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[repo.FullName]; ok {
		return driven.ErrRepoAlreadyExists
	}
	m.repos[repo.FullName] = repo
	return nil
}

func (m *mockRepoStore) Remove(_ context.Context, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[fullName]; !ok {
		return driven.ErrRepoNotFound
	}
	delete(m.repos, fullName)
	return nil
}

func (m *mockRepoStore) GetByFullName(_ context.Context, fullName string) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repos[fullName]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *mockRepoStore) ListAll(_ context.Context) ([]model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Repository, 0, len(m.repos))
	for _, r := range m.repos {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *mockRepoStore) SetCurrent(_ context.Context, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[fullName]; !ok {
		return driven.ErrRepoNotFound
	}
	for name, r := range m.repos {
		r.IsCurrent = name == fullName
		m.repos[name] = r
	}
	return nil
}

func (m *mockRepoStore) SetLocalPath(_ context.Context, fullName, localPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repos[fullName]
	if !ok {
		return driven.ErrRepoNotFound
	}
	r.LocalPath = localPath
	m.repos[fullName] = r
	return nil
}

func (m *mockRepoStore) GetCurrent(_ context.Context) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.repos {
		if r.IsCurrent {
			return &r, nil
		}
	}
	return nil, nil
}

type mockPRStore struct {
	mu      sync.Mutex
	prs     map[int]model.PullRequest
	nextID  int64
	deletes []int
}

func newMockPRStore() *mockPRStore {
	return &mockPRStore{prs: make(map[int]model.PullRequest)}
}

func (m *mockPRStore) Upsert(_ context.Context, pr model.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.prs[pr.Number]; ok {
		pr.ID = existing.ID
	} else {
		m.nextID++
		pr.ID = m.nextID
	}
	m.prs[pr.Number] = pr
	return nil
}

func (m *mockPRStore) GetByRepository(_ context.Context, repoFullName string) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PullRequest
	for _, pr := range m.prs {
		if pr.RepoFullName == repoFullName {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *mockPRStore) GetByNumber(_ context.Context, repoFullName string, number int) (*model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.prs[number]
	if !ok || pr.RepoFullName != repoFullName {
		return nil, nil
	}
	return &pr, nil
}

func (m *mockPRStore) Delete(_ context.Context, _ string, number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prs, number)
	m.deletes = append(m.deletes, number)
	return nil
}

type mockCheckStore struct {
	mu     sync.Mutex
	checks map[int64][]model.RefCheck
}

func newMockCheckStore() *mockCheckStore {
	return &mockCheckStore{checks: make(map[int64][]model.RefCheck)}
}

func (m *mockCheckStore) ReplaceChecksForPR(_ context.Context, prID int64, checks []model.RefCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[prID] = append([]model.RefCheck(nil), checks...)
	return nil
}

func (m *mockCheckStore) GetChecksByPR(_ context.Context, prID int64) ([]model.RefCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.RefCheck(nil), m.checks[prID]...), nil
}

type mockCheckStateStore struct {
	mu      sync.Mutex
	entries map[int]model.LastCheckedPullRequestEntry
	saves   int
}

func newMockCheckStateStore() *mockCheckStateStore {
	return &mockCheckStateStore{entries: make(map[int]model.LastCheckedPullRequestEntry)}
}

func (m *mockCheckStateStore) LoadEntries(_ context.Context, repoFullName string) ([]model.LastCheckedPullRequestEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LastCheckedPullRequestEntry
	for _, e := range m.entries {
		if e.RepoFullName == repoFullName {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockCheckStateStore) SaveEntry(_ context.Context, entry model.LastCheckedPullRequestEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.PRNumber] = entry
	m.saves++
	return nil
}

func (m *mockCheckStateStore) DeleteEntry(_ context.Context, _ string, prNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, prNumber)
	return nil
}

type mockSettingsStore struct {
	settings map[string]model.RepoSettings
}

func (m *mockSettingsStore) GetSettings(_ context.Context, repoFullName string) (*model.RepoSettings, error) {
	s, ok := m.settings[repoFullName]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockSettingsStore) SetSettings(_ context.Context, settings model.RepoSettings) error {
	if m.settings == nil {
		m.settings = make(map[string]model.RepoSettings)
	}
	m.settings[settings.RepoFullName] = settings
	return nil
}

type mockMuteStore struct {
	muted map[int]bool
}

func (m *mockMuteStore) Mute(_ context.Context, _ string, prNumber int) error {
	if m.muted == nil {
		m.muted = make(map[int]bool)
	}
	m.muted[prNumber] = true
	return nil
}

func (m *mockMuteStore) Unmute(_ context.Context, _ string, prNumber int) error {
	delete(m.muted, prNumber)
	return nil
}

func (m *mockMuteStore) IsMuted(_ context.Context, _ string, prNumber int) (bool, error) {
	return m.muted[prNumber], nil
}

func (m *mockMuteStore) ListMuted(_ context.Context, repoFullName string) ([]model.MutedPR, error) {
	var out []model.MutedPR
	for n := range m.muted {
		out = append(out, model.MutedPR{RepoFullName: repoFullName, PRNumber: n})
	}
	return out, nil
}

type mockHistory struct {
	mu    sync.Mutex
	added []model.Notification
}

func (m *mockHistory) Add(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, n)
	return nil
}

func (m *mockHistory) ListRecent(_ context.Context, limit int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.added) {
		limit = len(m.added)
	}
	return append([]model.Notification(nil), m.added[:limit]...), nil
}

func (m *mockHistory) MarkRead(_ context.Context, _ string) error {
	return nil
}

type mockCredentialStore struct {
	values map[string]string
	setErr error
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{values: make(map[string]string)}
}

func (m *mockCredentialStore) Set(_ context.Context, service, key, plaintext string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[service+"/"+key] = plaintext
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, service, key string) (string, error) {
	return m.values[service+"/"+key], nil
}

func (m *mockCredentialStore) List(_ context.Context) ([]model.Credential, error) {
	var out []model.Credential
	for k, v := range m.values {
		out = append(out, model.Credential{Key: k, Value: v})
	}
	return out, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, service, key string) error {
	delete(m.values, service+"/"+key)
	return nil
}

// --- Local collaborators ---

type mockGit struct {
	missing    map[string]bool
	checkouts  []string
	checkedOut []int
}

func (m *mockGit) GetCommit(_ context.Context, _ string, sha string) (*model.Commit, error) {
	if m.missing[sha] {
		return nil, driven.ErrCommitNotFound
	}
	return &model.Commit{SHA: sha}, nil
}

func (m *mockGit) CheckoutPullRequest(_ context.Context, _ string, prNumber int, branch string) error {
	m.checkouts = append(m.checkouts, branch)
	m.checkedOut = append(m.checkedOut, prNumber)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type mockOpener struct {
	opened []string
}

func (m *mockOpener) OpenURL(url string) error {
	m.opened = append(m.opened, url)
	return nil
}
