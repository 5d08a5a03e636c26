package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON response for the health endpoint.
type HealthResponse struct {
	Status            string `json:"status"`
	Time              string `json:"time"`
	CurrentRepository string `json:"current_repository,omitempty"`
	GitHubConfigured  bool   `json:"github_configured"`
}

// AddRepoRequest is the JSON request body for adding a repository.
type AddRepoRequest struct {
	FullName  string `json:"full_name"`
	LocalPath string `json:"local_path"`
}

// SetCurrentRepoRequest selects the polled repository.
type SetCurrentRepoRequest struct {
	FullName string `json:"full_name"`
}

// RepoResponse is the JSON representation of a registered repository.
type RepoResponse struct {
	FullName  string `json:"full_name"`
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	LocalPath string `json:"local_path,omitempty"`
	IsCurrent bool   `json:"is_current"`
	AddedAt   string `json:"added_at"`
}

// PRResponse is the JSON representation of a pull request.
type PRResponse struct {
	Number     int    `json:"number"`
	Repository string `json:"repository"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Status     string `json:"status"`
	IsDraft    bool   `json:"is_draft"`
	URL        string `json:"url"`
	Branch     string `json:"branch"`
	BaseBranch string `json:"base_branch"`
	HeadSHA    string `json:"head_sha"`
	HeadRepo   string `json:"head_repo"`
	OpenedAt   string `json:"opened_at"`
	UpdatedAt  string `json:"updated_at"`
}

// CheckResponse is the JSON representation of a check run or commit status.
type CheckResponse struct {
	ID              int64   `json:"id"`
	Source          string  `json:"source"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Status          string  `json:"status"`
	Conclusion      string  `json:"conclusion"`
	AppName         string  `json:"app_name"`
	CheckSuiteID    int64   `json:"check_suite_id,omitempty"`
	HTMLURL         string  `json:"html_url,omitempty"`
	DetailsURL      string  `json:"details_url,omitempty"`
	OutputSummary   string  `json:"output_summary,omitempty"`
	StartedAt       string  `json:"started_at,omitempty"`
	CompletedAt     string  `json:"completed_at,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	IsFailed        bool    `json:"is_failed"`
	HasLogs         bool    `json:"has_logs"`
}

// PRChecksResponse is the dialog payload for one pull request.
type PRChecksResponse struct {
	PullRequest PRResponse      `json:"pull_request"`
	Live        bool            `json:"live"`
	FailedCount int             `json:"failed_count"`
	Checks      []CheckResponse `json:"checks"`
}

// StepResponse is one step of an Actions job.
type StepResponse struct {
	Number     int64  `json:"number"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

// CheckLogsResponse is the lazily loaded job and log view of a check.
type CheckLogsResponse struct {
	CheckID    int64          `json:"check_id"`
	JobID      int64          `json:"job_id"`
	RunID      int64          `json:"run_id"`
	JobURL     string         `json:"job_url"`
	LogsURL    string         `json:"logs_url"`
	FailedStep string         `json:"failed_step,omitempty"`
	Steps      []StepResponse `json:"steps"`
	ErrorLines []string       `json:"error_lines"`
	Excerpt    []string       `json:"excerpt"`
	Truncated  bool           `json:"truncated"`
}

// RerunRequest selects a single check to re-run. Zero means all failed checks.
type RerunRequest struct {
	CheckID int64 `json:"check_id"`
}

// RerunResponse reports how many re-run requests were sent.
type RerunResponse struct {
	Requests int    `json:"requests"`
	Errors   string `json:"errors,omitempty"`
}

// CheckoutResponse names the branch that was checked out.
type CheckoutResponse struct {
	Branch string `json:"branch"`
}

// NotificationResponse is the JSON representation of a recorded notification.
type NotificationResponse struct {
	ID           string `json:"id"`
	Repository   string `json:"repository"`
	PRNumber     int    `json:"pr_number"`
	HeadSHA      string `json:"head_sha"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	FailedChecks int    `json:"failed_checks"`
	DialogURL    string `json:"dialog_url,omitempty"`
	IsRead       bool   `json:"is_read"`
	CreatedAt    string `json:"created_at"`
}

// RefreshResponse is returned by a manual refresh.
type RefreshResponse struct {
	Notified      int                    `json:"notified"`
	Notifications []NotificationResponse `json:"notifications"`
}

// SettingsRequest updates per-repository settings. Omitted fields take their
// default values.
type SettingsRequest struct {
	NotificationsEnabled *bool  `json:"notifications_enabled"`
	Scope                string `json:"scope"`
}

// SettingsResponse is the JSON representation of per-repository settings.
type SettingsResponse struct {
	Repository           string `json:"repository"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	Scope                string `json:"scope"`
}

// MutedPRResponse is the JSON representation of a muted pull request.
type MutedPRResponse struct {
	Repository string `json:"repository"`
	Number     int    `json:"number"`
	MutedAt    string `json:"muted_at"`
}

// SetTokenRequest submits a GitHub personal access token.
type SetTokenRequest struct {
	Token string `json:"token"`
}

// CredentialStatusResponse reports the configured GitHub identity.
type CredentialStatusResponse struct {
	Configured bool   `json:"configured"`
	Username   string `json:"username,omitempty"`
}

// formatTime renders t as RFC 3339, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toRepoResponse(repo model.Repository) RepoResponse {
	return RepoResponse{
		FullName:  repo.FullName,
		Owner:     repo.Owner,
		Name:      repo.Name,
		LocalPath: repo.LocalPath,
		IsCurrent: repo.IsCurrent,
		AddedAt:   formatTime(repo.AddedAt),
	}
}

func toPRResponse(pr model.PullRequest) PRResponse {
	return PRResponse{
		Number:     pr.Number,
		Repository: pr.RepoFullName,
		Title:      pr.Title,
		Author:     pr.Author,
		Status:     string(pr.Status),
		IsDraft:    pr.IsDraft,
		URL:        pr.URL,
		Branch:     pr.Branch,
		BaseBranch: pr.BaseBranch,
		HeadSHA:    pr.HeadSHA,
		HeadRepo:   pr.HeadRepo,
		OpenedAt:   formatTime(pr.OpenedAt),
		UpdatedAt:  formatTime(pr.UpdatedAt),
	}
}

func toCheckResponse(c model.RefCheck) CheckResponse {
	return CheckResponse{
		ID:              c.ID,
		Source:          string(c.Source),
		Name:            c.Name,
		Description:     c.Description,
		Status:          string(c.Status),
		Conclusion:      string(c.Conclusion),
		AppName:         c.AppName,
		CheckSuiteID:    c.CheckSuiteID,
		HTMLURL:         c.HTMLURL,
		DetailsURL:      c.DetailsURL,
		OutputSummary:   c.OutputSummary,
		StartedAt:       formatTime(c.StartedAt),
		CompletedAt:     formatTime(c.CompletedAt),
		DurationSeconds: c.Duration().Seconds(),
		IsFailed:        c.IsFailed(),
		HasLogs:         c.IsActionsJob(),
	}
}

func toPRChecksResponse(view application.PullRequestChecks) PRChecksResponse {
	checks := make([]CheckResponse, 0, len(view.Checks))
	for _, c := range view.Checks {
		checks = append(checks, toCheckResponse(c))
	}
	return PRChecksResponse{
		PullRequest: toPRResponse(view.PR),
		Live:        view.Live,
		FailedCount: len(view.FailedChecks()),
		Checks:      checks,
	}
}

func toCheckLogsResponse(logs model.CheckLogs) CheckLogsResponse {
	steps := make([]StepResponse, 0, len(logs.Job.Steps))
	for _, s := range logs.Job.Steps {
		steps = append(steps, StepResponse{Number: s.Number, Name: s.Name, Status: s.Status, Conclusion: s.Conclusion})
	}

	resp := CheckLogsResponse{
		CheckID:    logs.Check.ID,
		JobID:      logs.Job.ID,
		RunID:      logs.Job.RunID,
		JobURL:     logs.Job.HTMLURL,
		LogsURL:    logs.LogsURL,
		Steps:      steps,
		ErrorLines: nonNil(logs.ErrorLines),
		Excerpt:    nonNil(logs.Excerpt),
		Truncated:  logs.Truncated,
	}
	if step := logs.Job.FailedStep(); step != nil {
		resp.FailedStep = step.Name
	}
	return resp
}

func toNotificationResponses(notifications []model.Notification) []NotificationResponse {
	resp := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, NotificationResponse{
			ID:           n.ID,
			Repository:   n.RepoFullName,
			PRNumber:     n.PRNumber,
			HeadSHA:      n.HeadSHA,
			Title:        n.Title,
			Body:         n.Body,
			FailedChecks: n.FailedChecks,
			DialogURL:    n.DialogURL,
			IsRead:       n.IsRead,
			CreatedAt:    formatTime(n.CreatedAt),
		})
	}
	return resp
}

func toSettingsResponse(s model.RepoSettings) SettingsResponse {
	return SettingsResponse{
		Repository:           s.RepoFullName,
		NotificationsEnabled: s.NotificationsEnabled,
		Scope:                string(s.Scope),
	}
}

// nonNil ensures JSON arrays encode as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
