package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// CheckCycle runs check cycles on demand.
type CheckCycle interface {
	Refresh(ctx context.Context) ([]model.Notification, error)
	SelectRepository(ctx context.Context, fullName string) error
}

// ChecksDialog serves the failed-checks view and its actions.
type ChecksDialog interface {
	GetPullRequestChecks(ctx context.Context, repoFullName string, prNumber int) (*application.PullRequestChecks, error)
	GetCheckLogs(ctx context.Context, repoFullName string, prNumber int, checkID int64) (*model.CheckLogs, error)
	RerunChecks(ctx context.Context, repoFullName string, prNumber int, checkID int64) (int, error)
	SwitchToPullRequest(ctx context.Context, repoFullName string, prNumber int) (string, error)
	OpenCheckDetails(ctx context.Context, repoFullName string, prNumber int, source model.CheckSource, checkID int64) error
}

// Credentials manages the GitHub token.
type Credentials interface {
	SetGitHubToken(ctx context.Context, token string) (string, error)
	ClearGitHubToken(ctx context.Context) error
	Status() application.CredentialStatus
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	repoStore     driven.RepoStore
	prStore       driven.PRStore
	settingsStore driven.RepoSettingsStore
	muteStore     driven.MuteStore
	history       driven.NotificationStore
	cycle         CheckCycle
	checks        ChecksDialog
	credentials   Credentials
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	repoStore driven.RepoStore,
	prStore driven.PRStore,
	settingsStore driven.RepoSettingsStore,
	muteStore driven.MuteStore,
	history driven.NotificationStore,
	cycle CheckCycle,
	checks ChecksDialog,
	credentials Credentials,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		repoStore:     repoStore,
		prStore:       prStore,
		settingsStore: settingsStore,
		muteStore:     muteStore,
		history:       history,
		cycle:         cycle,
		checks:        checks,
		credentials:   credentials,
		logger:        logger,
	}
}

// RegisterAPIRoutes registers the REST API on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/repos", h.ListRepos)
	mux.HandleFunc("POST /api/v1/repos", h.AddRepo)
	mux.HandleFunc("GET /api/v1/repos/current", h.GetCurrentRepo)
	mux.HandleFunc("PUT /api/v1/repos/current", h.SetCurrentRepo)
	mux.HandleFunc("DELETE /api/v1/repos/{owner}/{repo}", h.RemoveRepo)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/v1/repos/{owner}/{repo}/settings", h.UpdateSettings)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/mutes", h.ListMuted)

	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/prs", h.ListPRs)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/prs/{number}/checks", h.GetChecks)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/prs/{number}/checks/{id}/logs", h.GetCheckLogs)
	mux.HandleFunc("POST /api/v1/repos/{owner}/{repo}/prs/{number}/checks/{id}/open", h.OpenCheck)
	mux.HandleFunc("POST /api/v1/repos/{owner}/{repo}/prs/{number}/rerun", h.Rerun)
	mux.HandleFunc("POST /api/v1/repos/{owner}/{repo}/prs/{number}/checkout", h.Checkout)
	mux.HandleFunc("PUT /api/v1/repos/{owner}/{repo}/prs/{number}/mute", h.Mute)
	mux.HandleFunc("DELETE /api/v1/repos/{owner}/{repo}/prs/{number}/mute", h.Unmute)

	mux.HandleFunc("GET /api/v1/notifications", h.ListNotifications)
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", h.MarkNotificationRead)
	mux.HandleFunc("POST /api/v1/refresh", h.Refresh)

	mux.HandleFunc("GET /api/v1/credentials/github", h.GetCredentials)
	mux.HandleFunc("PUT /api/v1/credentials/github", h.SetCredentials)
	mux.HandleFunc("DELETE /api/v1/credentials/github", h.DeleteCredentials)
}

// ApplyMiddleware wraps next with logging, cross-origin and recovery
// middleware.
func ApplyMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	wrapped = crossOriginMiddleware(logger, wrapped)
	return loggingMiddleware(logger, wrapped)
}

// NewServeMux creates an http.Handler with all API routes registered and
// wrapped by ApplyMiddleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	if h.credentials != nil {
		resp.GitHubConfigured = h.credentials.Status().Configured
	}
	if current, err := h.repoStore.GetCurrent(r.Context()); err == nil && current != nil {
		resp.CurrentRepository = current.FullName
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRepos returns all registered repositories.
func (h *Handler) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.repoStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list repos", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RepoResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toRepoResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddRepo registers a repository. The first repository added becomes current.
func (h *Handler) AddRepo(w http.ResponseWriter, r *http.Request) {
	var req AddRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !isValidRepoName(req.FullName) {
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return
	}

	owner, name, _ := strings.Cut(req.FullName, "/")
	repo := model.Repository{
		FullName:  req.FullName,
		Owner:     owner,
		Name:      name,
		LocalPath: strings.TrimSpace(req.LocalPath),
		AddedAt:   time.Now().UTC(),
	}

	if err := h.repoStore.Add(r.Context(), repo); err != nil {
		h.writeServiceError(w, err, "failed to add repo", "repo", req.FullName)
		return
	}

	current, err := h.repoStore.GetCurrent(r.Context())
	if err != nil {
		h.logger.Error("failed to read current repo", "error", err)
	} else if current == nil && h.cycle != nil {
		if err := h.cycle.SelectRepository(r.Context(), repo.FullName); err != nil {
			h.logger.Error("failed to select new repo", "repo", repo.FullName, "error", err)
		} else {
			repo.IsCurrent = true
		}
	}

	writeJSON(w, http.StatusCreated, toRepoResponse(repo))
}

// RemoveRepo removes a repository and everything cached for it.
func (h *Handler) RemoveRepo(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)

	if err := h.repoStore.Remove(r.Context(), fullName); err != nil {
		h.writeServiceError(w, err, "failed to remove repo", "repo", fullName)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetCurrentRepo returns the repository being polled.
func (h *Handler) GetCurrentRepo(w http.ResponseWriter, r *http.Request) {
	current, err := h.repoStore.GetCurrent(r.Context())
	if err != nil {
		h.logger.Error("failed to get current repo", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if current == nil {
		writeError(w, http.StatusNotFound, "no current repository selected")
		return
	}

	writeJSON(w, http.StatusOK, toRepoResponse(*current))
}

// SetCurrentRepo switches the polled repository.
func (h *Handler) SetCurrentRepo(w http.ResponseWriter, r *http.Request) {
	var req SetCurrentRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !isValidRepoName(req.FullName) {
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return
	}

	if err := h.cycle.SelectRepository(r.Context(), req.FullName); err != nil {
		h.writeServiceError(w, err, "failed to select repo", "repo", req.FullName)
		return
	}

	repo, err := h.repoStore.GetByFullName(r.Context(), req.FullName)
	if err != nil || repo == nil {
		writeJSON(w, http.StatusOK, RepoResponse{FullName: req.FullName, IsCurrent: true})
		return
	}
	writeJSON(w, http.StatusOK, toRepoResponse(*repo))
}

// ListPRs returns the cached open pull requests of a repository.
func (h *Handler) ListPRs(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)

	prs, err := h.prStore.GetByRepository(r.Context(), fullName)
	if err != nil {
		h.logger.Error("failed to list PRs", "repo", fullName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]PRResponse, 0, len(prs))
	for _, pr := range prs {
		resp = append(resp, toPRResponse(pr))
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps known sentinel errors to 4xx responses and logs
// everything else as a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	if status, ok := statusForError(err); ok {
		writeError(w, status, errorMessage(err))
		return
	}
	h.logger.Error(msg, append(attrs, "error", err)...)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func statusForError(err error) (int, bool) {
	switch {
	case errors.Is(err, driven.ErrRepoNotFound),
		errors.Is(err, driven.ErrNotificationNotFound),
		errors.Is(err, application.ErrPRNotFound),
		errors.Is(err, application.ErrCheckNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, driven.ErrRepoAlreadyExists),
		errors.Is(err, driven.ErrBranchDiverged):
		return http.StatusConflict, true
	case errors.Is(err, application.ErrNoCurrentRepository),
		errors.Is(err, application.ErrNoLocalClone):
		return http.StatusConflict, true
	case errors.Is(err, application.ErrLogsUnavailable),
		errors.Is(err, application.ErrNotRerunnable):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, application.ErrNoGitHubClient),
		errors.Is(err, driven.ErrEncryptionKeyNotSet):
		return http.StatusPreconditionFailed, true
	case errors.Is(err, application.ErrEmptyToken),
		errors.Is(err, application.ErrInvalidToken):
		return http.StatusBadRequest, true
	default:
		return 0, false
	}
}

// errorMessage returns the outermost sentinel's text so wrapped transport
// details do not leak into responses.
func errorMessage(err error) string {
	for _, sentinel := range []error{
		driven.ErrRepoNotFound, driven.ErrNotificationNotFound, driven.ErrRepoAlreadyExists,
		driven.ErrEncryptionKeyNotSet, application.ErrInvalidToken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// repoFromPath joins the {owner} and {repo} path values.
func repoFromPath(r *http.Request) string {
	return r.PathValue("owner") + "/" + r.PathValue("repo")
}

// prNumberFromPath parses the {number} path value.
func prNumberFromPath(r *http.Request) (int, bool) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number <= 0 {
		return 0, false
	}
	return number, true
}

// isValidRepoName validates that name is in owner/repo format where each part
// contains only alphanumeric characters, hyphens, dots, or underscores.
func isValidRepoName(name string) bool {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 2 {
		return false
	}

	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, ch := range part {
			if !isValidRepoChar(ch) {
				return false
			}
		}
	}

	return true
}

// isValidRepoChar returns true if the rune is allowed in a repository owner or name.
func isValidRepoChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
