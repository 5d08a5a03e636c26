// Package web implements the HTML dialog driving adapter using templ components.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

const recentNotifications = 25

// ChecksDialog is the application surface the dialog pages need.
type ChecksDialog interface {
	GetPullRequestChecks(ctx context.Context, repoFullName string, prNumber int) (*application.PullRequestChecks, error)
	GetCheckLogs(ctx context.Context, repoFullName string, prNumber int, checkID int64) (*model.CheckLogs, error)
	RerunChecks(ctx context.Context, repoFullName string, prNumber int, checkID int64) (int, error)
	SwitchToPullRequest(ctx context.Context, repoFullName string, prNumber int) (string, error)
}

// Handler is the web driving adapter that serves HTML via templ components.
type Handler struct {
	checks  ChecksDialog
	history driven.NotificationStore
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(checks ChecksDialog, history driven.NotificationStore, logger *slog.Logger) *Handler {
	return &Handler{
		checks:  checks,
		history: history,
		logger:  logger,
	}
}

// Index lists recent notifications.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.history.ListRecent(r.Context(), recentNotifications)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, r, Layout("ciwatch", IndexPage(toNotificationViewModels(notifications))))
}

// Dialog renders the failed-checks dialog of a pull request.
func (h *Handler) Dialog(w http.ResponseWriter, r *http.Request) {
	repo, number, ok := prFromPath(r)
	if !ok {
		http.Error(w, "invalid pull request", http.StatusBadRequest)
		return
	}

	view, err := h.checks.GetPullRequestChecks(r.Context(), repo, number)
	if err != nil {
		h.renderError(w, err, "failed to load checks", "repo", repo, "pr", number)
		return
	}

	vm := toDialogViewModel(*view, csrfToken(w, r))
	if msg := r.URL.Query().Get("msg"); msg != "" {
		vm.Flash = msg
		vm.FlashError = r.URL.Query().Get("error") == "1"
	}

	title := fmt.Sprintf("%s #%d checks", repo, number)
	h.render(w, r, Layout(title, DialogPage(vm)))
}

// Logs renders the job and log fragment of one check.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	repo, number, ok := prFromPath(r)
	checkID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if !ok || err != nil || checkID <= 0 {
		http.Error(w, "invalid check", http.StatusBadRequest)
		return
	}

	logs, err := h.checks.GetCheckLogs(r.Context(), repo, number, checkID)
	if err != nil {
		h.renderError(w, err, "failed to load logs", "repo", repo, "pr", number, "check", checkID)
		return
	}

	h.render(w, r, LogsFragment(toLogsViewModel(*logs)))
}

// Rerun re-runs one failed check, or all of them, and redirects back to the
// dialog with a status message.
func (h *Handler) Rerun(w http.ResponseWriter, r *http.Request) {
	repo, number, ok := prFromPath(r)
	if !ok {
		http.Error(w, "invalid pull request", http.StatusBadRequest)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	var checkID int64
	if raw := r.FormValue("check_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			http.Error(w, "invalid check", http.StatusBadRequest)
			return
		}
		checkID = id
	}

	sent, err := h.checks.RerunChecks(r.Context(), repo, number, checkID)
	switch {
	case err != nil && sent == 0:
		h.logger.Warn("re-run failed", "repo", repo, "pr", number, "check", checkID, "error", err)
		redirectWithMessage(w, r, repo, number, userMessage(err), true)
	case err != nil:
		h.logger.Warn("some re-runs failed", "repo", repo, "pr", number, "error", err)
		redirectWithMessage(w, r, repo, number, fmt.Sprintf("Requested %d re-run(s); some failed.", sent), true)
	default:
		redirectWithMessage(w, r, repo, number, fmt.Sprintf("Requested %d re-run(s).", sent), false)
	}
}

// Checkout switches the local clone to the pull request and redirects back.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	repo, number, ok := prFromPath(r)
	if !ok {
		http.Error(w, "invalid pull request", http.StatusBadRequest)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	branch, err := h.checks.SwitchToPullRequest(r.Context(), repo, number)
	if err != nil {
		h.logger.Warn("switch to pull request failed", "repo", repo, "pr", number, "error", err)
		redirectWithMessage(w, r, repo, number, userMessage(err), true)
		return
	}

	redirectWithMessage(w, r, repo, number, "Checked out "+branch+".", false)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	switch {
	case errors.Is(err, application.ErrPRNotFound), errors.Is(err, application.ErrCheckNotFound):
		http.Error(w, userMessage(err), http.StatusNotFound)
	case errors.Is(err, application.ErrLogsUnavailable):
		http.Error(w, userMessage(err), http.StatusUnprocessableEntity)
	case errors.Is(err, application.ErrNoGitHubClient):
		http.Error(w, userMessage(err), http.StatusPreconditionFailed)
	default:
		h.logger.Error(msg, append(attrs, "error", err)...)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// userMessage returns text that is safe to show for known errors.
func userMessage(err error) string {
	for _, known := range []error{
		application.ErrPRNotFound,
		application.ErrCheckNotFound,
		application.ErrLogsUnavailable,
		application.ErrNotRerunnable,
		application.ErrNoLocalClone,
		application.ErrNoGitHubClient,
		driven.ErrBranchDiverged,
		driven.ErrRepoNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "The request failed. See the ciwatch log for details."
}

func redirectWithMessage(w http.ResponseWriter, r *http.Request, repo string, number int, msg string, isError bool) {
	q := url.Values{"msg": {msg}}
	if isError {
		q.Set("error", "1")
	}
	http.Redirect(w, r, dialogPath(repo, number)+"?"+q.Encode(), http.StatusSeeOther)
}

func prFromPath(r *http.Request) (string, int, bool) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number <= 0 {
		return "", 0, false
	}
	return r.PathValue("owner") + "/" + r.PathValue("repo"), number, true
}
