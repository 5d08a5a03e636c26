package httphandler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 500
)

// ListNotifications returns the notification history, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	notifications, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toNotificationResponses(notifications))
}

// MarkNotificationRead flags a notification as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.history.MarkRead(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "failed to mark notification read", "id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh forces a check cycle and returns the notifications it raised.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.cycle.Refresh(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "manual refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{
		Notified:      len(notifications),
		Notifications: toNotificationResponses(notifications),
	})
}

// GetSettings returns a repository's notification settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)

	settings, err := h.settingsStore.GetSettings(r.Context(), fullName)
	if err != nil {
		h.logger.Error("failed to get settings", "repo", fullName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if settings == nil {
		defaults := model.DefaultRepoSettings(fullName)
		settings = &defaults
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(*settings))
}

// UpdateSettings replaces a repository's notification settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)

	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings := model.DefaultRepoSettings(fullName)
	if req.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *req.NotificationsEnabled
	}
	switch model.NotifyScope(req.Scope) {
	case "":
	case model.NotifyScopeAuthored, model.NotifyScopeAll:
		settings.Scope = model.NotifyScope(req.Scope)
	default:
		writeError(w, http.StatusBadRequest, "invalid scope: expected authored or all")
		return
	}

	repo, err := h.repoStore.GetByFullName(r.Context(), fullName)
	if err != nil {
		h.logger.Error("failed to get repo", "repo", fullName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if repo == nil {
		writeError(w, http.StatusNotFound, "repository not found")
		return
	}

	if err := h.settingsStore.SetSettings(r.Context(), settings); err != nil {
		h.logger.Error("failed to save settings", "repo", fullName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// ListMuted returns the muted pull requests of a repository.
func (h *Handler) ListMuted(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)

	muted, err := h.muteStore.ListMuted(r.Context(), fullName)
	if err != nil {
		h.logger.Error("failed to list muted PRs", "repo", fullName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]MutedPRResponse, 0, len(muted))
	for _, m := range muted {
		resp = append(resp, MutedPRResponse{
			Repository: m.RepoFullName,
			Number:     m.PRNumber,
			MutedAt:    formatTime(m.MutedAt),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Mute silences notifications for a pull request.
func (h *Handler) Mute(w http.ResponseWriter, r *http.Request) {
	h.setMuted(w, r, true)
}

// Unmute re-enables notifications for a pull request.
func (h *Handler) Unmute(w http.ResponseWriter, r *http.Request) {
	h.setMuted(w, r, false)
}

func (h *Handler) setMuted(w http.ResponseWriter, r *http.Request, muted bool) {
	fullName := repoFromPath(r)
	number, ok := prNumberFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid PR number")
		return
	}

	var err error
	if muted {
		err = h.muteStore.Mute(r.Context(), fullName, number)
	} else {
		err = h.muteStore.Unmute(r.Context(), fullName, number)
	}
	if err != nil {
		h.logger.Error("failed to update mute", "repo", fullName, "pr", number, "muted", muted, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetCredentials reports whether a GitHub token is configured.
func (h *Handler) GetCredentials(w http.ResponseWriter, _ *http.Request) {
	status := h.credentials.Status()
	writeJSON(w, http.StatusOK, CredentialStatusResponse{Configured: status.Configured, Username: status.Username})
}

// SetCredentials validates and stores a GitHub token.
func (h *Handler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	var req SetTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	login, err := h.credentials.SetGitHubToken(r.Context(), req.Token)
	if err != nil {
		h.writeServiceError(w, err, "failed to set github token")
		return
	}

	writeJSON(w, http.StatusOK, CredentialStatusResponse{Configured: true, Username: login})
}

// DeleteCredentials removes the stored GitHub token.
func (h *Handler) DeleteCredentials(w http.ResponseWriter, r *http.Request) {
	if err := h.credentials.ClearGitHubToken(r.Context()); err != nil {
		h.writeServiceError(w, err, "failed to clear github token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
