package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// GetChecks returns the checks of a pull request, failures first.
func (h *Handler) GetChecks(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)
	number, ok := prNumberFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid PR number")
		return
	}

	view, err := h.checks.GetPullRequestChecks(r.Context(), fullName, number)
	if err != nil {
		h.writeServiceError(w, err, "failed to get checks", "repo", fullName, "pr", number)
		return
	}

	writeJSON(w, http.StatusOK, toPRChecksResponse(*view))
}

// GetCheckLogs returns the Actions job and log excerpt behind a check.
func (h *Handler) GetCheckLogs(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)
	number, checkID, ok := checkFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid PR number or check ID")
		return
	}

	logs, err := h.checks.GetCheckLogs(r.Context(), fullName, number, checkID)
	if err != nil {
		h.writeServiceError(w, err, "failed to get check logs", "repo", fullName, "pr", number, "check", checkID)
		return
	}

	writeJSON(w, http.StatusOK, toCheckLogsResponse(*logs))
}

// OpenCheck opens a check's details page in the local browser. The source
// query parameter selects a check run (the default) or a commit status.
func (h *Handler) OpenCheck(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)
	number, checkID, ok := checkFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid PR number or check ID")
		return
	}

	source := model.CheckSourceCheckRun
	switch v := model.CheckSource(r.URL.Query().Get("source")); v {
	case "", model.CheckSourceCheckRun:
	case model.CheckSourceCommitStatus:
		source = v
	default:
		writeError(w, http.StatusBadRequest, "source must be check_run or status")
		return
	}

	if err := h.checks.OpenCheckDetails(r.Context(), fullName, number, source, checkID); err != nil {
		h.writeServiceError(w, err, "failed to open check", "repo", fullName, "pr", number, "source", source, "check", checkID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Rerun re-runs one check, or all failed checks when no check_id is given.
func (h *Handler) Rerun(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)
	number, ok := prNumberFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid PR number")
		return
	}

	var req RerunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CheckID < 0 {
		writeError(w, http.StatusBadRequest, "invalid check ID")
		return
	}

	sent, err := h.checks.RerunChecks(r.Context(), fullName, number, req.CheckID)
	if err != nil && sent == 0 {
		h.writeServiceError(w, err, "failed to re-run checks", "repo", fullName, "pr", number)
		return
	}

	resp := RerunResponse{Requests: sent}
	if err != nil {
		h.logger.Warn("some re-run requests failed", "repo", fullName, "pr", number, "error", err)
		resp.Errors = err.Error()
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// Checkout switches the local clone to the pull request's head.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	fullName := repoFromPath(r)
	number, ok := prNumberFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid PR number")
		return
	}

	branch, err := h.checks.SwitchToPullRequest(r.Context(), fullName, number)
	if err != nil {
		h.writeServiceError(w, err, "failed to switch to pull request", "repo", fullName, "pr", number)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{Branch: branch})
}

func checkFromPath(r *http.Request) (int, int64, bool) {
	number, ok := prNumberFromPath(r)
	if !ok {
		return 0, 0, false
	}
	checkID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || checkID <= 0 {
		return 0, 0, false
	}
	return number, checkID, true
}
