package application

import "errors"

// Sentinel errors returned by application services. Driving adapters map them
// to user-facing responses.
var (
	ErrNoCurrentRepository = errors.New("no current repository selected")
	ErrNoGitHubClient      = errors.New("github credentials not configured")
	ErrPRNotFound          = errors.New("pull request not found")
	ErrCheckNotFound       = errors.New("check not found")
	ErrLogsUnavailable     = errors.New("logs are only available for GitHub Actions jobs")
	ErrNotRerunnable       = errors.New("check cannot be re-run")
	ErrNoLocalClone        = errors.New("repository has no local clone configured")
)
