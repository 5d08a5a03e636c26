package driven

import (
	"context"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// GitHubClient defines the driven port for reading from the GitHub API.
type GitHubClient interface {
	// FetchPullRequests returns the open pull requests of the repository.
	FetchPullRequests(ctx context.Context, repoFullName string) ([]model.PullRequest, error)

	// FetchCheckRuns returns all check runs for the given ref (commit SHA or branch).
	FetchCheckRuns(ctx context.Context, repoFullName string, ref string) ([]model.RefCheck, error)
	// FetchCombinedStatus returns the combined commit status for the given ref.
	// Returns nil, nil when no statuses have been reported.
	FetchCombinedStatus(ctx context.Context, repoFullName string, ref string) (*model.CombinedStatus, error)

	// FetchWorkflowJob returns the Actions job with the given ID, including its steps.
	FetchWorkflowJob(ctx context.Context, repoFullName string, jobID int64) (*model.WorkflowJob, error)
	// FetchJobLogsURL resolves the short-lived download URL for a job's logs.
	FetchJobLogsURL(ctx context.Context, repoFullName string, jobID int64) (string, error)
	// DownloadLogs fetches the plain-text log content behind a logs URL.
	DownloadLogs(ctx context.Context, logsURL string) (string, error)
}
