package driven

import "context"

// GitHubWriter defines the driven port for GitHub write operations.
// It is separate from GitHubClient so read-only callers never see mutations.
type GitHubWriter interface {
	// RerunJob re-runs a single GitHub Actions job.
	RerunJob(ctx context.Context, repoFullName string, jobID int64) error
	// RerunFailedJobs re-runs every failed job of a workflow run.
	RerunFailedJobs(ctx context.Context, repoFullName string, runID int64) error
	// RerequestCheckSuite asks the integrator to re-run a whole check suite.
	RerequestCheckSuite(ctx context.Context, repoFullName string, checkSuiteID int64) error
}

// GitHubAPI is the full client surface the application works against.
type GitHubAPI interface {
	GitHubClient
	GitHubWriter
}
