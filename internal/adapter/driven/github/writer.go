package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.GitHubWriter = (*Client)(nil)
	_ driven.GitHubAPI    = (*Client)(nil)
)

// ValidateToken verifies that the given GitHub personal access token is valid
// and returns the authenticated username on success. It creates a one-shot
// client with the provided token to avoid mutating the receiver's state.
func ValidateToken(ctx context.Context, token string) (string, error) {
	return validateToken(ctx, gh.NewClient(&http.Client{Timeout: 10 * time.Second}).WithAuthToken(token))
}

// ValidateToken checks a token against this client's API endpoint. It exists
// so tests can validate against an httptest server.
func (c *Client) ValidateToken(ctx context.Context, token string) (string, error) {
	return validateToken(ctx, c.gh.WithAuthToken(token))
}

func validateToken(ctx context.Context, client *gh.Client) (string, error) {
	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}
	return user.GetLogin(), nil
}

// RerunJob re-runs a single GitHub Actions job.
func (c *Client) RerunJob(ctx context.Context, repoFullName string, jobID int64) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	if _, err := c.gh.Actions.RerunJobByID(ctx, owner, repo, jobID); err != nil {
		return fmt.Errorf("re-running job %d in %s: %w", jobID, repoFullName, err)
	}
	return nil
}

// RerunFailedJobs re-runs every failed job of a workflow run.
func (c *Client) RerunFailedJobs(ctx context.Context, repoFullName string, runID int64) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	if _, err := c.gh.Actions.RerunFailedJobsByID(ctx, owner, repo, runID); err != nil {
		return fmt.Errorf("re-running failed jobs of run %d in %s: %w", runID, repoFullName, err)
	}
	return nil
}

// RerequestCheckSuite asks the integrator behind a check suite to run it again.
func (c *Client) RerequestCheckSuite(ctx context.Context, repoFullName string, checkSuiteID int64) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	if _, err := c.gh.Checks.ReRequestCheckSuite(ctx, owner, repo, checkSuiteID); err != nil {
		return fmt.Errorf("re-requesting check suite %d in %s: %w", checkSuiteID, repoFullName, err)
	}
	return nil
}
