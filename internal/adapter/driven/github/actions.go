package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

const (
	// maxLogDownload bounds how much of a job log is read from the network.
	maxLogDownload = 64 << 20
	// maxLogKept is the size of the log tail returned to callers.
	maxLogKept = 8 << 20
	// logRedirects is how many redirects GetWorkflowJobLogs may follow before
	// it returns the pre-signed location.
	logRedirects = 3
)

// FetchWorkflowJob returns the Actions job with the given ID, including its steps.
func (c *Client) FetchWorkflowJob(ctx context.Context, repoFullName string, jobID int64) (*model.WorkflowJob, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	job, resp, err := c.gh.Actions.GetWorkflowJobByID(ctx, owner, repo, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetching workflow job %d for %s: %w", jobID, repoFullName, err)
	}

	logRateLimit(resp, repoFullName+"/actions-job", 0, 1)

	return mapWorkflowJob(job), nil
}

// FetchJobLogsURL resolves the short-lived download URL for a job's logs.
func (c *Client) FetchJobLogsURL(ctx context.Context, repoFullName string, jobID int64) (string, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return "", err
	}

	u, resp, err := c.gh.Actions.GetWorkflowJobLogs(ctx, owner, repo, jobID, logRedirects)
	if err != nil {
		return "", fmt.Errorf("fetching logs URL for job %d in %s: %w", jobID, repoFullName, err)
	}

	logRateLimit(resp, repoFullName+"/actions-job-logs", 0, 1)

	if u == nil {
		return "", fmt.Errorf("no logs URL returned for job %d in %s", jobID, repoFullName)
	}
	return u.String(), nil
}

// DownloadLogs fetches the plain-text log behind a pre-signed logs URL. Transient
// failures (network errors, 5xx, 429) are retried with exponential backoff.
// Logs larger than maxLogKept are trimmed to their tail.
func (c *Client) DownloadLogs(ctx context.Context, logsURL string) (string, error) {
	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, logsURL, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("building logs request: %w", err))
		}

		resp, err := c.logs.Do(req)
		if err != nil {
			return nil, fmt.Errorf("downloading logs: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("downloading logs: unexpected status %d", resp.StatusCode)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, statusErr
			}
			return nil, backoff.Permanent(statusErr)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxLogDownload))
		if err != nil {
			return nil, fmt.Errorf("reading logs: %w", err)
		}
		return body, nil
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("log download failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	body, err := backoff.RetryNotifyWithData(op, backoff.WithContext(c.retryPolicy(), ctx), notify)
	if err != nil {
		return "", err
	}

	if len(body) > maxLogKept {
		body = body[len(body)-maxLogKept:]
	}
	return string(body), nil
}

func (c *Client) retryPolicy() backoff.BackOff {
	if c.newBackOff != nil {
		return c.newBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(b, 4)
}

// mapWorkflowJob converts a go-github WorkflowJob to a domain model WorkflowJob.
func mapWorkflowJob(j *gh.WorkflowJob) *model.WorkflowJob {
	job := &model.WorkflowJob{
		ID:         j.GetID(),
		RunID:      j.GetRunID(),
		Name:       j.GetName(),
		Status:     j.GetStatus(),
		Conclusion: j.GetConclusion(),
		HTMLURL:    j.GetHTMLURL(),
	}
	if j.StartedAt != nil {
		job.StartedAt = j.GetStartedAt().Time
	}
	if j.CompletedAt != nil {
		job.CompletedAt = j.GetCompletedAt().Time
	}

	for _, s := range j.Steps {
		job.Steps = append(job.Steps, model.WorkflowStep{
			Number:     s.GetNumber(),
			Name:       s.GetName(),
			Status:     s.GetStatus(),
			Conclusion: s.GetConclusion(),
		})
	}

	return job
}
