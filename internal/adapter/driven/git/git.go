// Package git implements the GitRepository port by shelling out to the git binary.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitRepository = (*Repository)(nil)

// DefaultRemote is the remote pull request heads are fetched from.
const DefaultRemote = "origin"

// Repository runs git commands against local clones.
type Repository struct {
	remote string
}

// NewRepository creates a Repository that fetches from the given remote.
// An empty remote falls back to DefaultRemote.
func NewRepository(remote string) *Repository {
	if remote == "" {
		remote = DefaultRemote
	}
	return &Repository{remote: remote}
}

// GetCommit reads commit metadata from the clone at repoPath.
// Returns driven.ErrCommitNotFound only when repoPath is a git repository
// that lacks the object; a missing or broken clone is an ordinary error.
func (r *Repository) GetCommit(ctx context.Context, repoPath, sha string) (*model.Commit, error) {
	if _, err := run(ctx, repoPath, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("%s is not a usable git repository: %w", repoPath, err)
	}

	// cat-file -e exits 1, silently, for a well-formed SHA that is absent.
	if _, err := run(ctx, repoPath, "cat-file", "-e", sha); err != nil {
		if exitCode(err) == 1 {
			return nil, fmt.Errorf("commit %s: %w", model.ShortSHA(sha), driven.ErrCommitNotFound)
		}
		return nil, err
	}

	// Record separator (ASCII 30) never appears in commit messages.
	const rs = "\x1e"
	out, err := run(ctx, repoPath, "log", "-1", "--format=%H"+rs+"%an"+rs+"%s"+rs+"%aI"+rs+"%b", sha)
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(strings.TrimSuffix(out, "\n"), rs, 5)
	if len(parts) < 4 {
		return nil, fmt.Errorf("unexpected git log output: %q", out)
	}

	ts, err := time.Parse(time.RFC3339, parts[3])
	if err != nil {
		return nil, fmt.Errorf("parse commit date %q: %w", parts[3], err)
	}

	var body string
	if len(parts) == 5 {
		body = strings.TrimSpace(parts[4])
	}

	return &model.Commit{
		SHA:       parts[0],
		Author:    parts[1],
		Summary:   parts[2],
		Body:      body,
		Timestamp: ts,
	}, nil
}

// CheckoutPullRequest fetches refs/pull/<n>/head from the remote and checks it
// out as branch. A new branch is created at the PR head. An existing branch is
// fast-forwarded; if it has commits the PR head lacks, it is left alone and
// driven.ErrBranchDiverged is returned.
func (r *Repository) CheckoutPullRequest(ctx context.Context, repoPath string, prNumber int, branch string) error {
	if branch == "" {
		branch = "pr/" + strconv.Itoa(prNumber)
	}

	ref := fmt.Sprintf("refs/pull/%d/head", prNumber)
	if _, err := run(ctx, repoPath, "fetch", "--no-tags", r.remote, ref); err != nil {
		return fmt.Errorf("fetch pull request #%d: %w", prNumber, err)
	}

	local := "refs/heads/" + branch
	if _, err := run(ctx, repoPath, "rev-parse", "--verify", "--quiet", local); err != nil {
		if exitCode(err) != 1 {
			return fmt.Errorf("look up branch %s: %w", branch, err)
		}
		if _, err := run(ctx, repoPath, "checkout", "-b", branch, "FETCH_HEAD"); err != nil {
			return fmt.Errorf("checkout %s: %w", branch, err)
		}
		return nil
	}

	// merge-base --is-ancestor exits 1 when the branch is not an ancestor.
	if _, err := run(ctx, repoPath, "merge-base", "--is-ancestor", local, "FETCH_HEAD"); err != nil {
		if exitCode(err) == 1 {
			return fmt.Errorf("checkout %s: %w", branch, driven.ErrBranchDiverged)
		}
		return fmt.Errorf("compare %s with pull request #%d: %w", branch, prNumber, err)
	}

	if _, err := run(ctx, repoPath, "checkout", branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	if _, err := run(ctx, repoPath, "merge", "--ff-only", "FETCH_HEAD"); err != nil {
		return fmt.Errorf("fast-forward %s: %w", branch, err)
	}
	return nil
}

// exitCode returns git's exit status, or -1 when err is not an exit error.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// run executes git in dir and returns stdout. Stderr is folded into the error.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", args[0], err)
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}

	return string(out), nil
}
