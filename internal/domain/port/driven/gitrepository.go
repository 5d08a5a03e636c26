package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

var (
	// ErrCommitNotFound indicates the commit does not exist in the local clone.
	ErrCommitNotFound = errors.New("commit not found in local repository")

	// ErrBranchDiverged indicates an existing local branch cannot be
	// fast-forwarded to the pull request head.
	ErrBranchDiverged = errors.New("local branch has commits that are not in the pull request; not moving it")
)

// GitRepository defines the driven port for operations on a local clone.
type GitRepository interface {
	// GetCommit reads commit metadata. Returns ErrCommitNotFound if the commit
	// is not present locally.
	GetCommit(ctx context.Context, repoPath, sha string) (*model.Commit, error)
	// CheckoutPullRequest fetches the PR head into the local branch and checks it out.
	// An existing branch is only fast-forwarded; otherwise ErrBranchDiverged.
	CheckoutPullRequest(ctx context.Context, repoPath string, prNumber int, branch string) error
}

// URLOpener opens a URL in the user's browser.
type URLOpener interface {
	OpenURL(url string) error
}
