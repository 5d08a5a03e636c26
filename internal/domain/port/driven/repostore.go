package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// Sentinel errors returned by RepoStore implementations.
var (
	// ErrRepoNotFound indicates the requested repository does not exist.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrRepoAlreadyExists indicates a repository with the same name already exists.
	ErrRepoAlreadyExists = errors.New("repository already exists")
)

// RepoStore defines the driven port for repository persistence.
// Add returns ErrRepoAlreadyExists if the repository already exists.
// Remove, SetCurrent and SetLocalPath return ErrRepoNotFound if the repository does not exist.
type RepoStore interface {
	Add(ctx context.Context, repo model.Repository) error
	Remove(ctx context.Context, fullName string) error
	GetByFullName(ctx context.Context, fullName string) (*model.Repository, error)
	ListAll(ctx context.Context) ([]model.Repository, error)
	// SetCurrent marks the named repository as current and clears the flag on all others.
	SetCurrent(ctx context.Context, fullName string) error
	// GetCurrent returns the current repository, or nil, nil if none is selected.
	GetCurrent(ctx context.Context) (*model.Repository, error)
	// SetLocalPath changes the local clone path of the named repository.
	SetLocalPath(ctx context.Context, fullName, localPath string) error
}
