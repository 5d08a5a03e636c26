package driven

import (
	"context"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// MuteStore defines the driven port for the list of muted pull requests.
// Mute is idempotent: muting an already-muted PR is a no-op.
type MuteStore interface {
	Mute(ctx context.Context, repoFullName string, prNumber int) error
	Unmute(ctx context.Context, repoFullName string, prNumber int) error
	IsMuted(ctx context.Context, repoFullName string, prNumber int) (bool, error)
	ListMuted(ctx context.Context, repoFullName string) ([]model.MutedPR, error)
}
