package application

import (
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// ActivityTier classifies the current repository by how much is happening on
// its open pull requests. Quieter tiers are polled less often.
type ActivityTier int

const (
	// TierHot indicates checks still running or a PR updated within the last
	// hour. Polls every PollInterval.
	TierHot ActivityTier = iota
	// TierActive indicates a PR updated within the last day. Polls every
	// 2x PollInterval.
	TierActive
	// TierWarm indicates a PR updated within the last 7 days. Polls every
	// 5x PollInterval.
	TierWarm
	// TierStale indicates no open PRs, or none updated for 7+ days. Polls
	// every 10x PollInterval.
	TierStale
)

// maxPollInterval caps the backed-off interval of quiet tiers.
const maxPollInterval = 30 * time.Minute

// String returns a human-readable name for the activity tier.
func (t ActivityTier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierActive:
		return "active"
	case TierWarm:
		return "warm"
	case TierStale:
		return "stale"
	default:
		return "unknown"
	}
}

// tierInterval scales the base poll interval for the given tier. The result
// is never shorter than base and never longer than maxPollInterval unless
// base itself is.
func tierInterval(tier ActivityTier, base time.Duration) time.Duration {
	var factor time.Duration
	switch tier {
	case TierActive:
		factor = 2
	case TierWarm:
		factor = 5
	case TierStale:
		factor = 10
	default:
		return base
	}
	return max(base, min(base*factor, maxPollInterval))
}

// classifyActivity determines the tier from pending checks and the freshest
// PR update. A zero lastActivity with nothing pending is TierStale.
func classifyActivity(pending bool, lastActivity, now time.Time) ActivityTier {
	if pending {
		return TierHot
	}
	if lastActivity.IsZero() {
		return TierStale
	}

	elapsed := now.Sub(lastActivity)

	switch {
	case elapsed < time.Hour:
		return TierHot
	case elapsed < 24*time.Hour:
		return TierActive
	case elapsed < 7*24*time.Hour:
		return TierWarm
	default:
		return TierStale
	}
}

// freshestActivity finds the most recent UpdatedAt across all PRs.
// Returns the zero time if the slice is empty.
func freshestActivity(prs []model.PullRequest) time.Time {
	var newest time.Time
	for _, pr := range prs {
		if pr.UpdatedAt.After(newest) {
			newest = pr.UpdatedAt
		}
	}
	return newest
}

// ScheduleInfo is an exported view of the adaptive polling schedule.
type ScheduleInfo struct {
	Tier       ActivityTier
	Interval   time.Duration
	LastPolled time.Time
}
