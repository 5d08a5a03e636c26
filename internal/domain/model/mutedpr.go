package model

import "time"

// MutedPR records that notifications for a pull request were silenced by the user.
type MutedPR struct {
	RepoFullName string
	PRNumber     int
	MutedAt      time.Time
}
