package model

import "time"

// Notification is a desktop notification raised for failed checks.
type Notification struct {
	ID           string // UUID assigned when the notification is recorded.
	RepoFullName string
	PRNumber     int
	HeadSHA      string
	Title        string
	Body         string
	FailedChecks int
	DialogURL    string // Local page listing the failed checks.
	IsRead       bool
	CreatedAt    time.Time
}
