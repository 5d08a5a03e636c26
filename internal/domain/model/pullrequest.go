package model

import "time"

// PullRequest represents an open GitHub pull request in the current repository.
type PullRequest struct {
	ID           int64
	Number       int
	RepoFullName string
	Title        string
	Author       string
	Status       PRStatus
	IsDraft      bool
	URL          string
	Branch       string
	BaseBranch   string
	HeadSHA      string // Commit whose checks are evaluated.
	HeadRepo     string // owner/name of the head repository; differs from RepoFullName for forks.
	OpenedAt     time.Time
	UpdatedAt    time.Time
}

// IsFromFork reports whether the head branch lives in a different repository.
func (pr PullRequest) IsFromFork() bool {
	return pr.HeadRepo != "" && pr.HeadRepo != pr.RepoFullName
}

// ShortSHA returns the first seven characters of the head SHA.
func (pr PullRequest) ShortSHA() string {
	return ShortSHA(pr.HeadSHA)
}

// ShortSHA abbreviates a commit SHA the way git does by default.
func ShortSHA(sha string) string {
	if len(sha) <= 7 {
		return sha
	}
	return sha[:7]
}
