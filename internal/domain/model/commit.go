package model

import "time"

// Commit is the subset of local git commit metadata shown with failed checks.
type Commit struct {
	SHA       string
	Author    string
	Summary   string
	Body      string
	Timestamp time.Time
}
