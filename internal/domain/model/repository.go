package model

import "time"

// Repository represents a GitHub repository registered with ciwatch.
// Exactly one repository may be current; it is the one being polled.
type Repository struct {
	ID        int64
	FullName  string
	Owner     string
	Name      string
	LocalPath string // Local clone used to read commits and switch branches. Optional.
	IsCurrent bool
	AddedAt   time.Time
}
