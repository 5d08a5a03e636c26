package model

// RepoSettings holds per-repository notification preferences.
type RepoSettings struct {
	RepoFullName         string
	NotificationsEnabled bool
	Scope                NotifyScope
}

// DefaultRepoSettings returns the settings applied when none are stored.
func DefaultRepoSettings(repoFullName string) RepoSettings {
	return RepoSettings{
		RepoFullName:         repoFullName,
		NotificationsEnabled: true,
		Scope:                NotifyScopeAuthored,
	}
}
