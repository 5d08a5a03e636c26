package application

import (
	"sync/atomic"

	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

type githubSession struct {
	client   driven.GitHubAPI
	username string
}

// GitHubClientProvider holds the GitHub client the services call through.
// Saving new credentials swaps the client in place, so a running poller
// picks it up on its next cycle. Client and username change together.
type GitHubClientProvider struct {
	session atomic.Pointer[githubSession]
}

// NewGitHubClientProvider returns a provider holding client, which may be nil
// when no credentials are configured yet.
func NewGitHubClientProvider(client driven.GitHubAPI, username string) *GitHubClientProvider {
	p := &GitHubClientProvider{}
	p.Replace(client, username)
	return p
}

// Get returns the current client, or nil.
func (p *GitHubClientProvider) Get() driven.GitHubAPI {
	return p.session.Load().client
}

// Username returns the login the current client authenticates as.
func (p *GitHubClientProvider) Username() string {
	return p.session.Load().username
}

// Replace installs a new client and username.
func (p *GitHubClientProvider) Replace(client driven.GitHubAPI, username string) {
	p.session.Store(&githubSession{client: client, username: username})
}

func (p *GitHubClientProvider) HasClient() bool {
	return p.Get() != nil
}

// require returns the current client or ErrNoGitHubClient.
func (p *GitHubClientProvider) require() (driven.GitHubAPI, error) {
	if client := p.Get(); client != nil {
		return client, nil
	}
	return nil, ErrNoGitHubClient
}
