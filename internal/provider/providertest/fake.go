// Package providertest provides an in-memory provider.Provider for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/drewdunne/gitdash/internal/provider"
)

// PullRequestCall records the arguments of one GetPullRequests call.
type PullRequestCall struct {
	Owner, Repo string
	Filter      provider.TimeFilter
}

// Fake is a scriptable provider. Set the exported fields before use; the
// call counters are safe to read after the calls return.
type Fake struct {
	mu sync.Mutex

	// ValidTokens maps accepted tokens to usernames. Other tokens fail with Failure.
	// ProviderName is returned by Name ("fake" when unset).
	ProviderName string

	ValidTokens map[string]string
	// Failure is returned for tokens not in ValidTokens (FailureInvalid when unset).
	Failure provider.FailureReason
	FailErr error

	Repositories    []provider.Repository
	RepositoriesErr error
	PullRequests    []provider.PullRequest
	PullRequestsErr error

	token            string
	tokens           []string
	validateCalls    int
	repoCalls        int
	pullRequestCalls []PullRequestCall
}

var _ provider.Provider = (*Fake)(nil)

// Name returns ProviderName, or "fake".
func (f *Fake) Name() string {
	if f.ProviderName == "" {
		return "fake"
	}
	return f.ProviderName
}

// SetToken records the token.
func (f *Fake) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.tokens = append(f.tokens, token)
}

// ValidateToken accepts tokens listed in ValidTokens.
func (f *Fake) ValidateToken(ctx context.Context) provider.Validation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateCalls++
	if user, ok := f.ValidTokens[f.token]; ok && f.token != "" {
		return provider.Valid(user)
	}
	reason := f.Failure
	if reason == provider.FailureNone {
		reason = provider.FailureInvalid
	}
	return provider.Failed(reason, f.FailErr)
}

// GetRepositories returns Repositories or RepositoriesErr.
func (f *Fake) GetRepositories(ctx context.Context) ([]provider.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repoCalls++
	if f.RepositoriesErr != nil {
		return nil, f.RepositoriesErr
	}
	return append([]provider.Repository{}, f.Repositories...), nil
}

// GetPullRequests returns PullRequests or PullRequestsErr.
func (f *Fake) GetPullRequests(ctx context.Context, owner, repo string, filter provider.TimeFilter) ([]provider.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pullRequestCalls = append(f.pullRequestCalls, PullRequestCall{Owner: owner, Repo: repo, Filter: filter})
	if f.PullRequestsErr != nil {
		return nil, f.PullRequestsErr
	}
	return append([]provider.PullRequest{}, f.PullRequests...), nil
}

// Token returns the most recently set token.
func (f *Fake) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// ValidateCalls returns how many times ValidateToken ran.
func (f *Fake) ValidateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateCalls
}

// RepositoryCalls returns how many times GetRepositories ran.
func (f *Fake) RepositoryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repoCalls
}

// PullRequestCalls returns the recorded GetPullRequests calls.
func (f *Fake) PullRequestCalls() []PullRequestCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PullRequestCall{}, f.pullRequestCalls...)
}
