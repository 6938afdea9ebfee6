package provider

import "context"

// Provider defines the interface for hosting platform operations used by the dashboard.
type Provider interface {
	// Name returns the provider name (github, gitlab).
	Name() string

	// SetToken configures the bearer credential used for subsequent calls.
	SetToken(token string)

	// ValidateToken proves the configured token against the remote API.
	ValidateToken(ctx context.Context) Validation

	// GetRepositories lists the authenticated user's repositories.
	GetRepositories(ctx context.Context) ([]Repository, error)

	// GetPullRequests lists pull requests of one repository created within the filter.
	GetPullRequests(ctx context.Context, owner, repo string, filter TimeFilter) ([]PullRequest, error)
}
