package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/drewdunne/gitdash/internal/provider"
	"github.com/google/go-github/v60/github"
	"golang.org/x/sync/errgroup"
)

const (
	perPage = 100
	// detailConcurrency bounds the per-PR detail and review requests.
	detailConcurrency = 4
	// expirationHeader is set by GitHub on responses authenticated with an expiring token.
	expirationHeader = "GitHub-Authentication-Token-Expiration"
	expirationLayout = "2006-01-02 15:04:05 MST"
)

// GitHubProvider implements provider.Provider for GitHub.
type GitHubProvider struct {
	client *github.Client
	cred   *credential
	now    func() time.Time
}

var _ provider.Provider = (*GitHubProvider)(nil)

// Option configures the GitHub provider.
type Option func(*GitHubProvider)

// WithBaseURL sets a custom base URL (for testing and GitHub Enterprise).
func WithBaseURL(url string) Option {
	return func(p *GitHubProvider) {
		p.client.BaseURL, _ = p.client.BaseURL.Parse(url + "/")
	}
}

// WithClock overrides the clock used to judge token expiry.
func WithClock(now func() time.Time) Option {
	return func(p *GitHubProvider) {
		p.now = now
	}
}

// New creates a new GitHub provider. The token may be empty and set later with SetToken.
func New(token string, opts ...Option) *GitHubProvider {
	cred := &credential{token: token}
	httpClient := &http.Client{
		Transport: &tokenTransport{cred: cred},
	}

	p := &GitHubProvider{
		client: github.NewClient(httpClient),
		cred:   cred,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// credential holds the bearer token shared between the provider and its transport.
type credential struct {
	mu    sync.RWMutex
	token string
}

func (c *credential) get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *credential) set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// tokenTransport adds authorization header to requests.
type tokenTransport struct {
	cred *credential
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.cred.get(); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// Name returns the provider name.
func (p *GitHubProvider) Name() string {
	return "github"
}

// SetToken replaces the bearer token used for subsequent requests.
func (p *GitHubProvider) SetToken(token string) {
	p.cred.set(token)
}

// ValidateToken checks the token by fetching the authenticated user.
func (p *GitHubProvider) ValidateToken(ctx context.Context) provider.Validation {
	user, _, err := p.client.Users.Get(ctx, "")
	if err == nil {
		return provider.Valid(user.GetLogin())
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusUnauthorized {
		if p.expired(errResp.Response.Header.Get(expirationHeader)) {
			return provider.Failed(provider.FailureExpired, err)
		}
		return provider.Failed(provider.FailureInvalid, err)
	}
	return provider.Failed(provider.FailureNetwork, fmt.Errorf("validating token: %w", err))
}

func (p *GitHubProvider) expired(header string) bool {
	if header == "" {
		return false
	}
	at, err := time.Parse(expirationLayout, header)
	if err != nil {
		return false
	}
	return at.Before(p.now())
}

// GetRepositories lists all repositories of the authenticated user, most recently updated first.
func (p *GitHubProvider) GetRepositories(ctx context.Context) ([]provider.Repository, error) {
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	result := []provider.Repository{}
	for {
		repos, resp, err := p.client.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing repositories: %w", err)
		}
		for _, r := range repos {
			result = append(result, toRepository(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return result, nil
}

func toRepository(r *github.Repository) provider.Repository {
	repo := provider.Repository{
		ID:            strconv.FormatInt(r.GetID(), 10),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.Description,
		DefaultBranch: r.GetDefaultBranch(),
		Visibility:    r.GetVisibility(),
	}
	if repo.Visibility == "" {
		repo.Visibility = "public"
		if r.GetPrivate() {
			repo.Visibility = "private"
		}
	}
	if r.UpdatedAt != nil {
		t := r.UpdatedAt.Time
		repo.UpdatedAt = &t
	}
	if r.PushedAt != nil {
		t := r.PushedAt.Time
		repo.LastActivityAt = &t
	}
	return repo
}

// GetPullRequests lists pull requests created within the filter, newest first.
func (p *GitHubProvider) GetPullRequests(ctx context.Context, owner, repo string, filter provider.TimeFilter) ([]provider.PullRequest, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	prs, err := p.listPullRequests(ctx, owner, repo, filter)
	if err != nil {
		return nil, err
	}

	result := make([]provider.PullRequest, len(prs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, pr := range prs {
		g.Go(func() error {
			full, err := p.pullRequestWithReviews(gctx, owner, repo, pr.GetNumber())
			if err != nil {
				return err
			}
			result[i] = full
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// listPullRequests pages through PRs sorted by creation date, stopping once they predate the filter.
func (p *GitHubProvider) listPullRequests(ctx context.Context, owner, repo string, filter provider.TimeFilter) ([]*github.PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var matched []*github.PullRequest
	for {
		prs, resp, err := p.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests: %w", err)
		}
		for _, pr := range prs {
			created := pr.GetCreatedAt().Time
			if created.Before(filter.Start) {
				return matched, nil
			}
			if filter.Contains(created) {
				matched = append(matched, pr)
			}
		}
		if resp.NextPage == 0 {
			return matched, nil
		}
		opts.Page = resp.NextPage
	}
}

func (p *GitHubProvider) pullRequestWithReviews(ctx context.Context, owner, repo string, number int) (provider.PullRequest, error) {
	pr, _, err := p.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return provider.PullRequest{}, fmt.Errorf("fetching pull request %d: %w", number, err)
	}

	var reviews []*github.PullRequestReview
	opts := &github.ListOptions{PerPage: perPage}
	for {
		page, resp, err := p.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return provider.PullRequest{}, fmt.Errorf("listing reviews for pull request %d: %w", number, err)
		}
		reviews = append(reviews, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return toPullRequest(pr, reviews), nil
}

func toPullRequest(pr *github.PullRequest, reviews []*github.PullRequestReview) provider.PullRequest {
	result := provider.PullRequest{
		ID:           strconv.FormatInt(pr.GetID(), 10),
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		State:        pr.GetState(),
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
		Author:       toIdentity(pr.GetUser()),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		IsDraft:      pr.GetDraft(),
		Comments:     pr.GetComments() + pr.GetReviewComments(),
		ReviewCount:  len(reviews),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
		Labels:       make([]string, 0, len(pr.Labels)),
	}
	if pr.MergedAt != nil {
		t := pr.MergedAt.Time
		result.MergedAt = &t
		result.State = provider.StateMerged
	}
	if pr.ClosedAt != nil {
		t := pr.ClosedAt.Time
		result.ClosedAt = &t
	}
	for _, l := range pr.Labels {
		result.Labels = append(result.Labels, l.GetName())
	}

	seen := make(map[string]bool)
	var firstReview *time.Time
	for _, r := range reviews {
		login := r.GetUser().GetLogin()
		if login == result.Author.Username {
			continue
		}
		if !seen[login] {
			seen[login] = true
			result.Reviewers = append(result.Reviewers, toIdentity(r.GetUser()))
		}
		if r.SubmittedAt != nil && (firstReview == nil || r.SubmittedAt.Time.Before(*firstReview)) {
			t := r.SubmittedAt.Time
			firstReview = &t
		}
	}
	for _, u := range pr.RequestedReviewers {
		if !seen[u.GetLogin()] {
			seen[u.GetLogin()] = true
			result.Reviewers = append(result.Reviewers, toIdentity(u))
		}
	}
	sort.Slice(result.Reviewers, func(i, j int) bool {
		return result.Reviewers[i].Username < result.Reviewers[j].Username
	})

	result.SetDurations(firstReview)
	return result
}

func toIdentity(u *github.User) provider.Identity {
	return provider.Identity{
		ID:       strconv.FormatInt(u.GetID(), 10),
		Name:     u.GetName(),
		Username: u.GetLogin(),
	}
}
