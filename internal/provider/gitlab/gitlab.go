package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/drewdunne/gitdash/internal/provider"
	"github.com/xanzy/go-gitlab"
	"golang.org/x/sync/errgroup"
)

const (
	perPage           = 100
	detailConcurrency = 4
)

// GitLabProvider implements provider.Provider for GitLab.
type GitLabProvider struct {
	mu      sync.RWMutex
	client  *gitlab.Client
	token   string
	baseURL string
}

var _ provider.Provider = (*GitLabProvider)(nil)

// Option configures the GitLab provider.
type Option func(*GitLabProvider)

// WithBaseURL sets a custom base URL (for testing and self-managed instances).
func WithBaseURL(baseURL string) Option {
	return func(p *GitLabProvider) {
		p.baseURL = strings.TrimSuffix(baseURL, "/") + "/api/v4"
	}
}

// New creates a new GitLab provider. The token may be empty and set later with SetToken.
func New(token string, opts ...Option) *GitLabProvider {
	p := &GitLabProvider{token: token}

	for _, opt := range opts {
		opt(p)
	}

	p.client = p.newClient(token)
	return p
}

func (p *GitLabProvider) newClient(token string) *gitlab.Client {
	var opts []gitlab.ClientOptionFunc
	if p.baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(p.baseURL))
	}
	// NewClient only fails on a malformed base URL; fall back to gitlab.com.
	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		client, _ = gitlab.NewClient(token)
	}
	return client
}

func (p *GitLabProvider) api() *gitlab.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Name returns the provider name.
func (p *GitLabProvider) Name() string {
	return "gitlab"
}

// SetToken rebuilds the client with the given private token.
func (p *GitLabProvider) SetToken(token string) {
	client := p.newClient(token)
	p.mu.Lock()
	p.client = client
	p.token = token
	p.mu.Unlock()
}

// ValidateToken checks the token by fetching the current user.
func (p *GitLabProvider) ValidateToken(ctx context.Context) provider.Validation {
	user, _, err := p.api().Users.CurrentUser(gitlab.WithContext(ctx))
	if err == nil {
		return provider.Valid(user.Username)
	}

	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusUnauthorized {
		if tokenExpired(errResp) {
			return provider.Failed(provider.FailureExpired, err)
		}
		return provider.Failed(provider.FailureInvalid, err)
	}
	return provider.Failed(provider.FailureNetwork, fmt.Errorf("validating token: %w", err))
}

// tokenExpired looks for GitLab's expiry wording in the error body or the WWW-Authenticate header.
func tokenExpired(errResp *gitlab.ErrorResponse) bool {
	text := errResp.Message + " " + string(errResp.Body) + " " + errResp.Response.Header.Get("WWW-Authenticate")
	return strings.Contains(strings.ToLower(text), "expired")
}

// projectPath joins owner/repo into a GitLab project ID; the client escapes it.
func projectPath(owner, repo string) string {
	return owner + "/" + repo
}

// GetRepositories lists projects the user is a member of, most recently active first.
func (p *GitLabProvider) GetRepositories(ctx context.Context) ([]provider.Repository, error) {
	client := p.api()
	opts := &gitlab.ListProjectsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage, Page: 1},
		Membership:  gitlab.Ptr(true),
		OrderBy:     gitlab.Ptr("last_activity_at"),
	}

	result := []provider.Repository{}
	for {
		projects, resp, err := client.Projects.ListProjects(opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing projects: %w", err)
		}
		for _, project := range projects {
			result = append(result, toRepository(project))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return result, nil
}

func toRepository(project *gitlab.Project) provider.Repository {
	repo := provider.Repository{
		ID:             strconv.Itoa(project.ID),
		Name:           project.Name,
		FullName:       project.PathWithNamespace,
		DefaultBranch:  project.DefaultBranch,
		Visibility:     string(project.Visibility),
		LastActivityAt: project.LastActivityAt,
	}
	if project.Description != "" {
		desc := project.Description
		repo.Description = &desc
	}
	return repo
}

// GetPullRequests lists merge requests created within the filter.
func (p *GitLabProvider) GetPullRequests(ctx context.Context, owner, repo string, filter provider.TimeFilter) ([]provider.PullRequest, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	client := p.api()
	pid := projectPath(owner, repo)
	opts := &gitlab.ListProjectMergeRequestsOptions{
		ListOptions:   gitlab.ListOptions{PerPage: perPage, Page: 1},
		State:         gitlab.Ptr("all"),
		OrderBy:       gitlab.Ptr("created_at"),
		Sort:          gitlab.Ptr("desc"),
		CreatedAfter:  gitlab.Ptr(filter.Start),
		CreatedBefore: gitlab.Ptr(filter.End),
	}

	var result []provider.PullRequest
	for {
		mrs, resp, err := client.MergeRequests.ListProjectMergeRequests(pid, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing merge requests: %w", err)
		}

		page := make([]provider.PullRequest, 0, len(mrs))
		for _, mr := range mrs {
			if mr.CreatedAt == nil || !filter.Contains(*mr.CreatedAt) {
				continue
			}
			pr := provider.PullRequest{
				ID:           strconv.Itoa(mr.ID),
				Number:       mr.IID,
				Title:        mr.Title,
				Description:  mr.Description,
				State:        normalizeState(mr.State),
				CreatedAt:    *mr.CreatedAt,
				MergedAt:     mr.MergedAt,
				ClosedAt:     mr.ClosedAt,
				SourceBranch: mr.SourceBranch,
				TargetBranch: mr.TargetBranch,
				IsDraft:      mr.Draft,
				Comments:     mr.UserNotesCount,
				Labels:       append([]string{}, mr.Labels...),
			}
			if mr.UpdatedAt != nil {
				pr.UpdatedAt = *mr.UpdatedAt
			}
			if mr.Author != nil {
				pr.Author = toIdentity(mr.Author)
			}
			for _, r := range mr.Reviewers {
				pr.Reviewers = append(pr.Reviewers, toIdentity(r))
			}
			page = append(page, pr)
		}

		if err := p.fillDetails(ctx, client, pid, page); err != nil {
			return nil, err
		}
		result = append(result, page...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	if result == nil {
		result = []provider.PullRequest{}
	}
	return result, nil
}

func normalizeState(state string) string {
	switch state {
	case "opened":
		return provider.StateOpen
	case "merged":
		return provider.StateMerged
	default:
		// closed, locked
		return provider.StateClosed
	}
}

// fillDetails adds diff stats, approvals and the first review time to each merge request.
func (p *GitLabProvider) fillDetails(ctx context.Context, client *gitlab.Client, pid string, prs []provider.PullRequest) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i := range prs {
		g.Go(func() error {
			return fillDetail(gctx, client, pid, &prs[i])
		})
	}
	return g.Wait()
}

func fillDetail(ctx context.Context, client *gitlab.Client, pid string, pr *provider.PullRequest) error {
	changes, _, err := client.MergeRequests.GetMergeRequestChanges(pid, pr.Number, nil, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetching merge request %d changes: %w", pr.Number, err)
	}
	pr.ChangedFiles = len(changes.Changes)
	for _, c := range changes.Changes {
		added, deleted := countDiffLines(c.Diff)
		pr.Additions += added
		pr.Deletions += deleted
	}

	approvals, _, err := client.MergeRequestApprovals.GetConfiguration(pid, pr.Number, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetching merge request %d approvals: %w", pr.Number, err)
	}
	pr.ReviewCount = len(approvals.ApprovedBy)
	seen := make(map[string]bool, len(pr.Reviewers))
	for _, r := range pr.Reviewers {
		seen[r.Username] = true
	}
	for _, a := range approvals.ApprovedBy {
		if a.User != nil && !seen[a.User.Username] {
			seen[a.User.Username] = true
			pr.Reviewers = append(pr.Reviewers, toIdentity(a.User))
		}
	}
	sort.Slice(pr.Reviewers, func(i, j int) bool {
		return pr.Reviewers[i].Username < pr.Reviewers[j].Username
	})

	notes, _, err := client.Notes.ListMergeRequestNotes(pid, pr.Number, &gitlab.ListMergeRequestNotesOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("asc"),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("listing merge request %d notes: %w", pr.Number, err)
	}
	var firstReview *time.Time
	for _, n := range notes {
		if n.System || n.Author.Username == pr.Author.Username || n.CreatedAt == nil {
			continue
		}
		if firstReview == nil || n.CreatedAt.Before(*firstReview) {
			firstReview = n.CreatedAt
		}
	}

	pr.SetDurations(firstReview)
	return nil
}

// countDiffLines counts added and removed lines in a file's unified diff.
// GitLab sends hunks without file headers, so every line after the first
// "@@" that starts with + or - is content.
func countDiffLines(diff string) (added, deleted int) {
	inHunk := false
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk:
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			deleted++
		}
	}
	return added, deleted
}

func toIdentity(u *gitlab.BasicUser) provider.Identity {
	return provider.Identity{
		ID:       strconv.Itoa(u.ID),
		Name:     u.Name,
		Username: u.Username,
	}
}
