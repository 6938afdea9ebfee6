package provider

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeFilter is returned when a time range cannot be used to scope a query.
var ErrInvalidTimeFilter = errors.New("invalid time filter")

// Pull request states, normalized across hosts.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateMerged = "merged"
)

// Repository represents a git repository as listed for the authenticated user.
type Repository struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	FullName       string     `json:"full_name"` // owner/repo
	Description    *string    `json:"description"`
	DefaultBranch  string     `json:"default_branch"`
	Visibility     string     `json:"visibility"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"` // GitLab
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`       // GitHub
}

// Identity is a user account on the hosting platform.
type Identity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// PullRequest represents a pull request (GitHub) or merge request (GitLab).
type PullRequest struct {
	ID           string     `json:"id"`
	Number       int        `json:"number"` // PR number (GitHub) or MR IID (GitLab)
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	State        string     `json:"state"` // open, closed, merged
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MergedAt     *time.Time `json:"merged_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	Author       Identity   `json:"author"`
	Reviewers    []Identity `json:"reviewers,omitempty"`
	SourceBranch string     `json:"source_branch"`
	TargetBranch string     `json:"target_branch"`
	IsDraft      bool       `json:"is_draft"`
	Comments     int        `json:"comments"`
	ReviewCount  int        `json:"review_count"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changed_files"`
	Labels       []string   `json:"labels"`

	// Derived durations in hours; nil when the event never happened.
	TimeToMerge       *float64 `json:"time_to_merge,omitempty"`
	TimeToFirstReview *float64 `json:"time_to_first_review,omitempty"`
}

// SetDurations fills the derived metrics from the PR's timestamps.
func (pr *PullRequest) SetDurations(firstReviewAt *time.Time) {
	pr.TimeToMerge = hoursSince(pr.CreatedAt, pr.MergedAt)
	pr.TimeToFirstReview = hoursSince(pr.CreatedAt, firstReviewAt)
}

func hoursSince(from time.Time, to *time.Time) *float64 {
	if to == nil || to.IsZero() || from.IsZero() {
		return nil
	}
	h := to.Sub(from).Hours()
	return &h
}

// TimeFilter scopes a pull request query to PRs created within [Start, End].
type TimeFilter struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DateLayout is the format accepted by ParseTimeFilter.
const DateLayout = "2006-01-02"

// ParseTimeFilter builds a filter from two calendar dates. The end date is
// inclusive, so End is moved to the last instant of that day.
func ParseTimeFilter(start, end string) (TimeFilter, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return TimeFilter{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidTimeFilter, start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return TimeFilter{}, fmt.Errorf("%w: end date %q: %v", ErrInvalidTimeFilter, end, err)
	}
	f := TimeFilter{Start: s, End: e.Add(24*time.Hour - time.Nanosecond)}
	if err := f.Validate(); err != nil {
		return TimeFilter{}, err
	}
	return f, nil
}

// Validate checks that the range is usable.
func (f TimeFilter) Validate() error {
	if f.Start.IsZero() || f.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidTimeFilter)
	}
	if f.Start.After(f.End) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidTimeFilter,
			f.Start.Format(time.RFC3339), f.End.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t falls within the range, both ends included.
func (f TimeFilter) Contains(t time.Time) bool {
	return !t.Before(f.Start) && !t.After(f.End)
}
