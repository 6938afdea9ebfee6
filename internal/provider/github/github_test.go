package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drewdunne/gitdash/internal/provider"
)

func TestGitHubProvider_Name(t *testing.T) {
	p := New("test-token")
	if p.Name() != "github" {
		t.Errorf("Name() = %q, want %q", p.Name(), "github")
	}
}

func TestGitHubProvider_ValidateToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing or incorrect authorization header")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 1, "login": "octocat"})
	}))
	defer server.Close()

	p := New("", WithBaseURL(server.URL))
	p.SetToken("test-token")

	v := p.ValidateToken(context.Background())
	if !v.OK() {
		t.Fatalf("ValidateToken() failure = %v, err = %v", v.Failure, v.Err)
	}
	if v.Username != "octocat" {
		t.Errorf("Username = %q, want %q", v.Username, "octocat")
	}
}

func TestGitHubProvider_ValidateToken_Invalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Bad credentials"})
	}))
	defer server.Close()

	p := New("bad-token", WithBaseURL(server.URL))
	v := p.ValidateToken(context.Background())
	if v.Failure != provider.FailureInvalid {
		t.Errorf("Failure = %v, want %v", v.Failure, provider.FailureInvalid)
	}
	if v.Message() != "Invalid token" {
		t.Errorf("Message() = %q, want %q", v.Message(), "Invalid token")
	}
}

func TestGitHubProvider_ValidateToken_Expired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(expirationHeader, "2024-01-01 00:00:00 UTC")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Bad credentials"})
	}))
	defer server.Close()

	now := func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	p := New("old-token", WithBaseURL(server.URL), WithClock(now))
	v := p.ValidateToken(context.Background())
	if v.Failure != provider.FailureExpired {
		t.Errorf("Failure = %v, want %v", v.Failure, provider.FailureExpired)
	}
}

func TestGitHubProvider_ValidateToken_Network(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p := New("test-token", WithBaseURL(url))
	v := p.ValidateToken(context.Background())
	if v.Failure != provider.FailureNetwork {
		t.Errorf("Failure = %v, want %v", v.Failure, provider.FailureNetwork)
	}
	if v.Message() == "" {
		t.Error("Message() is empty for a network failure")
	}
}

func TestGitHubProvider_GetRepositories(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/repos" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("sort") != "updated" {
			t.Errorf("sort = %q, want %q", r.URL.Query().Get("sort"), "updated")
		}
		if r.URL.Query().Get("page") == "" {
			w.Header().Set("Link", `<`+server.URL+`/user/repos?page=2>; rel="next"`)
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{
					"id":             123,
					"name":           "repo",
					"full_name":      "owner/repo",
					"description":    "A repo",
					"default_branch": "main",
					"visibility":     "public",
					"updated_at":     "2024-05-01T10:00:00Z",
				},
			})
			return
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 124, "name": "secret", "full_name": "owner/secret", "private": true, "default_branch": "trunk"},
		})
	}))
	defer server.Close()

	p := New("test-token", WithBaseURL(server.URL))
	repos, err := p.GetRepositories(context.Background())
	if err != nil {
		t.Fatalf("GetRepositories() error = %v", err)
	}

	if len(repos) != 2 {
		t.Fatalf("GetRepositories() returned %d repos, want 2", len(repos))
	}
	if repos[0].ID != "123" {
		t.Errorf("repos[0].ID = %q, want %q", repos[0].ID, "123")
	}
	if repos[0].Description == nil || *repos[0].Description != "A repo" {
		t.Errorf("repos[0].Description = %v, want %q", repos[0].Description, "A repo")
	}
	if repos[0].UpdatedAt == nil {
		t.Error("repos[0].UpdatedAt is nil")
	}
	if repos[1].Description != nil {
		t.Errorf("repos[1].Description = %q, want nil", *repos[1].Description)
	}
	if repos[1].Visibility != "private" {
		t.Errorf("repos[1].Visibility = %q, want %q", repos[1].Visibility, "private")
	}
}

func TestGitHubProvider_GetRepositories_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := New("test-token", WithBaseURL(server.URL))
	if _, err := p.GetRepositories(context.Background()); err == nil {
		t.Error("GetRepositories() expected error, got nil")
	}
}

func TestGitHubProvider_GetPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "all" {
			t.Errorf("state = %q, want %q", r.URL.Query().Get("state"), "all")
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"number": 3, "created_at": "2024-02-10T00:00:00Z"},
			{"number": 2, "created_at": "2024-01-15T00:00:00Z"},
			{"number": 1, "created_at": "2023-12-01T00:00:00Z"},
		})
	})
	mux.HandleFunc("/repos/owner/repo/pulls/2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":              999,
			"number":          2,
			"title":           "Test PR",
			"body":            "Description",
			"state":           "closed",
			"draft":           false,
			"created_at":      "2024-01-15T00:00:00Z",
			"updated_at":      "2024-01-16T00:00:00Z",
			"merged_at":       "2024-01-16T12:00:00Z",
			"closed_at":       "2024-01-16T12:00:00Z",
			"head":            map[string]string{"ref": "feature"},
			"base":            map[string]string{"ref": "main"},
			"user":            map[string]interface{}{"id": 7, "login": "author"},
			"comments":        2,
			"review_comments": 3,
			"additions":       10,
			"deletions":       4,
			"changed_files":   2,
			"labels":          []map[string]string{{"name": "bug"}},
			"requested_reviewers": []map[string]interface{}{
				{"id": 9, "login": "carol"},
			},
		})
	})
	mux.HandleFunc("/repos/owner/repo/pulls/2/reviews", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "user": map[string]interface{}{"id": 8, "login": "bob"}, "submitted_at": "2024-01-15T06:00:00Z"},
			{"id": 2, "user": map[string]interface{}{"id": 8, "login": "bob"}, "submitted_at": "2024-01-16T06:00:00Z"},
		})
	})
	mux.HandleFunc("/repos/owner/repo/pulls/3", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("fetched PR 3 outside the filter")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	filter, err := provider.ParseTimeFilter("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("ParseTimeFilter() error = %v", err)
	}

	p := New("test-token", WithBaseURL(server.URL))
	prs, err := p.GetPullRequests(context.Background(), "owner", "repo", filter)
	if err != nil {
		t.Fatalf("GetPullRequests() error = %v", err)
	}

	if len(prs) != 1 {
		t.Fatalf("GetPullRequests() returned %d PRs, want 1", len(prs))
	}
	pr := prs[0]
	if pr.State != provider.StateMerged {
		t.Errorf("State = %q, want %q", pr.State, provider.StateMerged)
	}
	if pr.Comments != 5 {
		t.Errorf("Comments = %d, want 5", pr.Comments)
	}
	if pr.ReviewCount != 2 {
		t.Errorf("ReviewCount = %d, want 2", pr.ReviewCount)
	}
	if len(pr.Reviewers) != 2 || pr.Reviewers[0].Username != "bob" || pr.Reviewers[1].Username != "carol" {
		t.Errorf("Reviewers = %+v, want bob and carol", pr.Reviewers)
	}
	if pr.TimeToMerge == nil || *pr.TimeToMerge != 36 {
		t.Errorf("TimeToMerge = %v, want 36", pr.TimeToMerge)
	}
	if pr.TimeToFirstReview == nil || *pr.TimeToFirstReview != 6 {
		t.Errorf("TimeToFirstReview = %v, want 6", pr.TimeToFirstReview)
	}
	if len(pr.Labels) != 1 || pr.Labels[0] != "bug" {
		t.Errorf("Labels = %v, want [bug]", pr.Labels)
	}
	if pr.SourceBranch != "feature" {
		t.Errorf("SourceBranch = %q, want %q", pr.SourceBranch, "feature")
	}
}

func TestGitHubProvider_GetPullRequests_InvalidFilter(t *testing.T) {
	p := New("test-token")
	_, err := p.GetPullRequests(context.Background(), "owner", "repo", provider.TimeFilter{})
	if err == nil {
		t.Error("GetPullRequests() expected error for empty filter, got nil")
	}
}
