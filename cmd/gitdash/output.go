package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/drewdunne/gitdash/internal/dashboard"
	"github.com/drewdunne/gitdash/internal/provider"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeStatus(w io.Writer, providerName string, st dashboard.State) {
	tw := newTable(w)
	auth := st.Auth.Redacted()
	fmt.Fprintf(tw, "Provider:\t%s\n", providerName)
	fmt.Fprintf(tw, "Authenticated:\t%t\n", auth.IsAuthenticated)
	if auth.Username != "" {
		fmt.Fprintf(tw, "User:\t%s\n", auth.Username)
	}
	if auth.Token != "" {
		fmt.Fprintf(tw, "Token:\t%s\n", auth.Token)
	}
	if !auth.UpdatedAt.IsZero() {
		fmt.Fprintf(tw, "Updated:\t%s\n", auth.UpdatedAt.Local().Format(time.RFC1123))
	}
	if st.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", st.Error)
	}
	tw.Flush()
}

func writeRepositories(w io.Writer, repos []provider.Repository) {
	if len(repos) == 0 {
		fmt.Fprintln(w, "No repositories")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tVISIBILITY\tBRANCH\tACTIVITY\tDESCRIPTION")
	for _, r := range repos {
		activity := r.LastActivityAt
		if activity == nil {
			activity = r.UpdatedAt
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.FullName, r.Visibility, r.DefaultBranch, formatDate(activity), truncate(deref(r.Description), 60))
	}
	tw.Flush()
}

func writePullRequests(w io.Writer, prs []provider.PullRequest) {
	if len(prs) == 0 {
		fmt.Fprintln(w, "No pull requests in range")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tSTATE\tAUTHOR\tCREATED\t+/-\tREVIEWS\tFIRST REVIEW\tMERGE\tTITLE")
	for _, pr := range prs {
		state := pr.State
		if pr.IsDraft {
			state += " (draft)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t+%d/-%d\t%d\t%s\t%s\t%s\n",
			pr.Number, state, pr.Author.Username, formatDate(&pr.CreatedAt),
			pr.Additions, pr.Deletions, pr.ReviewCount,
			formatHours(pr.TimeToFirstReview), formatHours(pr.TimeToMerge), truncate(pr.Title, 60))
	}
	tw.Flush()
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(provider.DateLayout)
}

func formatHours(h *float64) string {
	if h == nil {
		return "-"
	}
	return fmt.Sprintf("%.1fh", *h)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
