package dashboard

import (
	"github.com/drewdunne/gitdash/internal/provider"
	"github.com/drewdunne/gitdash/internal/session"
)

// State is a snapshot of everything the UI layer renders.
type State struct {
	Auth         session.Session        `json:"auth"`
	Repositories []provider.Repository  `json:"repositories"`
	PullRequests []provider.PullRequest `json:"pullRequests"`
	Loading      bool                   `json:"loading"`
	Error        string                 `json:"error,omitempty"`
}

// Redacted returns the state with the token masked.
func (s State) Redacted() State {
	s.Auth = s.Auth.Redacted()
	return s
}

func (s State) clone() State {
	s.Repositories = append([]provider.Repository{}, s.Repositories...)
	s.PullRequests = append([]provider.PullRequest{}, s.PullRequests...)
	return s
}
