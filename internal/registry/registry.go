package registry

import (
	"sort"

	"github.com/drewdunne/gitdash/internal/config"
	"github.com/drewdunne/gitdash/internal/provider"
	"github.com/drewdunne/gitdash/internal/provider/github"
	"github.com/drewdunne/gitdash/internal/provider/gitlab"
)

// Registry manages provider instances.
type Registry struct {
	providers map[string]provider.Provider
}

// New creates a provider registry from config. Providers start without a
// token; the session supplies it on login or restore.
func New(cfg *config.Config) *Registry {
	r := &Registry{
		providers: make(map[string]provider.Provider),
	}

	var ghOpts []github.Option
	if u := cfg.Providers.GitHub.BaseURL; u != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(u))
	}
	r.providers["github"] = github.New("", ghOpts...)

	var glOpts []gitlab.Option
	if u := cfg.Providers.GitLab.BaseURL; u != "" {
		glOpts = append(glOpts, gitlab.WithBaseURL(u))
	}
	r.providers["gitlab"] = gitlab.New("", glOpts...)

	return r
}

// Get returns the provider for the given name, or nil if not configured.
func (r *Registry) Get(name string) provider.Provider {
	return r.providers[name]
}

// List returns all configured provider names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
