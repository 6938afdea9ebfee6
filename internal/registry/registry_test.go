package registry

import (
	"testing"

	"github.com/drewdunne/gitdash/internal/config"
)

func TestRegistry_Get(t *testing.T) {
	reg := New(config.DefaultConfig())

	gh := reg.Get("github")
	if gh == nil {
		t.Fatal("Get(github) returned nil")
	}
	if gh.Name() != "github" {
		t.Errorf("github provider name = %q, want %q", gh.Name(), "github")
	}

	gl := reg.Get("gitlab")
	if gl == nil {
		t.Fatal("Get(gitlab) returned nil")
	}
	if gl.Name() != "gitlab" {
		t.Errorf("gitlab provider name = %q, want %q", gl.Name(), "gitlab")
	}

	unknown := reg.Get("unknown")
	if unknown != nil {
		t.Error("Get(unknown) should return nil")
	}
}

func TestRegistry_List(t *testing.T) {
	cfg := &config.Config{
		Providers: config.ProvidersConfig{
			GitLab: config.HostConfig{BaseURL: "https://gitlab.example.com"},
		},
	}

	names := New(cfg).List()

	if len(names) != 2 {
		t.Fatalf("List() returned %d providers, want 2", len(names))
	}
	if names[0] != "github" || names[1] != "gitlab" {
		t.Errorf("List() = %v, want [github gitlab]", names)
	}
}
