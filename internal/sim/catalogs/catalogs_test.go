package catalogs

import (
	"os"
	"path/filepath"
	"testing"

	"catastrophe.ai/internal/game/model"
)

func TestLoad_RepoConfigs(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Jobs.Digest == "" || c.Maps.Digest == "" {
		t.Fatalf("missing digests")
	}
	jobs, err := c.Jobs.ResolveJobs()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for title, want := range model.DefaultJobs() {
		got, ok := jobs.Lookup(title)
		if !ok {
			t.Fatalf("missing %s", title)
		}
		if *got != *want {
			t.Fatalf("%s: got %+v want %+v", title, *got, *want)
		}
	}
	for id := range c.Maps.ByID {
		g, err := c.Game(id)
		if err != nil {
			t.Fatalf("map %s: %v", id, err)
		}
		for _, p := range g.Players {
			if p.Cat == nil {
				t.Fatalf("map %s: player %s has no cat", id, p.ID)
			}
		}
	}
	if _, err := c.Game("nope"); err == nil {
		t.Fatalf("expected unknown map error")
	}
}

func TestLoad_MissingJobTitle(t *testing.T) {
	dir := t.TempDir()
	raw := `[{"title":"missionary","action_cost":75,"moves":2}]`
	if err := os.WriteFile(filepath.Join(dir, "jobs.json"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Maps.ByID) != 0 {
		t.Fatalf("maps=%v", c.Maps.ByID)
	}
	if _, err := c.Jobs.ResolveJobs(); err == nil {
		t.Fatalf("expected missing job error")
	}
}

func TestLoad_UnknownTitle(t *testing.T) {
	dir := t.TempDir()
	raw := `[{"title":"wizard","action_cost":1,"moves":9}]`
	if err := os.WriteFile(filepath.Join(dir, "jobs.json"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.Jobs.ResolveJobs(); err == nil {
		t.Fatalf("expected unknown title error")
	}
}
