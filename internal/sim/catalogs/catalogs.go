package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"catastrophe.ai/internal/game/model"
)

type Catalogs struct {
	Jobs JobCatalog
	Maps MapCatalog
}

type JobCatalog struct {
	Defs   []JobDef
	Digest string
}

type JobDef struct {
	Title      string  `json:"title"`
	ActionCost float64 `json:"action_cost"`
	Moves      int     `json:"moves"`
}

type MapCatalog struct {
	ByID   map[string]MapDef
	Digest string
}

// MapDef is a fixed board in the model.ParseMap legend.
type MapDef struct {
	ID   string   `json:"id"`
	Rows []string `json:"rows"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadJobs(filepath.Join(configDir, "jobs.json"), &c.Jobs); err != nil {
		return nil, err
	}
	if err := loadMaps(filepath.Join(configDir, "maps"), &c.Maps); err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveJobs turns the job definitions into a validated table.
func (c JobCatalog) ResolveJobs() (model.Jobs, error) {
	list := make([]*model.Job, 0, len(c.Defs))
	for _, d := range c.Defs {
		t, ok := model.ParseJobTitle(d.Title)
		if !ok {
			return nil, fmt.Errorf("jobs.json: unknown title %q", d.Title)
		}
		if d.Moves < 0 || d.ActionCost < 0 {
			return nil, fmt.Errorf("jobs.json: %s: negative moves or cost", d.Title)
		}
		list = append(list, &model.Job{Title: t, ActionCost: d.ActionCost, Moves: d.Moves})
	}
	jobs, err := model.ResolveJobs(list)
	if err != nil {
		return nil, fmt.Errorf("jobs.json: %w", err)
	}
	return jobs, nil
}

// Game builds a fresh game from map id.
func (c *Catalogs) Game(id string) (*model.Game, error) {
	def, ok := c.Maps.ByID[id]
	if !ok {
		return nil, fmt.Errorf("unknown map %q", id)
	}
	jobs, err := c.Jobs.ResolveJobs()
	if err != nil {
		return nil, err
	}
	g, err := model.ParseMap(def.Rows, jobs)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", id, err)
	}
	return g, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadJobs(path string, out *JobCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := json.Unmarshal(raw, &out.Defs); err != nil {
		return fmt.Errorf("jobs.json: %w", err)
	}
	for _, d := range out.Defs {
		if d.Title == "" {
			return fmt.Errorf("jobs.json: empty title")
		}
	}
	return nil
}

func loadMaps(dir string, out *MapCatalog) error {
	out.ByID = map[string]MapDef{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Maps are optional; the arena generator covers the default match.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		var m MapDef
		if err := json.Unmarshal(b, &m); err != nil {
			return fmt.Errorf("map %s: %w", filepath.Base(p), err)
		}
		if m.ID == "" {
			return fmt.Errorf("map %s: missing id", filepath.Base(p))
		}
		if len(m.Rows) == 0 {
			return fmt.Errorf("map %s: no rows", filepath.Base(p))
		}
		out.ByID[m.ID] = m
	}
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}
