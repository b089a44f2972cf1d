package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"catastrophe.ai/internal/game/model"
)

type Tuning struct {
	Bot   Bot   `yaml:"bot"`
	Arena Arena `yaml:"arena"`
}

type Bot struct {
	// DesiredJobs is the job preference list, one slot per entry. Units beyond
	// the list take OverflowJob.
	DesiredJobs []string `yaml:"desired_jobs"`
	OverflowJob string   `yaml:"overflow_job"`

	RescueEnergyBelow float64 `yaml:"rescue_energy_below"`
	ContinueOnReject  bool    `yaml:"continue_on_reject"`
}

type Arena struct {
	Width         int   `yaml:"width"`
	Height        int   `yaml:"height"`
	Seed          int64 `yaml:"seed"`
	FreshHumans   int   `yaml:"fresh_humans"`
	NeutralHumans int   `yaml:"neutral_humans"`
	Walls         int   `yaml:"walls"`
	Roads         int   `yaml:"roads"`
	MaxTurns      int   `yaml:"max_turns"`
}

func Defaults() Tuning {
	return Tuning{
		Bot: Bot{
			DesiredJobs: []string{
				string(model.Missionary), string(model.Gatherer), string(model.Builder),
				string(model.Soldier), string(model.Missionary), string(model.Soldier),
				string(model.Soldier), string(model.Missionary), string(model.Gatherer),
			},
			OverflowJob:       string(model.Soldier),
			RescueEnergyBelow: 50,
			ContinueOnReject:  true,
		},
		Arena: Arena{
			Width:         16,
			Height:        11,
			Seed:          1,
			FreshHumans:   3,
			NeutralHumans: 8,
			Walls:         12,
			Roads:         6,
			MaxTurns:      60,
		},
	}
}

// Load overlays the YAML at path on Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	for _, j := range append([]string{t.Bot.OverflowJob}, t.Bot.DesiredJobs...) {
		jt, ok := model.ParseJobTitle(j)
		if !ok {
			return fmt.Errorf("bot: unknown job %q", j)
		}
		if jt.Privileged() {
			return fmt.Errorf("bot: %q cannot be slotted", j)
		}
	}
	a := t.Arena
	if a.Width < 4 || a.Height < 3 {
		return fmt.Errorf("arena: %dx%d too small", a.Width, a.Height)
	}
	if a.FreshHumans < 0 || a.NeutralHumans < 0 || a.Walls < 0 || a.Roads < 0 {
		return fmt.Errorf("arena: negative counts")
	}
	return nil
}

// JobList returns the preference list as titles. Call Validate first.
func (b Bot) JobList() (desired []model.JobTitle, overflow model.JobTitle) {
	for _, j := range b.DesiredJobs {
		jt, _ := model.ParseJobTitle(j)
		desired = append(desired, jt)
	}
	overflow, _ = model.ParseJobTitle(b.OverflowJob)
	return desired, overflow
}
