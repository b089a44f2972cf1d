package model

import "fmt"

// JobTitle is the closed set of jobs a unit can hold.
type JobTitle string

const (
	CatOverlord JobTitle = "cat overlord"
	FreshHuman  JobTitle = "fresh human"
	Missionary  JobTitle = "missionary"
	Soldier     JobTitle = "soldier"
	Builder     JobTitle = "builder"
	Gatherer    JobTitle = "gatherer"
)

var AllJobTitles = []JobTitle{CatOverlord, FreshHuman, Missionary, Soldier, Builder, Gatherer}

func ParseJobTitle(s string) (JobTitle, bool) {
	for _, t := range AllJobTitles {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Privileged reports whether units can never change into or away from this job.
func (t JobTitle) Privileged() bool { return t == CatOverlord }

type Job struct {
	Title      JobTitle
	ActionCost float64
	Moves      int
}

// Jobs is a validated title -> job table, resolved once per game.
type Jobs map[JobTitle]*Job

// ResolveJobs indexes jobs by title and fails if any known title is missing
// or a title is unknown.
func ResolveJobs(list []*Job) (Jobs, error) {
	out := make(Jobs, len(list))
	for _, j := range list {
		if j == nil {
			continue
		}
		if _, ok := ParseJobTitle(string(j.Title)); !ok {
			return nil, fmt.Errorf("unknown job title %q", j.Title)
		}
		if _, dup := out[j.Title]; dup {
			return nil, fmt.Errorf("duplicate job title %q", j.Title)
		}
		out[j.Title] = j
	}
	for _, t := range AllJobTitles {
		if _, ok := out[t]; !ok {
			return nil, fmt.Errorf("missing job %q", t)
		}
	}
	return out, nil
}

func (j Jobs) Lookup(t JobTitle) (*Job, bool) {
	job, ok := j[t]
	return job, ok
}

// DefaultJobs mirrors configs/jobs.json.
func DefaultJobs() Jobs {
	jobs, _ := ResolveJobs([]*Job{
		{Title: CatOverlord, ActionCost: 10, Moves: 2},
		{Title: FreshHuman, ActionCost: 10, Moves: 2},
		{Title: Missionary, ActionCost: 75, Moves: 2},
		{Title: Soldier, ActionCost: 25, Moves: 2},
		{Title: Builder, ActionCost: 25, Moves: 1},
		{Title: Gatherer, ActionCost: 20, Moves: 2},
	})
	return jobs
}
