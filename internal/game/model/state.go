package model

import (
	"fmt"

	"catastrophe.ai/internal/protocol"
)

// State encodes g for the wire.
func (g *Game) State() protocol.GameState {
	st := protocol.GameState{
		Turn:          g.Turn,
		CurrentPlayer: g.CurrentPlayer,
		Width:         g.Width,
		Height:        g.Height,
		Players:       make([]protocol.PlayerState, 0, len(g.Players)),
		Jobs:          make([]protocol.JobState, 0, len(g.Jobs)),
		Units:         make([]protocol.UnitState, 0, len(g.Units)),
		Structures:    make([]protocol.StructureState, 0, len(g.Structures)),
	}
	for _, p := range g.Players {
		ps := protocol.PlayerState{ID: p.ID, Name: p.Name}
		if p.Cat != nil {
			ps.CatID = p.Cat.ID
		}
		st.Players = append(st.Players, ps)
	}
	for _, t := range AllJobTitles {
		if j, ok := g.Jobs.Lookup(t); ok {
			st.Jobs = append(st.Jobs, protocol.JobState{Title: string(j.Title), ActionCost: j.ActionCost, Moves: j.Moves})
		}
	}
	for _, u := range g.Units {
		us := protocol.UnitState{
			ID:     u.ID,
			Job:    string(u.JobTitle()),
			Energy: u.Energy,
			Moves:  u.Moves,
			Acted:  u.Acted,
		}
		if u.Owner != nil {
			us.Owner = u.Owner.ID
		}
		if u.Tile != nil {
			us.Pos = &[2]int{u.Tile.X, u.Tile.Y}
		}
		st.Units = append(st.Units, us)
	}
	for _, s := range g.Structures {
		if s.Tile == nil {
			continue
		}
		ss := protocol.StructureState{ID: s.ID, Type: string(s.Type), Pos: [2]int{s.Tile.X, s.Tile.Y}}
		if s.Owner != nil {
			ss.Owner = s.Owner.ID
		}
		st.Structures = append(st.Structures, ss)
	}
	return st
}

// FromState decodes a wire snapshot into a fresh, fully linked Game.
func FromState(st protocol.GameState) (*Game, error) {
	if st.Width <= 0 || st.Height <= 0 {
		return nil, fmt.Errorf("state: bad dimensions %dx%d", st.Width, st.Height)
	}
	list := make([]*Job, 0, len(st.Jobs))
	for _, js := range st.Jobs {
		list = append(list, &Job{Title: JobTitle(js.Title), ActionCost: js.ActionCost, Moves: js.Moves})
	}
	jobs, err := ResolveJobs(list)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}

	g := NewGame(st.Width, st.Height, jobs)
	g.Turn = st.Turn
	g.CurrentPlayer = st.CurrentPlayer
	for _, ps := range st.Players {
		g.AddPlayer(ps.ID, ps.Name)
	}

	owner := func(id string) (*Player, error) {
		if id == "" {
			return nil, nil
		}
		p := g.Player(id)
		if p == nil {
			return nil, fmt.Errorf("state: unknown player %q", id)
		}
		return p, nil
	}

	for _, us := range st.Units {
		job, ok := jobs.Lookup(JobTitle(us.Job))
		if !ok {
			return nil, fmt.Errorf("state: unit %s: unknown job %q", us.ID, us.Job)
		}
		p, err := owner(us.Owner)
		if err != nil {
			return nil, err
		}
		u := &Unit{ID: us.ID, Energy: us.Energy, Moves: us.Moves, Acted: us.Acted, Job: job, Owner: p}
		x, y := -1, -1
		if us.Pos != nil {
			x, y = us.Pos[0], us.Pos[1]
		}
		if err := g.AddUnit(u, x, y); err != nil {
			return nil, fmt.Errorf("state: %w", err)
		}
	}
	for _, ss := range st.Structures {
		typ, ok := ParseStructureType(ss.Type)
		if !ok {
			return nil, fmt.Errorf("state: structure %s: unknown type %q", ss.ID, ss.Type)
		}
		p, err := owner(ss.Owner)
		if err != nil {
			return nil, err
		}
		if err := g.AddStructure(&Structure{ID: ss.ID, Type: typ, Owner: p}, ss.Pos[0], ss.Pos[1]); err != nil {
			return nil, fmt.Errorf("state: %w", err)
		}
	}
	for _, ps := range st.Players {
		if ps.CatID == "" {
			continue
		}
		cat := g.Unit(ps.CatID)
		if cat == nil {
			return nil, fmt.Errorf("state: player %s: unknown cat %q", ps.ID, ps.CatID)
		}
		g.Player(ps.ID).Cat = cat
	}
	return g, nil
}
