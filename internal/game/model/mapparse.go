package model

import "fmt"

// ParseMap builds a two-player game from an ASCII map, one string per row.
//
//	.  empty          #  wall            =  road
//	S  p0 shelter     s  p1 shelter
//	C  p0 cat         c  p1 cat
//	M  p0 missionary  m  p1 missionary
//	H  p0 fresh human h  p1 fresh human
//	G  p0 gatherer    O  p0 soldier      B  p0 builder
//	n  neutral fresh human
//
// Units get ids u1, u2, ... in row-major order, full energy, and their job's
// moves. Players are p0 ("us") and p1 ("them"); p0 moves first.
func ParseMap(rows []string, jobs Jobs) (*Game, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty map")
	}
	w, h := len(rows[0]), len(rows)
	g := NewGame(w, h, jobs)
	p0 := g.AddPlayer("p0", "us")
	p1 := g.AddPlayer("p1", "them")
	g.CurrentPlayer = p0.ID

	units := map[byte]struct {
		owner *Player
		job   JobTitle
	}{
		'C': {p0, CatOverlord}, 'c': {p1, CatOverlord},
		'M': {p0, Missionary}, 'm': {p1, Missionary},
		'H': {p0, FreshHuman}, 'h': {p1, FreshHuman},
		'G': {p0, Gatherer}, 'O': {p0, Soldier}, 'B': {p0, Builder},
		'n': {nil, FreshHuman},
	}
	structures := map[byte]struct {
		owner *Player
		typ   StructureType
	}{
		'#': {nil, Wall}, '=': {nil, Road},
		'S': {p0, Shelter}, 's': {p1, Shelter},
	}

	nextUnit, nextStructure := 1, 1
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d: width %d, want %d", y, len(row), w)
		}
		for x := 0; x < w; x++ {
			ch := row[x]
			if ch == '.' {
				continue
			}
			if def, ok := units[ch]; ok {
				job, ok := jobs.Lookup(def.job)
				if !ok {
					return nil, fmt.Errorf("(%d,%d): job %q not resolved", x, y, def.job)
				}
				u := &Unit{
					ID:     fmt.Sprintf("u%d", nextUnit),
					Energy: 100,
					Moves:  job.Moves,
					Job:    job,
					Owner:  def.owner,
				}
				nextUnit++
				if err := g.AddUnit(u, x, y); err != nil {
					return nil, err
				}
				if def.job == CatOverlord {
					def.owner.Cat = u
				}
				continue
			}
			if def, ok := structures[ch]; ok {
				s := &Structure{ID: fmt.Sprintf("s%d", nextStructure), Type: def.typ, Owner: def.owner}
				nextStructure++
				if err := g.AddStructure(s, x, y); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("(%d,%d): unknown map symbol %q", x, y, ch)
		}
	}
	return g, nil
}

// MustParseMap is ParseMap with DefaultJobs for tests and fixtures.
func MustParseMap(rows ...string) *Game {
	g, err := ParseMap(rows, DefaultJobs())
	if err != nil {
		panic(err)
	}
	return g
}
