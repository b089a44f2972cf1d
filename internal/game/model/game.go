package model

import "fmt"

// Game is one snapshot of the board. The authority owns and mutates it; bots
// must re-read it after every action round trip.
type Game struct {
	Turn          int
	CurrentPlayer string
	Width         int
	Height        int

	Tiles      []*Tile // row-major
	Players    []*Player
	Units      []*Unit
	Structures []*Structure
	Jobs       Jobs
}

// NewGame builds an empty, fully linked w x h grid.
func NewGame(w, h int, jobs Jobs) *Game {
	g := &Game{
		Width:  w,
		Height: h,
		Tiles:  make([]*Tile, w*h),
		Jobs:   jobs,
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Tiles[y*w+x] = &Tile{X: x, Y: y}
		}
	}
	for _, t := range g.Tiles {
		t.North = g.TileAt(t.X, t.Y-1)
		t.East = g.TileAt(t.X+1, t.Y)
		t.South = g.TileAt(t.X, t.Y+1)
		t.West = g.TileAt(t.X-1, t.Y)
	}
	return g
}

func (g *Game) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

func (g *Game) TileAt(x, y int) *Tile {
	if !g.InBounds(x, y) {
		return nil
	}
	return g.Tiles[y*g.Width+x]
}

// SpawnTiles returns the two edge tiles where new neutral humans appear:
// (0, (h-1)/2) and (w-1, h/2).
func (g *Game) SpawnTiles() [2]*Tile {
	return [2]*Tile{g.TileAt(0, (g.Height-1)/2), g.TileAt(g.Width-1, g.Height/2)}
}

// Resolve returns this snapshot's tile at the same coordinate as t.
func (g *Game) Resolve(t *Tile) *Tile {
	if t == nil {
		return nil
	}
	return g.TileAt(t.X, t.Y)
}

func (g *Game) AddPlayer(id, name string) *Player {
	p := &Player{ID: id, Name: name}
	g.Players = append(g.Players, p)
	return p
}

func (g *Game) Player(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Opponent returns the first player that is not id.
func (g *Game) Opponent(id string) *Player {
	for _, p := range g.Players {
		if p.ID != id {
			return p
		}
	}
	return nil
}

func (g *Game) Unit(id string) *Unit {
	for _, u := range g.Units {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// AddUnit places u at (x, y). A negative x leaves the unit off the board.
func (g *Game) AddUnit(u *Unit, x, y int) error {
	if x >= 0 {
		t := g.TileAt(x, y)
		if t == nil {
			return fmt.Errorf("unit %s: (%d,%d) out of bounds", u.ID, x, y)
		}
		if t.Unit != nil {
			return fmt.Errorf("unit %s: (%d,%d) occupied by %s", u.ID, x, y, t.Unit.ID)
		}
		t.Unit = u
		u.Tile = t
	}
	g.Units = append(g.Units, u)
	return nil
}

func (g *Game) AddStructure(s *Structure, x, y int) error {
	t := g.TileAt(x, y)
	if t == nil {
		return fmt.Errorf("structure %s: (%d,%d) out of bounds", s.ID, x, y)
	}
	if t.Structure != nil {
		return fmt.Errorf("structure %s: (%d,%d) already holds %s", s.ID, x, y, t.Structure.ID)
	}
	t.Structure = s
	s.Tile = t
	g.Structures = append(g.Structures, s)
	return nil
}

// MoveUnit relocates u onto to without any rule checks.
func (g *Game) MoveUnit(u *Unit, to *Tile) {
	if u.Tile != nil {
		u.Tile.Unit = nil
	}
	u.Tile = to
	if to != nil {
		to.Unit = u
	}
}

// UnitsOf returns units owned by p (nil p means neutral), filtered by job when
// job is non-empty, in roster order.
func (g *Game) UnitsOf(p *Player, job JobTitle) []*Unit {
	var out []*Unit
	for _, u := range g.Units {
		if !ownedBy(u.Owner, p) {
			continue
		}
		if job != "" && u.JobTitle() != job {
			continue
		}
		out = append(out, u)
	}
	return out
}

// StructuresOf returns placed structures of typ owned by p (nil p means neutral).
func (g *Game) StructuresOf(p *Player, typ StructureType) []*Structure {
	var out []*Structure
	for _, s := range g.Structures {
		if s.Tile == nil || s.Type != typ || !ownedBy(s.Owner, p) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func ownedBy(owner, p *Player) bool {
	if p == nil {
		return owner == nil
	}
	return SameOwner(owner, p)
}
