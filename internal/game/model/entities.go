package model

type StructureType string

const (
	Shelter  StructureType = "shelter"
	Road     StructureType = "road"
	Wall     StructureType = "wall"
	Monument StructureType = "monument"
	Neutral  StructureType = "neutral"
)

func ParseStructureType(s string) (StructureType, bool) {
	switch t := StructureType(s); t {
	case Shelter, Road, Wall, Monument, Neutral:
		return t, true
	}
	return "", false
}

// Passable reports whether units can stand on a tile holding this structure.
func (t StructureType) Passable() bool { return t == Road || t == Shelter }

type Structure struct {
	ID    string
	Type  StructureType
	Owner *Player
	Tile  *Tile
}

type Player struct {
	ID   string
	Name string
	Cat  *Unit
}

type Unit struct {
	ID     string
	Energy float64 // 0..100
	Moves  int
	Acted  bool
	Job    *Job
	Tile   *Tile
	Owner  *Player
}

// JobTitle returns "" for a unit without a job.
func (u *Unit) JobTitle() JobTitle {
	if u == nil || u.Job == nil {
		return ""
	}
	return u.Job.Title
}

// SameOwner compares owners by id. Two neutral sides are not the same owner.
func SameOwner(a, b *Player) bool {
	return a != nil && b != nil && a.ID == b.ID
}
