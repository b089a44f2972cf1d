package model

// Point is a tile coordinate. X grows east, Y grows south.
type Point struct {
	X int
	Y int
}

// Tile is one grid cell. Neighbor links are nil at the map edge.
type Tile struct {
	X int
	Y int

	North *Tile
	East  *Tile
	South *Tile
	West  *Tile

	Unit      *Unit
	Structure *Structure
}

func (t *Tile) Point() Point { return Point{X: t.X, Y: t.Y} }

// TileKey is the identity of a tile across snapshots.
func TileKey(t *Tile) Point { return t.Point() }

// IsPathable reports whether a unit may step onto t.
func (t *Tile) IsPathable() bool {
	if t == nil || t.Unit != nil {
		return false
	}
	return t.Structure == nil || t.Structure.Type.Passable()
}
