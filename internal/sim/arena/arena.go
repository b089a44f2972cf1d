// Package arena generates practice boards. Boards are point-symmetric so both
// sides start from equivalent positions.
package arena

import (
	"fmt"
	"sort"

	"catastrophe.ai/internal/game/model"
	"catastrophe.ai/internal/sim/tuning"
)

const (
	layerWall = iota + 1
	layerRoad
	layerNeutral
)

type builder struct {
	g        *model.Game
	reserved map[model.Point]bool
	units    int
	structs  int
}

// Generate builds a two-player board from cfg. The same cfg always yields the
// same board.
func Generate(cfg tuning.Arena, jobs model.Jobs) (*model.Game, error) {
	if cfg.Width < 4 || cfg.Height < 3 {
		return nil, fmt.Errorf("arena %dx%d too small", cfg.Width, cfg.Height)
	}
	b := &builder{
		g:        model.NewGame(cfg.Width, cfg.Height, jobs),
		reserved: map[model.Point]bool{},
	}
	p0 := b.g.AddPlayer("p0", "us")
	p1 := b.g.AddPlayer("p1", "them")
	b.g.CurrentPlayer = p0.ID

	for _, sp := range b.g.SpawnTiles() {
		b.reserved[sp.Point()] = true
	}

	// Home corner: shelter, cat beside it, fresh humans filling outward.
	home := []model.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 1}, {X: 3, Y: 2}, {X: 1, Y: 3}, {X: 2, Y: 3}, {X: 3, Y: 3}}
	if cfg.FreshHumans > len(home)-2 {
		return nil, fmt.Errorf("arena: at most %d fresh humans", len(home)-2)
	}
	for _, p := range []*model.Player{p0, p1} {
		at := func(pt model.Point) model.Point {
			if p == p1 {
				return b.mirror(pt)
			}
			return pt
		}
		if err := b.structure(model.Shelter, p, at(model.Point{X: 0, Y: 1})); err != nil {
			return nil, err
		}
		cat, err := b.unit(model.CatOverlord, p, at(home[0]))
		if err != nil {
			return nil, err
		}
		p.Cat = cat
		for i := 0; i < cfg.FreshHumans; i++ {
			if _, err := b.unit(model.FreshHuman, p, at(home[1+i])); err != nil {
				return nil, err
			}
		}
		for _, pt := range home {
			b.reserved[at(pt)] = true
		}
		b.reserved[at(model.Point{X: 0, Y: 1})] = true
	}

	for i, pt := range b.pick(cfg.Seed, layerWall, cfg.Walls) {
		if err := b.mirrored(pt, func(q model.Point) error {
			return b.structure(model.Wall, nil, q)
		}); err != nil {
			return nil, fmt.Errorf("wall %d: %w", i, err)
		}
	}
	for i, pt := range b.pick(cfg.Seed, layerRoad, cfg.Roads) {
		if err := b.mirrored(pt, func(q model.Point) error {
			return b.structure(model.Road, nil, q)
		}); err != nil {
			return nil, fmt.Errorf("road %d: %w", i, err)
		}
	}
	for i, pt := range b.pick(cfg.Seed, layerNeutral, cfg.NeutralHumans) {
		if err := b.mirrored(pt, func(q model.Point) error {
			_, err := b.unit(model.FreshHuman, nil, q)
			return err
		}); err != nil {
			return nil, fmt.Errorf("neutral %d: %w", i, err)
		}
	}
	return b.g, nil
}

func (b *builder) mirror(p model.Point) model.Point {
	return model.Point{X: b.g.Width - 1 - p.X, Y: b.g.Height - 1 - p.Y}
}

func (b *builder) mirrored(p model.Point, place func(model.Point) error) error {
	if err := place(p); err != nil {
		return err
	}
	if q := b.mirror(p); q != p {
		return place(q)
	}
	return nil
}

// pick draws ceil(n/2) free, unreserved tiles from the left half by lowest
// hash, reserving each tile and its mirror image.
func (b *builder) pick(seed int64, layer, n int) []model.Point {
	type cand struct {
		p model.Point
		h uint64
	}
	var cands []cand
	for y := 0; y < b.g.Height; y++ {
		for x := 0; x < (b.g.Width+1)/2; x++ {
			p := model.Point{X: x, Y: y}
			if b.reserved[p] || b.reserved[b.mirror(p)] {
				continue
			}
			if t := b.g.TileAt(x, y); t.Unit != nil || t.Structure != nil {
				continue
			}
			cands = append(cands, cand{p: p, h: hash3(seed, x, y, layer)})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].h < cands[j].h })

	want := (n + 1) / 2
	var out []model.Point
	for _, c := range cands {
		if len(out) == want {
			break
		}
		if b.reserved[c.p] || b.reserved[b.mirror(c.p)] {
			continue
		}
		b.reserved[c.p] = true
		b.reserved[b.mirror(c.p)] = true
		out = append(out, c.p)
	}
	return out
}

func (b *builder) unit(job model.JobTitle, owner *model.Player, at model.Point) (*model.Unit, error) {
	j, ok := b.g.Jobs.Lookup(job)
	if !ok {
		return nil, fmt.Errorf("job %q not resolved", job)
	}
	b.units++
	u := &model.Unit{
		ID:     fmt.Sprintf("u%d", b.units),
		Energy: 100,
		Moves:  j.Moves,
		Job:    j,
		Owner:  owner,
	}
	if err := b.g.AddUnit(u, at.X, at.Y); err != nil {
		return nil, err
	}
	return u, nil
}

func (b *builder) structure(typ model.StructureType, owner *model.Player, at model.Point) error {
	b.structs++
	return b.g.AddStructure(&model.Structure{ID: fmt.Sprintf("s%d", b.structs), Type: typ, Owner: owner}, at.X, at.Y)
}
