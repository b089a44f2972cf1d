package act

import (
	"catastrophe.ai/internal/game/grid"
	"catastrophe.ai/internal/game/model"
)

// MaxEnergy is the energy a unit holds after resting.
const MaxEnergy = 100

// CanAct reports whether u may still take its one gated action this turn.
func CanAct(u *model.Unit) bool {
	return u != nil && !u.Acted && u.Job != nil && u.Energy >= u.Job.ActionCost
}

// CanRest requires a missing-energy unit that has not acted, standing 4-adjacent
// to a shelter of its own side.
func CanRest(u *model.Unit) bool {
	if u == nil || u.Acted || u.Energy >= MaxEnergy {
		return false
	}
	for _, t := range grid.Neighbors(u.Tile) {
		s := t.Structure
		if s != nil && s.Type == model.Shelter && model.SameOwner(s.Owner, u.Owner) {
			return true
		}
	}
	return false
}

// CanConvert reports whether missionary u can claim neutral target. With
// checkRange the target must stand on a 4-neighbor of u.
func CanConvert(u, target *model.Unit, checkRange bool) bool {
	if u.JobTitle() != model.Missionary || !CanAct(u) {
		return false
	}
	if target == nil || target.Owner != nil {
		return false
	}
	return !checkRange || grid.Adjacent(u.Tile, target.Tile)
}

// CanChangeJob requires full energy, a different non-privileged job on both
// sides, and u within one square of its side's cat.
func CanChangeJob(u *model.Unit, job model.JobTitle) bool {
	if u == nil || u.Acted || u.Job == nil || u.Tile == nil {
		return false
	}
	if u.Job.Title == job || u.Job.Title.Privileged() || job.Privileged() {
		return false
	}
	if u.Energy < MaxEnergy {
		return false
	}
	if u.Owner == nil || u.Owner.Cat == nil || u.Owner.Cat.Tile == nil {
		return false
	}
	return grid.InSquareRadius(u.Owner.Cat.Tile.Point(), u.Tile.Point(), 1)
}
