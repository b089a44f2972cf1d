package turn

import "catastrophe.ai/internal/game/model"

// Slot pairs a desired job with the unit that fills it. Change is set when the
// unit does not hold the job yet.
type Slot struct {
	Job    model.JobTitle
	Unit   *model.Unit
	Change bool
}

// SlotJobs assigns units (cat excluded by the caller) to the preference list,
// one slot per unit. Units already holding a slot's job claim it first, in
// roster order; the rest fill the remaining slots in order and are marked for
// a change. Slots beyond desired take overflow.
func SlotJobs(units []*model.Unit, desired []model.JobTitle, overflow model.JobTitle) []Slot {
	slots := make([]Slot, len(units))
	for i := range slots {
		slots[i].Job = overflow
		if i < len(desired) {
			slots[i].Job = desired[i]
		}
	}

	claimed := make([]bool, len(units))
	for i := range slots {
		for j, u := range units {
			if !claimed[j] && u.JobTitle() == slots[i].Job {
				slots[i].Unit = u
				claimed[j] = true
				break
			}
		}
	}

	next := 0
	for j, u := range units {
		if claimed[j] {
			continue
		}
		for slots[next].Unit != nil {
			next++
		}
		slots[next].Unit = u
		slots[next].Change = true
	}
	return slots
}
