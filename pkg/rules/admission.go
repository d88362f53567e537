// Package rules implements the connection rule engine: the single predicate
// consulted before a choice is admitted into a scenario graph.
package rules

import (
	"github.com/aretw0/sceneweaver/pkg/domain"
)

// Proposal describes an edge the user is trying to create.
type Proposal struct {
	SourceStepID string
	SourceSlot   int
	TargetStepID string
	TargetSlot   int
}

// Admit checks a proposal against the existing choice set.
// It returns nil when the edge may be created, or one of the domain
// rejection sentinels otherwise. Checks run in a fixed order:
//  1. fan-out limit of the source step
//  2. slot range
//  3. output port occupancy
//  4. input port occupancy
//
// Self-loops are not rejected.
func Admit(existing []domain.Choice, p Proposal) error {
	if FanOut(existing, p.SourceStepID) >= domain.MaxChoicesPerStep {
		return domain.ErrFanOutLimit
	}
	if !domain.ValidSlot(p.SourceSlot) || !domain.ValidSlot(p.TargetSlot) {
		return domain.ErrSlotOutOfRange
	}
	for _, c := range existing {
		if c.SourceStepID == p.SourceStepID && c.SourceSlot == p.SourceSlot {
			return domain.ErrOutputPortOccupied
		}
	}
	for _, c := range existing {
		if c.TargetStepID == p.TargetStepID && c.TargetSlot == p.TargetSlot {
			return domain.ErrInputPortOccupied
		}
	}
	return nil
}

// FanOut counts the choices leaving stepID.
func FanOut(existing []domain.Choice, stepID string) int {
	n := 0
	for _, c := range existing {
		if c.SourceStepID == stepID {
			n++
		}
	}
	return n
}

// FreeOutputSlot returns the lowest output slot of stepID with no choice.
func FreeOutputSlot(existing []domain.Choice, stepID string) (int, bool) {
	return firstFree(existing, func(c domain.Choice) (string, int) { return c.SourceStepID, c.SourceSlot }, stepID, 0)
}

// FreeInputSlot returns the first free input slot of stepID, probing
// round-robin from the preferred slot.
func FreeInputSlot(existing []domain.Choice, stepID string, preferred int) (int, bool) {
	return firstFree(existing, func(c domain.Choice) (string, int) { return c.TargetStepID, c.TargetSlot }, stepID, preferred)
}

func firstFree(existing []domain.Choice, port func(domain.Choice) (string, int), stepID string, start int) (int, bool) {
	var used [domain.SlotCount]bool
	for _, c := range existing {
		id, slot := port(c)
		if id == stepID && domain.ValidSlot(slot) {
			used[slot] = true
		}
	}
	if start < 0 {
		start = 0
	}
	for i := 0; i < domain.SlotCount; i++ {
		slot := (start + i) % domain.SlotCount
		if !used[slot] {
			return slot, true
		}
	}
	return 0, false
}
