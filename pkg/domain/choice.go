package domain

// Choice is a directed, labeled edge from one step to another.
//
// Invariants (enforced by the graph model):
//   - at most MaxChoicesPerStep choices share a SourceStepID
//   - at most one choice per (SourceStepID, SourceSlot)
//   - at most one choice per (TargetStepID, TargetSlot)
//   - Label is never empty
type Choice struct {
	ID           string `json:"id"`
	SourceStepID string `json:"source"`
	TargetStepID string `json:"target"`
	SourceSlot   int    `json:"source_slot"`
	TargetSlot   int    `json:"target_slot"`
	Label        string `json:"label"`
}

// IsSelfLoop reports whether the choice points back at its own source.
func (c Choice) IsSelfLoop() bool {
	return c.SourceStepID == c.TargetStepID
}

// Touches reports whether the choice references stepID on either end.
func (c Choice) Touches(stepID string) bool {
	return c.SourceStepID == stepID || c.TargetStepID == stepID
}

// ValidSlot reports whether slot addresses one of the SlotCount ports.
func ValidSlot(slot int) bool {
	return slot >= 0 && slot < SlotCount
}
