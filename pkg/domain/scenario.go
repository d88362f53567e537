package domain

// Metadata holds the scenario-level fields owned by the editor shell.
type Metadata struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by,omitempty"`
}

// Scenario is a read-only snapshot of an editing session.
type Scenario struct {
	Metadata
	Steps         []Step   `json:"steps"`
	Choices       []Choice `json:"choices"`
	GeneralErrors []string `json:"general_errors,omitempty"`
}

// Step looks up a step of the snapshot by id.
func (s Scenario) Step(id string) (Step, bool) {
	for _, st := range s.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return Step{}, false
}

// ChoicesFrom returns the choices leaving stepID in insertion order.
func (s Scenario) ChoicesFrom(stepID string) []Choice {
	var out []Choice
	for _, c := range s.Choices {
		if c.SourceStepID == stepID {
			out = append(out, c)
		}
	}
	return out
}
