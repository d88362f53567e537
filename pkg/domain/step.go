package domain

// Position is a 2D canvas coordinate (top-left corner of a step).
// It is cosmetic only and never sent to the store.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Location is a map point attached to a step. The editor treats it as an
// opaque passthrough supplied by the map picker.
type Location struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Latitude    float64 `json:"latitude" yaml:"latitude"`
	Longitude   float64 `json:"longitude" yaml:"longitude"`
}

// Step is a node of the scenario graph.
// A Step with no outgoing Choices is a terminal step.
type Step struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    *Location `json:"location,omitempty"`
	Position    Position  `json:"position"`

	// Errors holds validation messages reported by the store after a
	// rejected save. It is transient and never persisted.
	Errors []string `json:"errors,omitempty"`
}

// HasErrors reports whether the step carries validation messages.
func (s Step) HasErrors() bool {
	return len(s.Errors) > 0
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	c := s
	if s.Location != nil {
		loc := *s.Location
		c.Location = &loc
	}
	if s.Errors != nil {
		c.Errors = append([]string(nil), s.Errors...)
	}
	return c
}

// StepPatch carries a partial update for a Step. Nil fields are left
// untouched. Errors is only applied when explicitly set.
type StepPatch struct {
	Title         *string
	Description   *string
	Location      *Location
	ClearLocation bool
	Position      *Position
	Errors        *[]string
}

// Ptr is a small helper to build StepPatch values inline.
func Ptr[T any](v T) *T {
	return &v
}
