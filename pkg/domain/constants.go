package domain

// Structural limits shared by the graph model, the rule engine and the
// document validator.
const (
	// SlotCount is the number of output ports and input ports on every step.
	SlotCount = 4
	// MaxChoicesPerStep caps the fan-out of a step.
	MaxChoicesPerStep = 4
	// MaxLabelLength is the maximum choice label length, in runes.
	MaxLabelLength = 50
	// MaxTitleLength is the maximum scenario title length, in runes.
	MaxTitleLength = 255
)

// Defaults applied by the editor when it creates content on the user's behalf.
const (
	DefaultScenarioTitle       = "New Scenario"
	DefaultScenarioDescription = "Describe your new adventure..."

	StartStepTitle       = "Start"
	StartStepDescription = "This is the beginning of your story."

	DefaultStepTitle  = "New Step"
	LinkedStepTitle   = "New Option"
	DefaultChoiceText = "Next"
)

// Nominal geometry of a rendered step, used by the layout engine.
const (
	NodeWidth  = 320.0
	NodeHeight = 250.0

	// LinkedStepOffset is the vertical distance between a step and a child
	// created through the add-linked-step affordance.
	LinkedStepOffset = 250.0
)

// StartPosition is where the seeded start step of a fresh scenario is placed.
var StartPosition = Position{X: 250, Y: 50}
