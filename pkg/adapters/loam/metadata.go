package loam

// StepMetadata is the frontmatter of a step file.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type StepMetadata struct {
	ID    string `json:"id" mapstructure:"id"`
	Title string `json:"title" mapstructure:"title"`
	// Order positions the step in the assembled document; ties break by id.
	Order    int              `json:"order,omitempty" mapstructure:"order"`
	Choices  []ChoiceMetadata `json:"choices" mapstructure:"choices"`
	Location *LocationMeta    `json:"location,omitempty" mapstructure:"location"`
}

// ChoiceMetadata is one entry of the choices list.
type ChoiceMetadata struct {
	Text string `json:"text" mapstructure:"text"`
	Next string `json:"next" mapstructure:"next"`
	// To is accepted as an alias of Next.
	To string `json:"to,omitempty" mapstructure:"to"`
}

// LocationMeta mirrors the wire location. Coordinates are left untyped since
// frontmatter may carry numbers, json.Number or decimal strings.
type LocationMeta struct {
	Title       string `json:"title" mapstructure:"title"`
	Description string `json:"description" mapstructure:"description"`
	Latitude    any    `json:"latitude" mapstructure:"latitude"`
	Longitude   any    `json:"longitude" mapstructure:"longitude"`
}
