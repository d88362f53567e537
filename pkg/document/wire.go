package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the flat wire representation of a scenario exchanged with the
// store. Slots and positions are not part of it.
type Document struct {
	ID          string    `json:"id,omitempty" yaml:"id,omitempty"`
	CreatedBy   UserRef   `json:"created_by,omitzero" yaml:"created_by,omitempty"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Steps       []StepDoc `json:"steps" yaml:"steps"`

	// Timestamps are set by the store and ignored on submission.
	CreatedAt  time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitzero" yaml:"modified_at,omitempty"`
}

// StepDoc is one step of a Document.
type StepDoc struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	Choices     []ChoiceDoc  `json:"choices" yaml:"choices"`
	Location    *LocationDoc `json:"location" yaml:"location,omitempty"`
}

// ChoiceDoc is an outgoing choice of a step, in creation order.
type ChoiceDoc struct {
	Text string `json:"text" yaml:"text"`
	Next string `json:"next" yaml:"next"`
}

// LocationDoc is the map point of a step.
type LocationDoc struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Latitude    Coordinate `json:"latitude" yaml:"latitude"`
	Longitude   Coordinate `json:"longitude" yaml:"longitude"`
}

// Summary is a list entry returned by the store.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedBy   Author    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	ModifiedAt  time.Time `json:"modified_at,omitzero"`
	Steps       int       `json:"steps"`
	RootStep    string    `json:"root_step,omitempty"`
}

// Author is the expanded creator shown in listings.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Summarize builds the list entry of a document. The root step is the
// first step no choice points to, falling back to the first step.
func Summarize(doc Document) Summary {
	s := Summary{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		CreatedBy:   Author{ID: doc.CreatedBy.ID, Username: doc.CreatedBy.Username},
		CreatedAt:   doc.CreatedAt,
		ModifiedAt:  doc.ModifiedAt,
		Steps:       len(doc.Steps),
	}
	targeted := make(map[string]bool)
	for _, st := range doc.Steps {
		for _, c := range st.Choices {
			if c.Next != st.ID {
				targeted[c.Next] = true
			}
		}
	}
	for _, st := range doc.Steps {
		if !targeted[st.ID] {
			s.RootStep = st.ID
			break
		}
	}
	if s.RootStep == "" && len(doc.Steps) > 0 {
		s.RootStep = doc.Steps[0].ID
	}
	return s
}

// UserRef identifies the creator of a scenario. On the wire it is a plain
// user id, but stores also answer with a number or an expanded
// {id, username} object; all three are accepted.
type UserRef struct {
	ID       string
	Username string
}

func (u UserRef) IsZero() bool {
	return u.ID == "" && u.Username == ""
}

func (u UserRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.ID)
}

func (u *UserRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*u = UserRef{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*u = UserRef{ID: s}
		return nil
	case '{':
		var obj struct {
			ID       json.RawMessage `json:"id"`
			Username string          `json:"username"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*u = UserRef{ID: rawScalar(obj.ID), Username: obj.Username}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("created_by: unsupported value %s", b)
		}
		*u = UserRef{ID: n.String()}
		return nil
	}
}

func (u UserRef) MarshalYAML() (any, error) {
	return u.ID, nil
}

func (u *UserRef) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*u = UserRef{ID: value.Value}
		return nil
	case yaml.MappingNode:
		var obj struct {
			ID       string `yaml:"id"`
			Username string `yaml:"username"`
		}
		if err := value.Decode(&obj); err != nil {
			return err
		}
		*u = UserRef{ID: obj.ID, Username: obj.Username}
		return nil
	default:
		return fmt.Errorf("created_by: unsupported yaml node at line %d", value.Line)
	}
}

func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Coordinate is a latitude or longitude. It is encoded as a number but
// accepts decimal strings, which the map picker produces.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*c = 0
		return nil
	}
	return c.parse(strings.Trim(s, `"`))
}

func (c *Coordinate) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("coordinate: expected a scalar at line %d", value.Line)
	}
	return c.parse(value.Value)
}

func (c *Coordinate) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("coordinate %q: %w", s, err)
	}
	*c = Coordinate(f)
	return nil
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	c := d
	if d.Steps != nil {
		c.Steps = make([]StepDoc, len(d.Steps))
		for i, s := range d.Steps {
			cs := s
			if s.Choices != nil {
				cs.Choices = append([]ChoiceDoc{}, s.Choices...)
			}
			if s.Location != nil {
				loc := *s.Location
				cs.Location = &loc
			}
			c.Steps[i] = cs
		}
	}
	return c
}
