package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/sceneweaver/pkg/domain"
)

// Severity is the seriousness of a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes.
const (
	CodeTitleRequired    = "TITLE_REQUIRED"
	CodeTitleTooLong     = "TITLE_TOO_LONG"
	CodeTitleNewline     = "TITLE_NEWLINE"
	CodeNoSteps          = "NO_STEPS"
	CodeMissingStepID    = "MISSING_STEP_ID"
	CodeDuplicateStepID  = "DUPLICATE_STEP_ID"
	CodeStepTitle        = "STEP_TITLE_REQUIRED"
	CodeTooManyChoices   = "TOO_MANY_CHOICES"
	CodeLabelEmpty       = "LABEL_EMPTY"
	CodeLabelTooLong     = "LABEL_TOO_LONG"
	CodeDanglingNext     = "DANGLING_NEXT"
	CodeFanInExceeded    = "FAN_IN_EXCEEDED"
	CodeInvalidLatitude  = "INVALID_LATITUDE"
	CodeInvalidLongitude = "INVALID_LONGITUDE"
	CodeUnreachableStep  = "UNREACHABLE_STEP"
)

// Diagnostic is a single finding of Validate.
type Diagnostic struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Path locates the offending value, e.g. "steps[2].choices[0].text".
	Path string `json:"path,omitempty"`
	// StepID is set when the finding belongs to a step.
	StepID string `json:"step_id,omitempty"`
	// Field names a scenario-level field for store payloads.
	Field string `json:"field,omitempty"`
}

func (d Diagnostic) String() string {
	loc := d.Path
	if loc == "" {
		loc = "scenario"
	}
	return fmt.Sprintf("%s %s [%s]: %s", d.Severity, loc, d.Code, d.Message)
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks doc against the constraints the store enforces, plus a
// few warnings useful while authoring.
func Validate(doc Document) []Diagnostic {
	var diags []Diagnostic
	add := func(d Diagnostic) { diags = append(diags, d) }

	switch {
	case strings.TrimSpace(doc.Title) == "":
		add(Diagnostic{Code: CodeTitleRequired, Severity: SeverityError, Message: "Title required", Path: "title", Field: "title"})
	case utf8.RuneCountInString(doc.Title) > domain.MaxTitleLength:
		add(Diagnostic{Code: CodeTitleTooLong, Severity: SeverityError,
			Message: fmt.Sprintf("Ensure this field has no more than %d characters.", domain.MaxTitleLength),
			Path:    "title", Field: "title"})
	case strings.ContainsAny(doc.Title, "\r\n"):
		add(Diagnostic{Code: CodeTitleNewline, Severity: SeverityError, Message: "Title must be a single line", Path: "title", Field: "title"})
	}

	if len(doc.Steps) == 0 {
		add(Diagnostic{Code: CodeNoSteps, Severity: SeverityError, Message: "A scenario needs at least one step"})
		return diags
	}

	ids := make(map[string]int, len(doc.Steps))
	for i, s := range doc.Steps {
		path := fmt.Sprintf("steps[%d]", i)
		if s.ID == "" {
			add(Diagnostic{Code: CodeMissingStepID, Severity: SeverityError, Message: "Step id required", Path: path + ".id"})
			continue
		}
		if _, dup := ids[s.ID]; dup {
			add(Diagnostic{Code: CodeDuplicateStepID, Severity: SeverityError, Message: "Duplicate step id", Path: path + ".id", StepID: s.ID})
			continue
		}
		ids[s.ID] = i
	}

	fanIn := make(map[string]int)
	for i, s := range doc.Steps {
		path := fmt.Sprintf("steps[%d]", i)
		if strings.TrimSpace(s.Title) == "" {
			add(Diagnostic{Code: CodeStepTitle, Severity: SeverityError, Message: "Title required", Path: path + ".title", StepID: s.ID})
		}
		if len(s.Choices) > domain.MaxChoicesPerStep {
			add(Diagnostic{Code: CodeTooManyChoices, Severity: SeverityError,
				Message: fmt.Sprintf("A step can have at most %d choices", domain.MaxChoicesPerStep),
				Path:    path + ".choices", StepID: s.ID})
		}
		for j, c := range s.Choices {
			cpath := fmt.Sprintf("%s.choices[%d]", path, j)
			text := strings.TrimSpace(c.Text)
			switch {
			case text == "":
				add(Diagnostic{Code: CodeLabelEmpty, Severity: SeverityError, Message: "Choice text required", Path: cpath + ".text", StepID: s.ID})
			case utf8.RuneCountInString(text) > domain.MaxLabelLength:
				add(Diagnostic{Code: CodeLabelTooLong, Severity: SeverityError,
					Message: fmt.Sprintf("Choice text has more than %d characters", domain.MaxLabelLength),
					Path:    cpath + ".text", StepID: s.ID})
			}
			if _, ok := ids[c.Next]; !ok {
				add(Diagnostic{Code: CodeDanglingNext, Severity: SeverityError,
					Message: fmt.Sprintf("Choice points to unknown step %q", c.Next),
					Path:    cpath + ".next", StepID: s.ID})
				continue
			}
			fanIn[c.Next]++
		}
		if loc := s.Location; loc != nil {
			if loc.Latitude < -90 || loc.Latitude > 90 {
				add(Diagnostic{Code: CodeInvalidLatitude, Severity: SeverityError, Message: "Latitude out of range", Path: path + ".location.latitude", StepID: s.ID})
			}
			if loc.Longitude < -180 || loc.Longitude > 180 {
				add(Diagnostic{Code: CodeInvalidLongitude, Severity: SeverityError, Message: "Longitude out of range", Path: path + ".location.longitude", StepID: s.ID})
			}
		}
	}

	for i, s := range doc.Steps {
		if fanIn[s.ID] > domain.SlotCount {
			add(Diagnostic{Code: CodeFanInExceeded, Severity: SeverityError,
				Message: fmt.Sprintf("A step can receive at most %d choices", domain.SlotCount),
				Path:    fmt.Sprintf("steps[%d]", i), StepID: s.ID})
		}
	}

	for _, id := range unreachable(doc) {
		add(Diagnostic{Code: CodeUnreachableStep, Severity: SeverityWarning,
			Message: "Step cannot be reached from the first step",
			Path:    fmt.Sprintf("steps[%d]", ids[id]), StepID: id})
	}
	return diags
}

// unreachable lists steps no path from the first step reaches.
func unreachable(doc Document) []string {
	next := make(map[string][]string, len(doc.Steps))
	for _, s := range doc.Steps {
		for _, c := range s.Choices {
			next[s.ID] = append(next[s.ID], c.Next)
		}
	}
	seen := map[string]bool{doc.Steps[0].ID: true}
	queue := []string{doc.Steps[0].ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, n := range next[id] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	var out []string
	for _, s := range doc.Steps {
		if s.ID != "" && !seen[s.ID] {
			out = append(out, s.ID)
			seen[s.ID] = true
		}
	}
	return out
}

// ValidationPayload renders error diagnostics in the store's payload shape:
// step findings under "steps", scenario fields under their own key and the
// rest under "non_field_errors". It returns nil when there is no error.
func ValidationPayload(diags []Diagnostic) []byte {
	payload := make(map[string]any)
	steps := make(map[string][]string)
	for _, d := range diags {
		if d.Severity != SeverityError {
			continue
		}
		switch {
		case d.StepID != "":
			steps[d.StepID] = append(steps[d.StepID], d.Message)
		case d.Field != "":
			list, _ := payload[d.Field].([]string)
			payload[d.Field] = append(list, d.Message)
		default:
			list, _ := payload[nonFieldKey].([]string)
			payload[nonFieldKey] = append(list, d.Message)
		}
	}
	if len(steps) > 0 {
		payload["steps"] = steps
	}
	if len(payload) == 0 {
		return nil
	}
	b, _ := json.Marshal(payload)
	return b
}

// StoreCheck validates doc as a store would on submission. A refused
// document yields a *domain.RemoteValidationError with status 400 and the
// payload built by ValidationPayload.
func StoreCheck(doc Document) error {
	payload := ValidationPayload(Validate(doc))
	if payload == nil {
		return nil
	}
	return &domain.RemoteValidationError{Status: 400, Payload: payload}
}
