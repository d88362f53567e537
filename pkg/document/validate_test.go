package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(diags []Diagnostic) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestValidate_SampleIsClean(t *testing.T) {
	diags := Validate(sampleDocument())
	assert.False(t, HasErrors(diags), "%v", diags)
}

func TestValidate_Findings(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Document)
		code string
	}{
		{"empty title", func(d *Document) { d.Title = " " }, CodeTitleRequired},
		{"long title", func(d *Document) { d.Title = strings.Repeat("t", 256) }, CodeTitleTooLong},
		{"newline title", func(d *Document) { d.Title = "a\nb" }, CodeTitleNewline},
		{"no steps", func(d *Document) { d.Steps = nil }, CodeNoSteps},
		{"missing id", func(d *Document) { d.Steps[3].ID = "" }, CodeMissingStepID},
		{"duplicate id", func(d *Document) { d.Steps[3].ID = "market" }, CodeDuplicateStepID},
		{"step title", func(d *Document) { d.Steps[1].Title = "" }, CodeStepTitle},
		{"empty label", func(d *Document) { d.Steps[1].Choices[0].Text = "" }, CodeLabelEmpty},
		{"long label", func(d *Document) { d.Steps[1].Choices[0].Text = strings.Repeat("x", 51) }, CodeLabelTooLong},
		{"dangling next", func(d *Document) { d.Steps[1].Choices[0].Next = "nowhere" }, CodeDanglingNext},
		{"too many choices", func(d *Document) {
			for i := 0; i < 2; i++ {
				d.Steps[0].Choices = append(d.Steps[0].Choices, ChoiceDoc{Text: "again", Next: "bridge"})
			}
		}, CodeTooManyChoices},
		{"latitude", func(d *Document) { d.Steps[0].Location.Latitude = 91 }, CodeInvalidLatitude},
		{"longitude", func(d *Document) { d.Steps[0].Location.Longitude = -181 }, CodeInvalidLongitude},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sampleDocument()
			tt.edit(&doc)
			diags := Validate(doc)
			assert.Contains(t, codes(diags), tt.code)
			assert.True(t, HasErrors(diags))
		})
	}
}

func TestValidate_FanInAndReachability(t *testing.T) {
	doc := Document{Title: "t", Steps: []StepDoc{{ID: "z", Title: "z"}}}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		doc.Steps = append(doc.Steps, StepDoc{ID: id, Title: id, Choices: []ChoiceDoc{{Text: "go", Next: "z"}}})
	}
	diags := Validate(doc)
	assert.Contains(t, codes(diags), CodeFanInExceeded)

	var warnings int
	for _, d := range diags {
		if d.Code == CodeUnreachableStep {
			assert.Equal(t, SeverityWarning, d.Severity)
			warnings++
		}
	}
	assert.Equal(t, 5, warnings)
}

func TestValidationPayload_RoundTripsThroughParser(t *testing.T) {
	doc := sampleDocument()
	doc.Steps[1].Title = ""
	doc.Steps = append(doc.Steps, StepDoc{ID: "market", Title: "dup"})

	payload := ValidationPayload(Validate(doc))
	require.NotNil(t, payload)

	errs := ParseServerErrors(payload)
	assert.Equal(t, []string{"Title required"}, errs.StepErrors["church"])
	assert.Equal(t, []string{"Duplicate step id"}, errs.StepErrors["market"])
}

func TestValidationPayload_NoErrors(t *testing.T) {
	assert.Nil(t, ValidationPayload(nil))
	assert.Nil(t, ValidationPayload([]Diagnostic{{Code: CodeUnreachableStep, Severity: SeverityWarning}}))
}

func TestValidationPayload_NonFieldErrors(t *testing.T) {
	payload := ValidationPayload(Validate(Document{Title: "t"}))
	errs := ParseServerErrors(payload)
	assert.Equal(t, []string{"A scenario needs at least one step"}, errs.GeneralErrors)
}
