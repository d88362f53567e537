package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// ServerErrors is a store validation payload projected onto the graph.
type ServerErrors struct {
	StepErrors    map[string][]string `json:"step_errors,omitempty"`
	GeneralErrors []string            `json:"general_errors,omitempty"`
}

// Empty reports whether nothing was extracted.
func (s ServerErrors) Empty() bool {
	return len(s.StepErrors) == 0 && len(s.GeneralErrors) == 0
}

// nonFieldKey is the key the store uses for errors not bound to a field.
// It sometimes appears nested under "steps" as if it were a step id.
const nonFieldKey = "non_field_errors"

type errorPayload struct {
	Detail         any            `mapstructure:"detail"`
	NonFieldErrors any            `mapstructure:"non_field_errors"`
	Steps          any            `mapstructure:"steps"`
	Rest           map[string]any `mapstructure:",remain"`
}

// ParseServerErrors extracts step and general errors from a raw store
// validation payload:
//
//   - "steps" maps step ids to messages; a "non_field_errors" key under
//     "steps" is lifted into the general list
//   - top-level "non_field_errors" and "detail" go to the general list
//   - when one of the shapes above matched, any other top-level field is
//     reported as "field: message"
//   - otherwise the payload is reported verbatim as a single general error
func ParseServerErrors(raw []byte) ServerErrors {
	var out ServerErrors
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return out
	}

	var generic map[string]any
	if err := json.Unmarshal(trimmed, &generic); err != nil || generic == nil {
		out.GeneralErrors = []string{verbatim(trimmed)}
		return out
	}

	var p errorPayload
	if err := mapstructure.Decode(generic, &p); err != nil {
		out.GeneralErrors = []string{verbatim(trimmed)}
		return out
	}

	known := false
	if p.Steps != nil {
		known = true
		if steps, ok := p.Steps.(map[string]any); ok {
			for _, key := range sortedKeys(steps) {
				msgs := messages(steps[key])
				if key == nonFieldKey {
					out.GeneralErrors = append(out.GeneralErrors, msgs...)
					continue
				}
				if len(msgs) == 0 {
					continue
				}
				if out.StepErrors == nil {
					out.StepErrors = make(map[string][]string)
				}
				out.StepErrors[key] = append(out.StepErrors[key], msgs...)
			}
		} else {
			out.GeneralErrors = append(out.GeneralErrors, prefixed("steps", messages(p.Steps))...)
		}
	}
	if p.NonFieldErrors != nil {
		known = true
		out.GeneralErrors = append(out.GeneralErrors, messages(p.NonFieldErrors)...)
	}
	if p.Detail != nil {
		known = true
		out.GeneralErrors = append(out.GeneralErrors, messages(p.Detail)...)
	}

	if !known {
		out.GeneralErrors = []string{verbatim(trimmed)}
		return out
	}
	for _, key := range sortedKeys(p.Rest) {
		out.GeneralErrors = append(out.GeneralErrors, prefixed(key, messages(p.Rest[key]))...)
	}
	return out
}

// ErrorTarget receives projected errors. *graph.Graph implements it.
type ErrorTarget interface {
	SetStepErrors(id string, messages []string) bool
	SetGeneralErrors(messages []string)
}

// Apply attaches errors to their steps and sets the general list. Errors
// for step ids the target does not know are moved to the general list.
// It returns the number of steps that received errors.
func Apply(errs ServerErrors, target ErrorTarget) int {
	general := append([]string(nil), errs.GeneralErrors...)
	marked := 0
	for _, id := range sortedKeys(errs.StepErrors) {
		msgs := errs.StepErrors[id]
		if target.SetStepErrors(id, msgs) {
			marked++
			continue
		}
		general = append(general, fmt.Sprintf("step %s: %s", id, strings.Join(msgs, ", ")))
	}
	target.SetGeneralErrors(general)
	return marked
}

// Notice summarizes a rejected save for a toast.
func (s ServerErrors) Notice() domain.Notice {
	if len(s.StepErrors) > 0 {
		return domain.Notice{
			Level:       domain.NoticeError,
			Title:       "Step validation failed",
			Description: "Errors have been marked on the diagram.",
		}
	}
	desc := strings.Join(s.GeneralErrors, "; ")
	if desc == "" {
		desc = "The store rejected the scenario."
	}
	return domain.Notice{Level: domain.NoticeError, Title: "Could not save scenario", Description: desc}
}

// messages flattens a payload value into human-readable strings.
// Nested objects become "key: message".
func messages(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, messages(item)...)
		}
		return out
	case map[string]any:
		var out []string
		for _, key := range sortedKeys(t) {
			out = append(out, prefixed(key, messages(t[key]))...)
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

func prefixed(key string, msgs []string) []string {
	if len(msgs) == 0 {
		return nil
	}
	return []string{key + ": " + strings.Join(msgs, ", ")}
}

func verbatim(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
