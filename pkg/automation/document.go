package automation

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Execution modes for an automation rule.
const (
	ModeSingle   = "single"
	ModeRestart  = "restart"
	ModeQueued   = "queued"
	ModeParallel = "parallel"
)

// Overflow policies for queued/parallel modes (max_exceeded).
const (
	MaxExceededSilent  = "silent"
	MaxExceededWarning = "warning"
	MaxExceededError   = "error"
)

// maxNesting bounds recursive decoding of condition groups and action
// sequences, converting unbounded-stack inputs into a reported error.
const maxNesting = 64

// Document is the typed model of one automation rule configuration.
//
// Triggers and Actions are required for an executable rule; Conditions
// gate continuation after the triggers fire. Variables holds rule-level
// variable definitions and is inert to control flow, which makes it the
// carrier for namespaced editor metadata.
type Document struct {
	ID          string `yaml:"id,omitempty" json:"id,omitempty"`
	Alias       string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Mode        string `yaml:"mode,omitempty" json:"mode,omitempty"`
	Max         int    `yaml:"max,omitempty" json:"max,omitempty"`
	MaxExceeded string `yaml:"max_exceeded,omitempty" json:"max_exceeded,omitempty"`

	Triggers   []Trigger       `yaml:"triggers" json:"triggers"`
	Conditions []ConditionData `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Actions    []Action        `yaml:"actions" json:"actions"`

	Variables map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// UnmarshalRaw decodes YAML bytes into a raw map without interpreting any
// fields. The result is the input to [Normalize] and [Decode].
func UnmarshalRaw(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty document")
	}
	return raw, nil
}

// Parse decodes YAML bytes into a Document, normalizing legacy keys first.
// Normalization rewrites are returned as warnings; a nil error means the
// document is structurally sound even if warnings were reported.
func Parse(data []byte) (*Document, []string, error) {
	raw, err := UnmarshalRaw(data)
	if err != nil {
		return nil, nil, err
	}
	warnings := Normalize(raw)
	doc, decodeWarnings, err := Decode(raw)
	warnings = append(warnings, decodeWarnings...)
	if err != nil {
		return nil, warnings, err
	}
	return doc, warnings, nil
}

// Decode converts a normalized raw map into a typed Document.
// Field-level issues on well-formed entries are reported as warnings;
// only structural malformation (wrong shapes for the trigger or action
// sections) yields an error.
func Decode(raw map[string]any) (*Document, []string, error) {
	var warnings []string
	doc := &Document{}

	doc.ID = stringField(raw, "id")
	doc.Alias = stringField(raw, "alias")
	doc.Description = stringField(raw, "description")
	doc.Mode = stringField(raw, "mode")
	doc.MaxExceeded = stringField(raw, "max_exceeded")
	doc.Max = intField(raw, "max")

	if v, ok := raw["variables"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, warnings, fmt.Errorf("variables: expected mapping, got %T", v)
		}
		doc.Variables = m
	}

	rawTriggers, ok := raw["triggers"]
	if !ok {
		return nil, warnings, fmt.Errorf("document has no triggers section")
	}
	triggers, err := decodeTriggerList(rawTriggers)
	if err != nil {
		return nil, warnings, fmt.Errorf("triggers: %w", err)
	}
	doc.Triggers = triggers

	if rawConditions, ok := raw["conditions"]; ok {
		conditions, condWarnings, err := decodeConditionList(rawConditions, 0)
		warnings = append(warnings, condWarnings...)
		if err != nil {
			return nil, warnings, fmt.Errorf("conditions: %w", err)
		}
		doc.Conditions = conditions
	}

	rawActions, ok := raw["actions"]
	if !ok {
		return nil, warnings, fmt.Errorf("document has no actions section")
	}
	actions, actionWarnings, err := decodeActionList(rawActions, 0)
	warnings = append(warnings, actionWarnings...)
	if err != nil {
		return nil, warnings, fmt.Errorf("actions: %w", err)
	}
	doc.Actions = actions

	return doc, warnings, nil
}

// Marshal encodes a Document as canonical YAML.
func Marshal(doc *Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return data, nil
}

// stringField extracts an optional string field from a raw map.
func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// intField extracts an optional integer field from a raw map.
func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// boolPtr extracts an optional boolean field as a pointer, so absent and
// explicit false stay distinguishable.
func boolPtr(m map[string]any, key string) *bool {
	if v, ok := m[key].(bool); ok {
		return &v
	}
	return nil
}

// entryList coerces a section value to a list of entries. A single mapping
// is treated as a one-element list, matching the runtime's shorthand.
func entryList(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case map[string]any:
		return []any{t}, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}
