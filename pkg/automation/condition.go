package automation

import "fmt"

// Logical condition group types. Groups nest recursively through the
// Conditions field; all other condition types are leaves.
const (
	ConditionAnd = "and"
	ConditionOr  = "or"
	ConditionNot = "not"
)

// ConditionTemplate is the condition type for template expressions. String
// shorthand entries decode to it.
const ConditionTemplate = "template"

// ConditionData is the tagged recursive representation of one condition
// entry. Logical groups (and/or/not) carry their children in Conditions;
// leaf conditions carry their payload verbatim in Options.
//
// Nested groups are always data on a single condition, never separate
// graph nodes.
type ConditionData struct {
	Condition  string          `json:"condition"`
	Alias      string          `json:"alias,omitempty"`
	Enabled    *bool           `json:"enabled,omitempty"`
	Conditions []ConditionData `json:"conditions,omitempty"`
	Options    map[string]any  `json:"options,omitempty"`
}

// IsGroup reports whether the condition is a logical and/or/not group.
func (c ConditionData) IsGroup() bool {
	return c.Condition == ConditionAnd || c.Condition == ConditionOr || c.Condition == ConditionNot
}

// Size returns the total number of conditions in this subtree, counting
// the receiver. It is used to enforce explosion budgets.
func (c ConditionData) Size() int {
	n := 1
	for _, sub := range c.Conditions {
		n += sub.Size()
	}
	return n
}

// decodeCondition converts one raw condition entry into ConditionData.
// A plain string is template shorthand. depth tracks group nesting and is
// bounded by maxNesting.
func decodeCondition(v any, depth int) (ConditionData, []string, error) {
	if depth > maxNesting {
		return ConditionData{}, nil, fmt.Errorf("condition nesting exceeds %d levels", maxNesting)
	}

	switch t := v.(type) {
	case string:
		return ConditionData{
			Condition: ConditionTemplate,
			Options:   map[string]any{"value_template": t},
		}, nil, nil
	case map[string]any:
		return decodeConditionMap(t, depth)
	default:
		return ConditionData{}, nil, fmt.Errorf("expected mapping or template string, got %T", v)
	}
}

func decodeConditionMap(m map[string]any, depth int) (ConditionData, []string, error) {
	var warnings []string

	cond := ConditionData{
		Alias:   stringField(m, "alias"),
		Enabled: boolPtr(m, "enabled"),
	}

	ct, ok := m["condition"].(string)
	if !ok {
		return ConditionData{}, nil, fmt.Errorf("condition entry has no \"condition\" key")
	}
	cond.Condition = ct

	if cond.IsGroup() {
		subs, subWarnings, err := decodeConditionList(m["conditions"], depth+1)
		warnings = append(warnings, subWarnings...)
		if err != nil {
			return ConditionData{}, warnings, fmt.Errorf("%s group: %w", ct, err)
		}
		cond.Conditions = subs
	}

	options := make(map[string]any)
	for k, v := range m {
		switch k {
		case "condition", "conditions", "alias", "enabled":
			continue
		}
		options[k] = v
	}
	if len(options) > 0 {
		cond.Options = options
	}

	// Field-level validation stays advisory: the editor owns strictness.
	if ct == "state" || ct == "numeric_state" {
		if _, ok := m["entity_id"]; !ok {
			warnings = append(warnings, fmt.Sprintf("%s condition missing entity_id", ct))
		}
	}

	return cond, warnings, nil
}

func decodeConditionList(v any, depth int) ([]ConditionData, []string, error) {
	entries, err := entryList(v)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	conditions := make([]ConditionData, 0, len(entries))
	for i, e := range entries {
		c, condWarnings, err := decodeCondition(e, depth)
		warnings = append(warnings, condWarnings...)
		if err != nil {
			return nil, warnings, fmt.Errorf("entry %d: %w", i, err)
		}
		conditions = append(conditions, c)
	}
	return conditions, warnings, nil
}

// MarshalYAML emits the condition with its canonical key order-independent
// mapping form. Verbatim Options values are merged back untouched.
func (c ConditionData) MarshalYAML() (any, error) {
	out := make(map[string]any, len(c.Options)+4)
	for k, v := range c.Options {
		out[k] = v
	}
	out["condition"] = c.Condition
	if c.Alias != "" {
		out["alias"] = c.Alias
	}
	if c.Enabled != nil {
		out["enabled"] = *c.Enabled
	}
	if len(c.Conditions) > 0 {
		subs := make([]any, len(c.Conditions))
		for i, sub := range c.Conditions {
			enc, err := sub.MarshalYAML()
			if err != nil {
				return nil, err
			}
			subs[i] = enc
		}
		out["conditions"] = subs
	}
	return out, nil
}

// TemplateCondition builds a template condition from an expression string.
// The state-machine generator uses it for dispatch predicates.
func TemplateCondition(expr string) ConditionData {
	return ConditionData{
		Condition: ConditionTemplate,
		Options:   map[string]any{"value_template": expr},
	}
}
