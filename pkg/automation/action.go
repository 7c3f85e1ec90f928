package automation

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Action is one entry of an action sequence, a tagged union over the
// supported step kinds. Exactly one of the variant pointers is set; the
// zero Action is not a valid entry.
type Action struct {
	Alias   string `json:"alias,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`

	Service   *ServiceCall   `json:"service,omitempty"`
	Delay     any            `json:"delay,omitempty"`
	Wait      *Wait          `json:"wait,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
	Choose    *Choose        `json:"choose,omitempty"`
	Repeat    *Repeat        `json:"repeat,omitempty"`
	Condition *ConditionData `json:"condition,omitempty"`
}

// ServiceCall invokes a runtime service (for example light.turn_on).
// Target and Data keep their raw mapping shape; any remaining payload
// fields are carried verbatim in Options.
type ServiceCall struct {
	Service string         `json:"action" mapstructure:"action"`
	Target  map[string]any `json:"target,omitempty" mapstructure:"target"`
	Data    map[string]any `json:"data,omitempty" mapstructure:"data"`
	Options map[string]any `json:"options,omitempty" mapstructure:",remain"`
}

// Wait pauses the sequence until a template turns true or one of the
// listed triggers fires. Exactly one of Template and Triggers is set.
type Wait struct {
	Template          string    `json:"wait_template,omitempty"`
	Triggers          []Trigger `json:"wait_for_trigger,omitempty"`
	Timeout           any       `json:"timeout,omitempty"`
	ContinueOnTimeout *bool     `json:"continue_on_timeout,omitempty"`
}

// Choose is the multi-branch conditional construct: the first option whose
// conditions all pass runs its sequence, otherwise Default runs.
type Choose struct {
	Options []ChooseOption `json:"choose"`
	Default []Action       `json:"default,omitempty"`
}

// ChooseOption is one branch of a Choose block.
type ChooseOption struct {
	Alias      string          `json:"alias,omitempty"`
	Conditions []ConditionData `json:"conditions"`
	Sequence   []Action        `json:"sequence"`
}

// Repeat runs its sequence until/while the given conditions hold, or a
// fixed count of times. The state-machine generator emits the dispatch
// loop as a Repeat with a While guard.
type Repeat struct {
	Count    int             `json:"count,omitempty"`
	While    []ConditionData `json:"while,omitempty"`
	Until    []ConditionData `json:"until,omitempty"`
	Sequence []Action        `json:"sequence"`
}

// decodeAction converts one raw action entry into an Action. The entry must
// already be normalized ("service" rewritten to "action"). Unrecognized
// entries decode to a service call carrying the payload verbatim, with a
// warning, so that graph construction can proceed.
func decodeAction(v any, depth int) (Action, []string, error) {
	if depth > maxNesting {
		return Action{}, nil, fmt.Errorf("action nesting exceeds %d levels", maxNesting)
	}

	m, ok := v.(map[string]any)
	if !ok {
		return Action{}, nil, fmt.Errorf("expected mapping, got %T", v)
	}

	act := Action{
		Alias:   stringField(m, "alias"),
		Enabled: boolPtr(m, "enabled"),
	}
	var warnings []string

	switch {
	case m["choose"] != nil:
		choose, chooseWarnings, err := decodeChoose(m, depth)
		warnings = append(warnings, chooseWarnings...)
		if err != nil {
			return Action{}, warnings, err
		}
		act.Choose = choose

	case m["repeat"] != nil:
		repeat, repeatWarnings, err := decodeRepeat(m["repeat"], depth)
		warnings = append(warnings, repeatWarnings...)
		if err != nil {
			return Action{}, warnings, err
		}
		act.Repeat = repeat

	case m["delay"] != nil:
		act.Delay = m["delay"]

	case m["wait_template"] != nil || m["wait_for_trigger"] != nil:
		wait, err := decodeWait(m)
		if err != nil {
			return Action{}, warnings, err
		}
		act.Wait = wait

	case m["variables"] != nil:
		vars, ok := m["variables"].(map[string]any)
		if !ok {
			return Action{}, warnings, fmt.Errorf("variables: expected mapping, got %T", m["variables"])
		}
		act.Variables = vars

	case m["condition"] != nil:
		cond, condWarnings, err := decodeCondition(m, depth)
		warnings = append(warnings, condWarnings...)
		if err != nil {
			return Action{}, warnings, err
		}
		act.Condition = &cond

	default:
		call, callWarnings := decodeServiceCall(m)
		warnings = append(warnings, callWarnings...)
		act.Service = call
	}

	return act, warnings, nil
}

func decodeActionList(v any, depth int) ([]Action, []string, error) {
	entries, err := entryList(v)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	actions := make([]Action, 0, len(entries))
	for i, e := range entries {
		a, actionWarnings, err := decodeAction(e, depth)
		warnings = append(warnings, actionWarnings...)
		if err != nil {
			return nil, warnings, fmt.Errorf("entry %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, warnings, nil
}

func decodeServiceCall(m map[string]any) (*ServiceCall, []string) {
	var warnings []string

	entry := make(map[string]any, len(m))
	for k, v := range m {
		switch k {
		case "alias", "enabled":
			continue
		}
		entry[k] = v
	}

	var call ServiceCall
	if err := mapstructure.Decode(entry, &call); err != nil {
		// Keep the raw payload so emission reproduces the input.
		warnings = append(warnings, fmt.Sprintf("unrecognized action entry kept verbatim: %v", err))
		return &ServiceCall{Options: entry}, warnings
	}
	if call.Service == "" {
		warnings = append(warnings, "action entry has no \"action\" key")
	}
	return &call, warnings
}

func decodeWait(m map[string]any) (*Wait, error) {
	wait := &Wait{
		Template:          stringField(m, "wait_template"),
		Timeout:           m["timeout"],
		ContinueOnTimeout: boolPtr(m, "continue_on_timeout"),
	}
	if raw, ok := m["wait_for_trigger"]; ok {
		triggers, err := decodeTriggerList(raw)
		if err != nil {
			return nil, fmt.Errorf("wait_for_trigger: %w", err)
		}
		wait.Triggers = triggers
	}
	return wait, nil
}

func decodeChoose(m map[string]any, depth int) (*Choose, []string, error) {
	rawOptions, ok := m["choose"].([]any)
	if !ok {
		return nil, nil, fmt.Errorf("choose: expected list, got %T", m["choose"])
	}

	var warnings []string
	choose := &Choose{Options: make([]ChooseOption, 0, len(rawOptions))}

	for i, rawOpt := range rawOptions {
		om, ok := rawOpt.(map[string]any)
		if !ok {
			return nil, warnings, fmt.Errorf("choose option %d: expected mapping, got %T", i, rawOpt)
		}

		conditions, condWarnings, err := decodeConditionList(om["conditions"], depth+1)
		warnings = append(warnings, condWarnings...)
		if err != nil {
			return nil, warnings, fmt.Errorf("choose option %d conditions: %w", i, err)
		}
		sequence, seqWarnings, err := decodeActionList(om["sequence"], depth+1)
		warnings = append(warnings, seqWarnings...)
		if err != nil {
			return nil, warnings, fmt.Errorf("choose option %d sequence: %w", i, err)
		}

		choose.Options = append(choose.Options, ChooseOption{
			Alias:      stringField(om, "alias"),
			Conditions: conditions,
			Sequence:   sequence,
		})
	}

	if rawDefault, ok := m["default"]; ok {
		def, defWarnings, err := decodeActionList(rawDefault, depth+1)
		warnings = append(warnings, defWarnings...)
		if err != nil {
			return nil, warnings, fmt.Errorf("choose default: %w", err)
		}
		choose.Default = def
	}

	return choose, warnings, nil
}

func decodeRepeat(v any, depth int) (*Repeat, []string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("repeat: expected mapping, got %T", v)
	}

	var warnings []string
	repeat := &Repeat{Count: intField(m, "count")}

	if raw, ok := m["while"]; ok {
		while, whileWarnings, err := decodeConditionList(raw, depth+1)
		warnings = append(warnings, whileWarnings...)
		if err != nil {
			return nil, warnings, fmt.Errorf("repeat while: %w", err)
		}
		repeat.While = while
	}
	if raw, ok := m["until"]; ok {
		until, untilWarnings, err := decodeConditionList(raw, depth+1)
		warnings = append(warnings, untilWarnings...)
		if err != nil {
			return nil, warnings, fmt.Errorf("repeat until: %w", err)
		}
		repeat.Until = until
	}

	sequence, seqWarnings, err := decodeActionList(m["sequence"], depth+1)
	warnings = append(warnings, seqWarnings...)
	if err != nil {
		return nil, warnings, fmt.Errorf("repeat sequence: %w", err)
	}
	repeat.Sequence = sequence

	return repeat, warnings, nil
}

// MarshalYAML emits the action entry in its canonical mapping form.
func (a Action) MarshalYAML() (any, error) {
	out := make(map[string]any)

	switch {
	case a.Service != nil:
		for k, v := range a.Service.Options {
			out[k] = v
		}
		if a.Service.Service != "" {
			out["action"] = a.Service.Service
		}
		if len(a.Service.Target) > 0 {
			out["target"] = a.Service.Target
		}
		if len(a.Service.Data) > 0 {
			out["data"] = a.Service.Data
		}

	case a.Delay != nil:
		out["delay"] = a.Delay

	case a.Wait != nil:
		if a.Wait.Template != "" {
			out["wait_template"] = a.Wait.Template
		}
		if len(a.Wait.Triggers) > 0 {
			out["wait_for_trigger"] = a.Wait.Triggers
		}
		if a.Wait.Timeout != nil {
			out["timeout"] = a.Wait.Timeout
		}
		if a.Wait.ContinueOnTimeout != nil {
			out["continue_on_timeout"] = *a.Wait.ContinueOnTimeout
		}

	case a.Variables != nil:
		out["variables"] = a.Variables

	case a.Choose != nil:
		options := make([]any, len(a.Choose.Options))
		for i, opt := range a.Choose.Options {
			om := map[string]any{
				"conditions": opt.Conditions,
				"sequence":   opt.Sequence,
			}
			if opt.Alias != "" {
				om["alias"] = opt.Alias
			}
			options[i] = om
		}
		out["choose"] = options
		if len(a.Choose.Default) > 0 {
			out["default"] = a.Choose.Default
		}

	case a.Repeat != nil:
		rm := map[string]any{"sequence": a.Repeat.Sequence}
		if a.Repeat.Count > 0 {
			rm["count"] = a.Repeat.Count
		}
		if len(a.Repeat.While) > 0 {
			rm["while"] = a.Repeat.While
		}
		if len(a.Repeat.Until) > 0 {
			rm["until"] = a.Repeat.Until
		}
		out["repeat"] = rm

	case a.Condition != nil:
		enc, err := a.Condition.MarshalYAML()
		if err != nil {
			return nil, err
		}
		condMap := enc.(map[string]any)
		for k, v := range condMap {
			out[k] = v
		}

	default:
		return nil, fmt.Errorf("action entry has no variant set")
	}

	if a.Alias != "" {
		out["alias"] = a.Alias
	}
	if a.Enabled != nil {
		out["enabled"] = *a.Enabled
	}
	return out, nil
}
