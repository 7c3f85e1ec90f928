package automation

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Trigger is one entry of the document's trigger list.
//
// Platform identifies the trigger type (state, time, event, ...). All other
// payload fields are carried verbatim in Options so that values the
// transpiler does not interpret survive a round trip unchanged.
type Trigger struct {
	Platform string         `json:"trigger" mapstructure:"trigger"`
	ID       string         `json:"id,omitempty" mapstructure:"id"`
	Enabled  *bool          `json:"enabled,omitempty" mapstructure:"enabled"`
	Options  map[string]any `json:"options,omitempty" mapstructure:",remain"`
}

// decodeTrigger converts a raw trigger entry into a Trigger.
// The entry must already be normalized ("platform" rewritten to "trigger").
func decodeTrigger(v any) (Trigger, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Trigger{}, fmt.Errorf("expected mapping, got %T", v)
	}

	var t Trigger
	if err := mapstructure.Decode(m, &t); err != nil {
		return Trigger{}, fmt.Errorf("decode trigger: %w", err)
	}
	if t.Platform == "" {
		return Trigger{}, fmt.Errorf("trigger entry has no \"trigger\" key")
	}
	return t, nil
}

func decodeTriggerList(v any) ([]Trigger, error) {
	entries, err := entryList(v)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("trigger list is empty")
	}

	triggers := make([]Trigger, 0, len(entries))
	for i, e := range entries {
		t, err := decodeTrigger(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		triggers = append(triggers, t)
	}
	return triggers, nil
}

// MarshalYAML emits the trigger with the canonical "trigger" key followed
// by its verbatim payload fields.
func (t Trigger) MarshalYAML() (any, error) {
	out := make(map[string]any, len(t.Options)+3)
	for k, v := range t.Options {
		out[k] = v
	}
	out["trigger"] = t.Platform
	if t.ID != "" {
		out["id"] = t.ID
	}
	if t.Enabled != nil {
		out["enabled"] = *t.Enabled
	}
	return out, nil
}
