package automation

import "fmt"

// Legacy field spellings accepted on input and rewritten to their modern
// canonical form. The legacy key is removed and never re-emitted.
var sectionAliases = map[string]string{
	"trigger":   "triggers",
	"condition": "conditions",
	"action":    "actions",
}

// Normalize rewrites legacy field names in a raw decoded document to their
// canonical modern spellings, in place. Every rewrite is reported as a
// warning. Normalization never fails: values it does not understand are
// left untouched for the typed decoder to judge.
//
// Three families of aliases are handled:
//   - singular section keys (trigger/condition/action) for the plural ones
//   - the legacy "platform" key on trigger entries for "trigger"
//   - the legacy "service" key on action entries for "action", recursively
//     through choose options, default sequences and repeat bodies
func Normalize(raw map[string]any) []string {
	var warnings []string

	for legacy, canonical := range sectionAliases {
		v, ok := raw[legacy]
		if !ok {
			continue
		}
		if _, exists := raw[canonical]; exists {
			warnings = append(warnings, fmt.Sprintf("ignoring legacy %q section: %q is also present", legacy, canonical))
			delete(raw, legacy)
			continue
		}
		raw[canonical] = v
		delete(raw, legacy)
		warnings = append(warnings, fmt.Sprintf("legacy section key %q normalized to %q", legacy, canonical))
	}

	if entries, ok := raw["triggers"].([]any); ok {
		for i, e := range entries {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			warnings = append(warnings, normalizeTriggerEntry(m, fmt.Sprintf("triggers[%d]", i))...)
		}
	}
	if m, ok := raw["triggers"].(map[string]any); ok {
		warnings = append(warnings, normalizeTriggerEntry(m, "triggers")...)
	}

	warnings = append(warnings, normalizeActionValue(raw["actions"], "actions")...)

	return warnings
}

// normalizeTriggerEntry rewrites the legacy "platform" key to "trigger".
func normalizeTriggerEntry(m map[string]any, path string) []string {
	v, ok := m["platform"]
	if !ok {
		return nil
	}
	if _, exists := m["trigger"]; exists {
		delete(m, "platform")
		return []string{fmt.Sprintf("%s: ignoring legacy \"platform\" key: \"trigger\" is also present", path)}
	}
	m["trigger"] = v
	delete(m, "platform")
	return []string{fmt.Sprintf("%s: legacy \"platform\" key normalized to \"trigger\"", path)}
}

// normalizeActionValue walks an action list (or single entry) rewriting the
// legacy "service" key to "action" and recursing into nested sequences.
func normalizeActionValue(v any, path string) []string {
	switch t := v.(type) {
	case []any:
		var warnings []string
		for i, e := range t {
			warnings = append(warnings, normalizeActionValue(e, fmt.Sprintf("%s[%d]", path, i))...)
		}
		return warnings
	case map[string]any:
		return normalizeActionEntry(t, path)
	default:
		return nil
	}
}

func normalizeActionEntry(m map[string]any, path string) []string {
	var warnings []string

	if v, ok := m["service"]; ok {
		if _, exists := m["action"]; exists {
			delete(m, "service")
			warnings = append(warnings, fmt.Sprintf("%s: ignoring legacy \"service\" key: \"action\" is also present", path))
		} else {
			m["action"] = v
			delete(m, "service")
			warnings = append(warnings, fmt.Sprintf("%s: legacy \"service\" key normalized to \"action\"", path))
		}
	}

	// Recurse into the nested sequences of structured entries.
	if choose, ok := m["choose"].([]any); ok {
		for i, opt := range choose {
			om, ok := opt.(map[string]any)
			if !ok {
				continue
			}
			warnings = append(warnings, normalizeActionValue(om["sequence"], fmt.Sprintf("%s.choose[%d].sequence", path, i))...)
		}
	}
	warnings = append(warnings, normalizeActionValue(m["default"], path+".default")...)
	if repeat, ok := m["repeat"].(map[string]any); ok {
		warnings = append(warnings, normalizeActionValue(repeat["sequence"], path+".repeat.sequence")...)
	}
	warnings = append(warnings, normalizeActionValue(m["sequence"], path+".sequence")...)

	return warnings
}
