package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_LegacySectionKeys(t *testing.T) {
	raw := map[string]any{
		"trigger": []any{map[string]any{"trigger": "state"}},
		"action":  []any{map[string]any{"action": "light.turn_on"}},
	}

	warnings := Normalize(raw)

	assert.Len(t, warnings, 2)
	assert.Contains(t, raw, "triggers")
	assert.Contains(t, raw, "actions")
	assert.NotContains(t, raw, "trigger")
	assert.NotContains(t, raw, "action")
}

func TestNormalize_LegacyPlatformKey(t *testing.T) {
	raw := map[string]any{
		"triggers": []any{
			map[string]any{"platform": "state", "entity_id": "sensor.temperature"},
		},
		"actions": []any{},
	}

	warnings := Normalize(raw)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "platform")

	entry := raw["triggers"].([]any)[0].(map[string]any)
	assert.Equal(t, "state", entry["trigger"])
	assert.NotContains(t, entry, "platform")
}

func TestNormalize_LegacyServiceKeyRecursive(t *testing.T) {
	raw := map[string]any{
		"triggers": []any{map[string]any{"trigger": "state"}},
		"actions": []any{
			map[string]any{"service": "light.turn_on"},
			map[string]any{
				"choose": []any{
					map[string]any{
						"conditions": []any{},
						"sequence": []any{
							map[string]any{"service": "notify.mobile"},
						},
					},
				},
				"default": []any{
					map[string]any{"service": "script.reset"},
				},
			},
		},
	}

	warnings := Normalize(raw)

	assert.Len(t, warnings, 3)

	actions := raw["actions"].([]any)
	assert.Equal(t, "light.turn_on", actions[0].(map[string]any)["action"])

	choose := actions[1].(map[string]any)["choose"].([]any)
	seq := choose[0].(map[string]any)["sequence"].([]any)
	assert.Equal(t, "notify.mobile", seq[0].(map[string]any)["action"])

	def := actions[1].(map[string]any)["default"].([]any)
	assert.Equal(t, "script.reset", def[0].(map[string]any)["action"])
}

func TestNormalize_BothKeysPresentPrefersModern(t *testing.T) {
	raw := map[string]any{
		"triggers": []any{
			map[string]any{"platform": "time", "trigger": "state"},
		},
		"actions": []any{},
	}

	warnings := Normalize(raw)

	require.Len(t, warnings, 1)
	entry := raw["triggers"].([]any)[0].(map[string]any)
	assert.Equal(t, "state", entry["trigger"])
	assert.NotContains(t, entry, "platform")
}

func TestNormalize_CleanDocumentNoWarnings(t *testing.T) {
	raw := map[string]any{
		"triggers": []any{map[string]any{"trigger": "state"}},
		"actions":  []any{map[string]any{"action": "light.turn_on"}},
	}

	assert.Empty(t, Normalize(raw))
}
