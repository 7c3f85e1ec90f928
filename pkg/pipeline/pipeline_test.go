package pipeline

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FezVrasta/hassflow/pkg/cache"
)

const sampleDoc = `
alias: Evening lights
triggers:
  - trigger: state
    entity_id: sensor.motion
    to: "on"
conditions:
  - condition: sun
    after: sunset
actions:
  - action: light.turn_on
    target:
      entity_id: light.living_room
`

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestRunner_Execute(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	defer r.Close()

	res, err := r.Execute(t.Context(), []byte(sampleDoc), Options{Formats: []string{FormatDOT}})
	require.NoError(t, err)

	assert.Len(t, res.Graph.Nodes, 3)
	assert.Equal(t, "native", res.Strategy)
	assert.NotEmpty(t, res.YAML)
	assert.NotEmpty(t, res.GraphHash)
	assert.NotEmpty(t, res.Artifacts[FormatDOT])
	assert.Equal(t, 3, res.Stats.NodeCount)
	assert.False(t, res.CacheInfo.ParseHit)
	assert.False(t, res.CacheInfo.TranspileHit)
}

func TestRunner_Execute_CacheHit(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(fc, nil, quietLogger())
	defer r.Close()

	opts := Options{Formats: []string{FormatDOT}}

	first, err := r.Execute(t.Context(), []byte(sampleDoc), opts)
	require.NoError(t, err)
	assert.False(t, first.CacheInfo.ParseHit)

	second, err := r.Execute(t.Context(), []byte(sampleDoc), opts)
	require.NoError(t, err)
	assert.True(t, second.CacheInfo.ParseHit)
	assert.True(t, second.CacheInfo.TranspileHit)
	assert.True(t, second.CacheInfo.RenderHit)

	assert.Equal(t, first.GraphHash, second.GraphHash)
	assert.Equal(t, first.YAML, second.YAML)
}

func TestRunner_Execute_Refresh(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(fc, nil, quietLogger())
	defer r.Close()

	_, err = r.Execute(t.Context(), []byte(sampleDoc), Options{})
	require.NoError(t, err)

	res, err := r.Execute(t.Context(), []byte(sampleDoc), Options{Refresh: true})
	require.NoError(t, err)
	assert.False(t, res.CacheInfo.ParseHit)
	assert.False(t, res.CacheInfo.TranspileHit)
}

func TestRunner_Execute_ParseFailure(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	defer r.Close()

	_, err := r.Execute(t.Context(), []byte("actions: []\n"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestRunner_Execute_InvalidStrategy(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	defer r.Close()

	_, err := r.Execute(t.Context(), []byte(sampleDoc), Options{Strategy: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid strategy")
}

func TestRunner_Execute_InvalidFormat(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	defer r.Close()

	_, err := r.Execute(t.Context(), []byte(sampleDoc), Options{Formats: []string{"png"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRunner_ForcedStrategy(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	defer r.Close()

	res, err := r.Execute(t.Context(), []byte(sampleDoc), Options{Strategy: "state-machine"})
	require.NoError(t, err)
	assert.Equal(t, "state-machine", res.Strategy)
}

func TestOptions_ValidateAndSetDefaults(t *testing.T) {
	opts := Options{}
	require.NoError(t, opts.ValidateAndSetDefaults())

	assert.Equal(t, 16, opts.ExplosionFactor)
	assert.Equal(t, 64, opts.MaxDepth)
	assert.Equal(t, 200, opts.IterationCeiling)
	assert.Equal(t, 2000, opts.MaxNodes)
	assert.NotNil(t, opts.Logger)

	// Idempotent.
	require.NoError(t, opts.ValidateAndSetDefaults())
}

func TestOptions_KeyOpts(t *testing.T) {
	opts := Options{Strategy: "native"}
	opts.setDefaults()

	assert.Equal(t, 2000, opts.GraphKeyOpts().MaxNodes)
	assert.Equal(t, "native", opts.DocumentKeyOpts().Strategy)
	assert.Equal(t, "dot", opts.ArtifactKeyOpts("dot").Format)
}
