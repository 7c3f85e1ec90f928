package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/FezVrasta/hassflow/pkg/graph"
)

const sampleAutomation = `
alias: Evening lights
triggers:
  - trigger: state
    entity_id: sensor.motion
    to: "on"
actions:
  - action: light.turn_on
    target:
      entity_id: light.living_room
`

// testRoot returns root options pointing at a config with caching
// disabled, so commands never touch the user cache dir.
func testRoot(t *testing.T) *rootOpts {
	t.Helper()
	return &rootOpts{configFile: writeConfig(t, "[cache]\ndisabled = true\n")}
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	return cmd.Execute()
}

func TestParseCmd_WritesGraph(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "automation.yaml")
	output := filepath.Join(dir, "graph.json")
	if err := os.WriteFile(input, []byte(sampleAutomation), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newParseCmd(testRoot(t))
	if err := runCommand(t, cmd, input, "-o", output); err != nil {
		t.Fatalf("parse: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	g, err := graph.Unmarshal(data)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("graph shape = %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	}
}

func TestParseCmd_MissingFile(t *testing.T) {
	cmd := newParseCmd(testRoot(t))
	if err := runCommand(t, cmd, filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing input should error")
	}
}

func TestGenerateCmd_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "automation.yaml")
	graphPath := filepath.Join(dir, "graph.json")
	output := filepath.Join(dir, "generated.yaml")
	if err := os.WriteFile(input, []byte(sampleAutomation), 0o644); err != nil {
		t.Fatal(err)
	}

	root := testRoot(t)
	if err := runCommand(t, newParseCmd(root), input, "-o", graphPath); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := runCommand(t, newGenerateCmd(root), graphPath, "-o", output); err != nil {
		t.Fatalf("generate: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "light.turn_on") {
		t.Errorf("generated document missing action:\n%s", out)
	}
	if !strings.Contains(out, "Evening lights") {
		t.Errorf("generated document missing alias:\n%s", out)
	}
}

func TestGenerateCmd_InvalidStrategy(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "graph.json")
	input := filepath.Join(dir, "automation.yaml")
	if err := os.WriteFile(input, []byte(sampleAutomation), 0o644); err != nil {
		t.Fatal(err)
	}

	root := testRoot(t)
	if err := runCommand(t, newParseCmd(root), input, "-o", graphPath); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := runCommand(t, newGenerateCmd(root), graphPath, "--strategy", "bogus"); err == nil {
		t.Error("invalid strategy should error")
	}
}
