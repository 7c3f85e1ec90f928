package render

import (
	"strings"
	"testing"

	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/graph"
)

func previewGraph() *graph.Graph {
	disabled := false
	return &graph.Graph{
		Nodes: []graph.Node{
			{ID: "t1", Type: graph.NodeTrigger, Data: graph.NodeData{
				Label:   "Motion detected",
				Trigger: &automation.Trigger{Platform: "state"},
			}},
			{ID: "c1", Type: graph.NodeCondition, Data: graph.NodeData{
				Condition: &automation.ConditionData{Condition: "numeric_state"},
			}},
			{ID: "a1", Type: graph.NodeAction, Data: graph.NodeData{
				Service: &automation.ServiceCall{Service: "light.turn_on"},
			}},
			{ID: "a2", Type: graph.NodeAction, Data: graph.NodeData{
				Enabled: &disabled,
				Service: &automation.ServiceCall{Service: "notify.notify"},
			}},
		},
		Edges: []graph.Edge{
			{ID: "t1-c1", Source: "t1", Target: "c1"},
			{ID: "c1-true-a1", Source: "c1", Target: "a1", SourceHandle: "true"},
			{ID: "c1-false-a2", Source: "c1", Target: "a2", SourceHandle: "false"},
		},
	}
}

func TestToDOT_Shapes(t *testing.T) {
	dot := ToDOT(previewGraph(), Options{})

	if !strings.Contains(dot, `"t1" [label="Motion detected", shape=ellipse, fillcolor=lightblue];`) {
		t.Errorf("trigger node not styled:\n%s", dot)
	}
	if !strings.Contains(dot, `"c1" [label="c1", shape=diamond, fillcolor=lightyellow];`) {
		t.Errorf("condition node not styled:\n%s", dot)
	}
	if !strings.Contains(dot, `"a1" [label="a1"];`) {
		t.Errorf("action node not plain:\n%s", dot)
	}
}

func TestToDOT_BranchLabels(t *testing.T) {
	dot := ToDOT(previewGraph(), Options{})

	if !strings.Contains(dot, `"c1" -> "a1" [label="true"];`) {
		t.Errorf("true branch not labeled:\n%s", dot)
	}
	if !strings.Contains(dot, `"c1" -> "a2" [label="false"];`) {
		t.Errorf("false branch not labeled:\n%s", dot)
	}
	if !strings.Contains(dot, `"t1" -> "c1";`) {
		t.Errorf("plain edge mangled:\n%s", dot)
	}
}

func TestToDOT_DisabledNode(t *testing.T) {
	dot := ToDOT(previewGraph(), Options{})
	if !strings.Contains(dot, `style="rounded,filled,dashed"`) {
		t.Errorf("disabled node should render dashed:\n%s", dot)
	}
}

func TestToDOT_Detailed(t *testing.T) {
	dot := ToDOT(previewGraph(), Options{Detailed: true})

	if !strings.Contains(dot, "Motion detected\\nstate") {
		t.Errorf("detailed trigger label missing platform:\n%s", dot)
	}
	if !strings.Contains(dot, "a1\\nlight.turn_on") {
		t.Errorf("detailed action label missing service:\n%s", dot)
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render(t.Context(), previewGraph(), Format("png"), Options{})
	if err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}
