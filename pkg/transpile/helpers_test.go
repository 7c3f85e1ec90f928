package transpile

import (
	"testing"

	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/graph"
)

func testTrigger(id string) graph.Node {
	return graph.Node{
		ID:   id,
		Type: graph.NodeTrigger,
		Data: graph.NodeData{Trigger: &automation.Trigger{
			Platform: "state",
			Options:  map[string]any{"entity_id": "sensor.test"},
		}},
	}
}

func testCondition(id string) graph.Node {
	return graph.Node{
		ID:   id,
		Type: graph.NodeCondition,
		Data: graph.NodeData{Condition: &automation.ConditionData{
			Condition: "numeric_state",
			Options:   map[string]any{"entity_id": "sensor.temperature", "above": 25},
		}},
	}
}

func testAction(id, service string) graph.Node {
	return graph.Node{
		ID:   id,
		Type: graph.NodeAction,
		Data: graph.NodeData{Service: &automation.ServiceCall{Service: service}},
	}
}

func edge(src, tgt string) graph.Edge {
	return graph.Edge{Source: src, Target: tgt}
}

func branch(src, handle, tgt string) graph.Edge {
	return graph.Edge{Source: src, Target: tgt, SourceHandle: handle}
}

type edgeKey struct {
	Source, Handle, Target string
}

// graphShape reduces a graph to comparable node and edge maps.
func graphShape(g *graph.Graph) (map[string]graph.NodeType, map[edgeKey]bool) {
	nodes := make(map[string]graph.NodeType, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n.ID] = n.Type
	}
	edges := make(map[edgeKey]bool, len(g.Edges))
	for _, e := range g.Edges {
		edges[edgeKey{e.Source, e.SourceHandle, e.Target}] = true
	}
	return nodes, edges
}

func requireSameShape(t *testing.T, want, got *graph.Graph) {
	t.Helper()
	wantNodes, wantEdges := graphShape(want)
	gotNodes, gotEdges := graphShape(got)
	if len(wantNodes) != len(gotNodes) {
		t.Fatalf("node count mismatch: want %d, got %d\nwant %v\ngot  %v",
			len(wantNodes), len(gotNodes), wantNodes, gotNodes)
	}
	for id, typ := range wantNodes {
		if gotNodes[id] != typ {
			t.Fatalf("node %s: want type %s, got %s", id, typ, gotNodes[id])
		}
	}
	if len(wantEdges) != len(gotEdges) {
		t.Fatalf("edge count mismatch: want %d, got %d\nwant %v\ngot  %v",
			len(wantEdges), len(gotEdges), wantEdges, gotEdges)
	}
	for e := range wantEdges {
		if !gotEdges[e] {
			t.Fatalf("missing edge %v\ngot %v", e, gotEdges)
		}
	}
}

// cyclicGraph is the Scenario C shape: a later action loops back into an
// earlier condition.
func cyclicGraph() *graph.Graph {
	return &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testCondition("c1"),
			testAction("a1", "light.turn_on"),
			testAction("a2", "light.turn_off"),
		},
		Edges: []graph.Edge{
			edge("t1", "c1"),
			branch("c1", graph.HandleTrue, "a1"),
			edge("a1", "a2"),
			edge("a2", "c1"),
		},
	}
}

// deadEndBranchGraph nests a condition whose false branch dead-ends at y
// while the true branch falls through to the outer join j.
func deadEndBranchGraph() *graph.Graph {
	return &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testCondition("c1"),
			testCondition("c2"),
			testAction("x", "svc.x"),
			testAction("y", "svc.y"),
			testAction("bf", "svc.bf"),
			testAction("j", "svc.j"),
		},
		Edges: []graph.Edge{
			edge("t1", "c1"),
			branch("c1", graph.HandleTrue, "c2"),
			branch("c1", graph.HandleFalse, "bf"),
			branch("c2", graph.HandleTrue, "x"),
			branch("c2", graph.HandleFalse, "y"),
			edge("x", "j"),
			edge("bf", "j"),
		},
	}
}

// branchGraph is the Scenario B shape: one condition with a true and a
// false branch, each one action.
func branchGraph() *graph.Graph {
	return &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testCondition("c1"),
			testAction("a1", "light.turn_on"),
			testAction("a2", "notify.notify"),
		},
		Edges: []graph.Edge{
			edge("t1", "c1"),
			branch("c1", graph.HandleTrue, "a1"),
			branch("c1", graph.HandleFalse, "a2"),
		},
	}
}
