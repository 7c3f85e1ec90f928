package graph

import (
	"errors"
	"testing"

	"github.com/FezVrasta/hassflow/pkg/automation"
)

func triggerNode(id string) Node {
	return Node{
		ID:   id,
		Type: NodeTrigger,
		Data: NodeData{Trigger: &automation.Trigger{Platform: "state"}},
	}
}

func actionNode(id string) Node {
	return Node{
		ID:   id,
		Type: NodeAction,
		Data: NodeData{Service: &automation.ServiceCall{Service: "light.turn_on"}},
	}
}

func conditionNode(id string) Node {
	return Node{
		ID:   id,
		Type: NodeCondition,
		Data: NodeData{Condition: &automation.ConditionData{Condition: "state"}},
	}
}

func TestRoundTrip_JSON(t *testing.T) {
	g := &Graph{
		Nodes: []Node{triggerNode("t1"), actionNode("a1")},
		Edges: []Edge{{Source: "t1", Target: "a1"}},
		Meta:  map[string]any{"graph_id": "g-123"},
	}
	g.Nodes[1].Position = &Position{X: 100, Y: 40}

	data, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.NodeCount() != 2 || got.EdgeCount() != 1 {
		t.Errorf("got %d nodes / %d edges, want 2 / 1", got.NodeCount(), got.EdgeCount())
	}
	if got.Nodes[1].Position == nil || got.Nodes[1].Position.X != 100 {
		t.Errorf("position not preserved: %+v", got.Nodes[1].Position)
	}
	if got.Meta["graph_id"] != "g-123" {
		t.Errorf("metadata not preserved: %v", got.Meta)
	}
}

func TestIndex_Adjacency(t *testing.T) {
	g := &Graph{
		Nodes: []Node{triggerNode("t1"), conditionNode("c1"), actionNode("a1"), actionNode("a2")},
		Edges: []Edge{
			{Source: "t1", Target: "c1"},
			{Source: "c1", Target: "a1", SourceHandle: HandleTrue},
			{Source: "c1", Target: "a2", SourceHandle: HandleFalse},
		},
	}
	ix := g.Index()

	if ix.OutDegree("c1") != 2 {
		t.Errorf("OutDegree(c1) = %d, want 2", ix.OutDegree("c1"))
	}
	if ix.InDegree("a1") != 1 {
		t.Errorf("InDegree(a1) = %d, want 1", ix.InDegree("a1"))
	}

	if next, ok := ix.Successor("t1"); !ok || next != "c1" {
		t.Errorf("Successor(t1) = %q, %v", next, ok)
	}
	if target, ok := ix.Branch("c1", HandleTrue); !ok || target != "a1" {
		t.Errorf("Branch(c1, true) = %q, %v", target, ok)
	}
	if target, ok := ix.Branch("c1", HandleFalse); !ok || target != "a2" {
		t.Errorf("Branch(c1, false) = %q, %v", target, ok)
	}
	if _, ok := ix.Branch("a1", HandleTrue); ok {
		t.Error("Branch(a1, true) should not exist")
	}
}

func TestReachable(t *testing.T) {
	g := &Graph{
		Nodes: []Node{triggerNode("t1"), actionNode("a1"), actionNode("a2"), actionNode("orphan")},
		Edges: []Edge{
			{Source: "t1", Target: "a1"},
			{Source: "a1", Target: "a2"},
		},
	}
	reached := g.Index().Reachable("t1")

	for _, id := range []string{"t1", "a1", "a2"} {
		if !reached[id] {
			t.Errorf("%s should be reachable", id)
		}
	}
	if reached["orphan"] {
		t.Error("orphan should not be reachable")
	}
}

func TestEntryPoint(t *testing.T) {
	g := &Graph{
		Nodes: []Node{triggerNode("t1"), triggerNode("t2"), actionNode("a1")},
		Edges: []Edge{
			{Source: "t1", Target: "a1"},
			{Source: "t2", Target: "a1"},
		},
	}
	entry, err := g.EntryPoint()
	if err != nil {
		t.Fatalf("EntryPoint() error = %v", err)
	}
	if entry != "a1" {
		t.Errorf("EntryPoint() = %q, want a1", entry)
	}
}

func TestEntryPoint_Ambiguous(t *testing.T) {
	g := &Graph{
		Nodes: []Node{triggerNode("t1"), triggerNode("t2"), actionNode("a1"), actionNode("a2")},
		Edges: []Edge{
			{Source: "t1", Target: "a1"},
			{Source: "t2", Target: "a2"},
		},
	}
	if _, err := g.EntryPoint(); !errors.Is(err, ErrAmbiguousEntry) {
		t.Errorf("EntryPoint() error = %v, want ErrAmbiguousEntry", err)
	}
}

func TestValidate_Valid(t *testing.T) {
	g := &Graph{
		Nodes: []Node{triggerNode("t1"), conditionNode("c1"), actionNode("a1"), actionNode("a2")},
		Edges: []Edge{
			{Source: "t1", Target: "c1"},
			{Source: "c1", Target: "a1", SourceHandle: HandleTrue},
			{Source: "c1", Target: "a2", SourceHandle: HandleFalse},
		},
	}
	if err := Validate(g); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		g    *Graph
		want error
	}{
		{
			name: "duplicate node id",
			g: &Graph{
				Nodes: []Node{triggerNode("x"), actionNode("x")},
			},
			want: ErrDuplicateNodeID,
		},
		{
			name: "unknown edge endpoint",
			g: &Graph{
				Nodes: []Node{triggerNode("t1")},
				Edges: []Edge{{Source: "t1", Target: "ghost"}},
			},
			want: ErrUnknownEndpoint,
		},
		{
			name: "no trigger",
			g: &Graph{
				Nodes: []Node{actionNode("a1")},
			},
			want: ErrNoTrigger,
		},
		{
			name: "trigger has incoming edge",
			g: &Graph{
				Nodes: []Node{triggerNode("t1"), actionNode("a1")},
				Edges: []Edge{{Source: "a1", Target: "t1"}},
			},
			want: ErrTriggerHasIncoming,
		},
		{
			name: "condition edge without handle",
			g: &Graph{
				Nodes: []Node{triggerNode("t1"), conditionNode("c1"), actionNode("a1")},
				Edges: []Edge{
					{Source: "t1", Target: "c1"},
					{Source: "c1", Target: "a1"},
				},
			},
			want: ErrInvalidHandle,
		},
		{
			name: "handle on non-condition edge",
			g: &Graph{
				Nodes: []Node{triggerNode("t1"), actionNode("a1")},
				Edges: []Edge{{Source: "t1", Target: "a1", SourceHandle: HandleTrue}},
			},
			want: ErrInvalidHandle,
		},
		{
			name: "duplicate handle",
			g: &Graph{
				Nodes: []Node{triggerNode("t1"), conditionNode("c1"), actionNode("a1"), actionNode("a2")},
				Edges: []Edge{
					{Source: "t1", Target: "c1"},
					{Source: "c1", Target: "a1", SourceHandle: HandleTrue},
					{Source: "c1", Target: "a2", SourceHandle: HandleTrue},
				},
			},
			want: ErrDuplicateHandle,
		},
		{
			name: "multiple successors on action",
			g: &Graph{
				Nodes: []Node{triggerNode("t1"), actionNode("a1"), actionNode("a2"), actionNode("a3")},
				Edges: []Edge{
					{Source: "t1", Target: "a1"},
					{Source: "a1", Target: "a2"},
					{Source: "a1", Target: "a3"},
				},
			},
			want: ErrMultipleSuccessors,
		},
		{
			name: "payload mismatch",
			g: &Graph{
				Nodes: []Node{{ID: "t1", Type: NodeTrigger}},
			},
			want: ErrMissingPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.g)
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}
