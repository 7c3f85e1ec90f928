package transpile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FezVrasta/hassflow/pkg/graph"
)

func TestClassify_LinearIsNative(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{testTrigger("t1"), testAction("a1", "light.turn_on")},
		Edges: []graph.Edge{edge("t1", "a1")},
	}
	assert.Equal(t, StrategyNative, Classify(g))
}

func TestClassify_SimpleBranchIsNative(t *testing.T) {
	assert.Equal(t, StrategyNative, Classify(branchGraph()))
}

func TestClassify_SimpleJoinIsNative(t *testing.T) {
	// Both branches rejoin at a single shared continuation: a plain
	// nested if/else.
	g := branchGraph()
	g.Nodes = append(g.Nodes, testAction("j1", "light.toggle"))
	g.Edges = append(g.Edges, edge("a1", "j1"), edge("a2", "j1"))
	assert.Equal(t, StrategyNative, Classify(g))
}

func TestClassify_CycleForcesEmulation(t *testing.T) {
	g := cyclicGraph()
	an := Analyze(g)
	assert.Equal(t, StrategyStateMachine, an.Strategy)
	require.Len(t, an.BackEdges, 1)
	assert.Equal(t, "a2", an.BackEdges[0].Source)
	assert.Equal(t, "c1", an.BackEdges[0].Target)
}

func TestClassify_NonStructuredMergeForcesEmulation(t *testing.T) {
	// The shared region downstream of c1 is entered at two separate
	// nodes (j1 from both a1 and b1, j2 from a2), so the merge has no
	// nested if/else equivalent.
	g := &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testCondition("c1"),
			testCondition("c2"),
			testAction("a1", "svc.a1"),
			testAction("a2", "svc.a2"),
			testAction("b1", "svc.b1"),
			testAction("j1", "svc.j1"),
			testAction("j2", "svc.j2"),
		},
		Edges: []graph.Edge{
			edge("t1", "c1"),
			branch("c1", graph.HandleTrue, "c2"),
			branch("c1", graph.HandleFalse, "b1"),
			branch("c2", graph.HandleTrue, "a1"),
			branch("c2", graph.HandleFalse, "a2"),
			edge("a1", "j1"),
			edge("a2", "j2"),
			edge("b1", "j1"),
			edge("j1", "j2"),
		},
	}
	an := Analyze(g)
	assert.Equal(t, StrategyStateMachine, an.Strategy)
	assert.Contains(t, an.Reconvergent, "c1")
}

func TestClassify_GateChainIsNative(t *testing.T) {
	// True-only conditions gate the flow without branching.
	g := &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testCondition("c1"),
			testCondition("c2"),
			testAction("a1", "light.turn_on"),
		},
		Edges: []graph.Edge{
			edge("t1", "c1"),
			branch("c1", graph.HandleTrue, "c2"),
			branch("c2", graph.HandleTrue, "a1"),
		},
	}
	assert.Equal(t, StrategyNative, Classify(g))
}

func TestJoinWithin_NestedBranch(t *testing.T) {
	// Inner condition joins at x, outer at y; the outer false branch
	// entering y must not disturb the inner join.
	g := &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testCondition("outer"),
			testCondition("inner"),
			testAction("a1", "svc.a1"),
			testAction("a2", "svc.a2"),
			testAction("b1", "svc.b1"),
			testAction("x", "svc.x"),
			testAction("y", "svc.y"),
		},
		Edges: []graph.Edge{
			edge("t1", "outer"),
			branch("outer", graph.HandleTrue, "inner"),
			branch("outer", graph.HandleFalse, "b1"),
			branch("inner", graph.HandleTrue, "a1"),
			branch("inner", graph.HandleFalse, "a2"),
			edge("a1", "x"),
			edge("a2", "x"),
			edge("x", "y"),
			edge("b1", "y"),
		},
	}
	require.Equal(t, StrategyNative, Classify(g))

	ix := g.Index()
	join, entries := joinWithin(ix, "inner", "b1", "")
	assert.Equal(t, "y", join)
	assert.Equal(t, []string{"y"}, entries)

	join, entries = joinWithin(ix, "a1", "a2", "y")
	assert.Equal(t, "x", join)
	assert.Equal(t, []string{"x"}, entries)
}

func TestClassify_DeadEndBranchForcesEmulation(t *testing.T) {
	// Inside c2 only the true branch reaches the outer join j; the false
	// branch dead-ends at y. Emitting j after the inner choose would put
	// it on the y path too, so the merge has no structural equivalent.
	an := Analyze(deadEndBranchGraph())
	assert.Equal(t, StrategyStateMachine, an.Strategy)
	assert.Contains(t, an.Reconvergent, "c2")
}

func TestJoinWithin_OneSidedContinuation(t *testing.T) {
	ix := deadEndBranchGraph().Index()
	join, entries := joinWithin(ix, "x", "y", "j")
	assert.Empty(t, join)
	assert.Equal(t, []string{"j"}, entries)
}

func TestAnalyze_UnreachableCycleIgnored(t *testing.T) {
	// Back-edge detection starts at the triggers; detached nodes do not
	// affect the executable flow's classification.
	g := &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testAction("a1", "light.turn_on"),
			testAction("o1", "svc.o1"),
			testAction("o2", "svc.o2"),
		},
		Edges: []graph.Edge{
			edge("t1", "a1"),
			edge("o1", "o2"),
			edge("o2", "o1"),
		},
	}
	assert.Equal(t, StrategyNative, Classify(g))
}
