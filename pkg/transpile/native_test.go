package transpile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hferrors "github.com/FezVrasta/hassflow/pkg/errors"
	"github.com/FezVrasta/hassflow/pkg/graph"
)

func TestGenerateNative_Branch(t *testing.T) {
	res := GenerateNative(branchGraph())
	require.True(t, res.Success, "errors: %v", res.Errors)
	require.NotNil(t, res.Document)

	doc := res.Document
	require.Len(t, doc.Actions, 1)
	ch := doc.Actions[0].Choose
	require.NotNil(t, ch)

	// The true branch becomes the option, the false branch the default.
	require.Len(t, ch.Options, 1)
	require.Len(t, ch.Options[0].Sequence, 1)
	assert.Equal(t, "light.turn_on", ch.Options[0].Sequence[0].Service.Service)
	require.Len(t, ch.Default, 1)
	assert.Equal(t, "notify.notify", ch.Default[0].Service.Service)
}

func TestGenerateNative_RejectsCycle(t *testing.T) {
	res := GenerateNative(cyclicGraph())
	assert.False(t, res.Success)
	assert.Nil(t, res.Document)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, hferrors.ErrCodeStrategyConflict, hferrors.GetCode(res.Errors[0]))
	assert.Contains(t, res.Errors[0].Error(), "a2->c1")
}

func TestGenerateNative_RejectsDeadEndBranch(t *testing.T) {
	res := GenerateNative(deadEndBranchGraph())
	assert.False(t, res.Success)
	assert.Nil(t, res.Document)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, hferrors.ErrCodeStrategyConflict, hferrors.GetCode(res.Errors[0]))
	assert.Contains(t, res.Errors[0].Error(), "c2")
}

func TestGenerateNative_JoinResumesOuterSequence(t *testing.T) {
	g := branchGraph()
	g.Nodes = append(g.Nodes, testAction("j1", "light.toggle"))
	g.Edges = append(g.Edges, edge("a1", "j1"), edge("a2", "j1"))

	res := GenerateNative(g)
	require.True(t, res.Success, "errors: %v", res.Errors)

	doc := res.Document
	// The join is emitted once, after the choose block.
	require.Len(t, doc.Actions, 2)
	require.NotNil(t, doc.Actions[0].Choose)
	require.NotNil(t, doc.Actions[1].Service)
	assert.Equal(t, "light.toggle", doc.Actions[1].Service.Service)
}

func TestGenerateNative_GatesBecomeConditionSection(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testCondition("c1"),
			testAction("a1", "light.turn_on"),
		},
		Edges: []graph.Edge{
			edge("t1", "c1"),
			branch("c1", graph.HandleTrue, "a1"),
		},
	}
	res := GenerateNative(g)
	require.True(t, res.Success, "errors: %v", res.Errors)

	doc := res.Document
	require.Len(t, doc.Conditions, 1)
	assert.Equal(t, "numeric_state", doc.Conditions[0].Condition)
	require.Len(t, doc.Actions, 1)
	assert.Equal(t, "light.turn_on", doc.Actions[0].Service.Service)
}

func TestGenerateNative_ElseIfChainFolds(t *testing.T) {
	// c1 false -> c2 is an else-if: both conditions share the same
	// continuation, so they fold into one choose block.
	g := &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testCondition("c1"),
			testCondition("c2"),
			testAction("a1", "svc.one"),
			testAction("a2", "svc.two"),
			testAction("a3", "svc.three"),
		},
		Edges: []graph.Edge{
			edge("t1", "c1"),
			branch("c1", graph.HandleTrue, "a1"),
			branch("c1", graph.HandleFalse, "c2"),
			branch("c2", graph.HandleTrue, "a2"),
			branch("c2", graph.HandleFalse, "a3"),
		},
	}
	res := GenerateNative(g)
	require.True(t, res.Success, "errors: %v", res.Errors)

	doc := res.Document
	require.Len(t, doc.Actions, 1)
	ch := doc.Actions[0].Choose
	require.NotNil(t, ch)
	require.Len(t, ch.Options, 2)
	assert.Equal(t, "svc.one", ch.Options[0].Sequence[0].Service.Service)
	assert.Equal(t, "svc.two", ch.Options[1].Sequence[0].Service.Service)
	require.Len(t, ch.Default, 1)
	assert.Equal(t, "svc.three", ch.Default[0].Service.Service)
}

func TestGenerateNative_DisabledNodeKeepsFlag(t *testing.T) {
	off := false
	g := &graph.Graph{
		Nodes: []graph.Node{
			testTrigger("t1"),
			testAction("a1", "light.turn_on"),
		},
		Edges: []graph.Edge{edge("t1", "a1")},
	}
	g.Nodes[1].Data.Enabled = &off

	res := GenerateNative(g)
	require.True(t, res.Success, "errors: %v", res.Errors)
	require.Len(t, res.Document.Actions, 1)
	require.NotNil(t, res.Document.Actions[0].Enabled)
	assert.False(t, *res.Document.Actions[0].Enabled)
	assert.Contains(t, string(res.YAML), "enabled: false")
}

func TestGenerateNative_TrueBranchEmittedFirst(t *testing.T) {
	res := GenerateNative(branchGraph())
	require.True(t, res.Success)

	// Canonical DFS order: the option (true branch) precedes the
	// default (false branch) in the emitted document.
	text := string(res.YAML)
	assert.Less(t, strings.Index(text, "light.turn_on"), strings.Index(text, "notify.notify"))
}
