package graph

import (
	"encoding/json"
	"fmt"

	"github.com/FezVrasta/hassflow/pkg/automation"
)

// NodeType identifies a node's variant in the tagged union.
type NodeType string

// Node variants.
const (
	NodeTrigger      NodeType = "trigger"
	NodeCondition    NodeType = "condition"
	NodeAction       NodeType = "action"
	NodeDelay        NodeType = "delay"
	NodeWait         NodeType = "wait"
	NodeSetVariables NodeType = "set_variables"
)

// Source handle values on a Condition node's outgoing edges.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Graph is the canonical serialization format for one automation rule.
//
// The format is designed for round-trip fidelity: parse → transpile →
// re-parse produces a structurally equivalent graph. Meta holds
// graph-level metadata (graph id, version, prior strategy) under
// well-known keys managed by the metadata codec.
type Graph struct {
	Nodes []Node         `json:"nodes"`
	Edges []Edge         `json:"edges"`
	Meta  map[string]any `json:"metadata,omitempty"`
}

// Position is a display-only node coordinate assigned by the editor.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one vertex of the automation graph. Exactly one of the Data
// payload variants is set, matching Type.
type Node struct {
	ID       string    `json:"id"`
	Type     NodeType  `json:"type"`
	Position *Position `json:"position,omitempty"`
	Data     NodeData  `json:"data"`
}

// NodeData is the variant-specific payload of a node. Payload types come
// from the automation document model so that parsed values survive a
// round trip verbatim.
type NodeData struct {
	Label   string `json:"label,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`

	Trigger   *automation.Trigger       `json:"trigger,omitempty"`
	Condition *automation.ConditionData `json:"condition,omitempty"`
	Service   *automation.ServiceCall   `json:"service,omitempty"`
	Delay     any                       `json:"delay,omitempty"`
	Wait      *automation.Wait          `json:"wait,omitempty"`
	Variables map[string]any            `json:"variables,omitempty"`
}

// Edge is a directed connection between two nodes. SourceHandle is set on
// edges leaving a Condition node and must be "true" or "false"; at most
// one outgoing edge exists per handle value.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Label        string `json:"label,omitempty"`
}

// Unmarshal deserializes JSON bytes to a Graph.
func Unmarshal(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &g, nil
}

// Marshal serializes a Graph as indented JSON.
func Marshal(g *Graph) ([]byte, error) {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode graph: %w", err)
	}
	return data, nil
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Triggers returns the trigger nodes in slice order.
func (g *Graph) Triggers() []*Node {
	var triggers []*Node
	for i := range g.Nodes {
		if g.Nodes[i].Type == NodeTrigger {
			triggers = append(triggers, &g.Nodes[i])
		}
	}
	return triggers
}

// Index is a read-only adjacency view over a Graph. Build one with
// [Graph.Index] after the graph is complete; it is not updated when the
// underlying graph changes.
type Index struct {
	nodes    map[string]*Node
	outgoing map[string][]*Edge
	incoming map[string][]*Edge
}

// Index builds the adjacency view. Duplicate ids and dangling edges are
// tolerated here (the last node wins, dangling edges are indexed as-is);
// use [Validate] to reject them.
func (g *Graph) Index() *Index {
	ix := &Index{
		nodes:    make(map[string]*Node, len(g.Nodes)),
		outgoing: make(map[string][]*Edge, len(g.Nodes)),
		incoming: make(map[string][]*Edge, len(g.Nodes)),
	}
	for i := range g.Nodes {
		ix.nodes[g.Nodes[i].ID] = &g.Nodes[i]
	}
	for i := range g.Edges {
		e := &g.Edges[i]
		ix.outgoing[e.Source] = append(ix.outgoing[e.Source], e)
		ix.incoming[e.Target] = append(ix.incoming[e.Target], e)
	}
	return ix
}

// Node returns the node with the given id and true, or nil and false.
func (ix *Index) Node(id string) (*Node, bool) {
	n, ok := ix.nodes[id]
	return n, ok
}

// Outgoing returns the outgoing edges of a node in insertion order.
func (ix *Index) Outgoing(id string) []*Edge { return ix.outgoing[id] }

// Incoming returns the incoming edges of a node in insertion order.
func (ix *Index) Incoming(id string) []*Edge { return ix.incoming[id] }

// OutDegree returns the number of outgoing edges of a node.
func (ix *Index) OutDegree(id string) int { return len(ix.outgoing[id]) }

// InDegree returns the number of incoming edges of a node.
func (ix *Index) InDegree(id string) int { return len(ix.incoming[id]) }

// Successor returns the single successor of a non-condition node.
// Returns "" and false if the node has no outgoing edge.
func (ix *Index) Successor(id string) (string, bool) {
	edges := ix.outgoing[id]
	if len(edges) == 0 {
		return "", false
	}
	return edges[0].Target, true
}

// Branch returns the target of the outgoing edge with the given handle
// value ("true" or "false"). Returns "" and false if no such edge exists.
func (ix *Index) Branch(id, handle string) (string, bool) {
	for _, e := range ix.outgoing[id] {
		if e.SourceHandle == handle {
			return e.Target, true
		}
	}
	return "", false
}
