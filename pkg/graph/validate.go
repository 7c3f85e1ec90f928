package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNodeID is returned by [Validate] when a node has an empty id.
	ErrInvalidNodeID = errors.New("node id must not be empty")

	// ErrDuplicateNodeID is returned by [Validate] when two nodes share an id.
	ErrDuplicateNodeID = errors.New("duplicate node id")

	// ErrUnknownEndpoint is returned by [Validate] when an edge references
	// a node id that does not exist in the graph.
	ErrUnknownEndpoint = errors.New("edge references unknown node")

	// ErrNoTrigger is returned by [Validate] when an executable graph has
	// no trigger node.
	ErrNoTrigger = errors.New("graph has no trigger node")

	// ErrTriggerHasIncoming is returned by [Validate] when an edge targets
	// a trigger node. Triggers are entry points and take no incoming edges.
	ErrTriggerHasIncoming = errors.New("trigger node has incoming edge")

	// ErrInvalidHandle is returned by [Validate] when a condition node's
	// outgoing edge carries a handle other than "true" or "false", or a
	// non-condition node's edge carries any handle.
	ErrInvalidHandle = errors.New("invalid source handle")

	// ErrDuplicateHandle is returned by [Validate] when a condition node
	// has more than one outgoing edge with the same handle value.
	ErrDuplicateHandle = errors.New("duplicate source handle")

	// ErrMultipleSuccessors is returned by [Validate] when a non-condition
	// node has more than one outgoing edge. Branching is exclusive to
	// condition nodes.
	ErrMultipleSuccessors = errors.New("non-condition node has multiple outgoing edges")

	// ErrMissingPayload is returned by [Validate] when a node's Data does
	// not carry the payload variant matching its Type.
	ErrMissingPayload = errors.New("node payload does not match node type")
)

// Validate checks the graph invariants and returns nil if the graph is a
// valid executable automation graph:
//
//  1. Node ids are non-empty and unique across the graph
//  2. Every edge references existing nodes
//  3. At least one trigger node exists, and triggers have no incoming edges
//  4. Condition nodes have at most one outgoing edge per handle value,
//     and only handle values "true" and "false"
//  5. Non-condition nodes have at most one outgoing edge and no handles
//  6. Each node carries the payload variant its type requires
//
// Errors are wrapped with the offending node or edge for context; use
// errors.Is to check for the sentinel error values.
func Validate(g *Graph) error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return ErrInvalidNodeID
		}
		if seen[n.ID] {
			return fmt.Errorf("node %s: %w", n.ID, ErrDuplicateNodeID)
		}
		seen[n.ID] = true

		if err := validatePayload(n); err != nil {
			return err
		}
	}

	ix := g.Index()

	for _, e := range g.Edges {
		src, okSrc := ix.Node(e.Source)
		dst, okDst := ix.Node(e.Target)
		if !okSrc || !okDst {
			return fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, ErrUnknownEndpoint)
		}
		if dst.Type == NodeTrigger {
			return fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, ErrTriggerHasIncoming)
		}
		if src.Type == NodeCondition {
			if e.SourceHandle != HandleTrue && e.SourceHandle != HandleFalse {
				return fmt.Errorf("edge %s->%s handle %q: %w", e.Source, e.Target, e.SourceHandle, ErrInvalidHandle)
			}
		} else if e.SourceHandle != "" {
			return fmt.Errorf("edge %s->%s handle %q: %w", e.Source, e.Target, e.SourceHandle, ErrInvalidHandle)
		}
	}

	if len(g.Triggers()) == 0 {
		return ErrNoTrigger
	}

	for _, n := range g.Nodes {
		edges := ix.Outgoing(n.ID)
		if n.Type == NodeCondition {
			handles := make(map[string]bool, 2)
			for _, e := range edges {
				if handles[e.SourceHandle] {
					return fmt.Errorf("condition %s handle %q: %w", n.ID, e.SourceHandle, ErrDuplicateHandle)
				}
				handles[e.SourceHandle] = true
			}
		} else if len(edges) > 1 {
			return fmt.Errorf("node %s: %w", n.ID, ErrMultipleSuccessors)
		}
	}

	return nil
}

func validatePayload(n Node) error {
	ok := false
	switch n.Type {
	case NodeTrigger:
		ok = n.Data.Trigger != nil
	case NodeCondition:
		ok = n.Data.Condition != nil
	case NodeAction:
		ok = n.Data.Service != nil
	case NodeDelay:
		ok = n.Data.Delay != nil
	case NodeWait:
		ok = n.Data.Wait != nil
	case NodeSetVariables:
		ok = n.Data.Variables != nil
	default:
		return fmt.Errorf("node %s: unknown type %q", n.ID, n.Type)
	}
	if !ok {
		return fmt.Errorf("node %s (%s): %w", n.ID, n.Type, ErrMissingPayload)
	}
	return nil
}
