package graph

import (
	"errors"
	"fmt"
)

// ErrAmbiguousEntry is returned by [Graph.EntryPoint] when two triggers
// continue to different nodes. Every trigger shares the one action flow.
var ErrAmbiguousEntry = errors.New("triggers continue to different nodes")

// Reachable computes the set of node ids reachable from the given start
// nodes, following edges forward. The start nodes themselves are included.
func (ix *Index) Reachable(starts ...string) map[string]bool {
	reached := make(map[string]bool)
	stack := make([]string, 0, len(starts))
	for _, s := range starts {
		if _, ok := ix.Node(s); ok {
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true
		for _, e := range ix.Outgoing(id) {
			if !reached[e.Target] {
				stack = append(stack, e.Target)
			}
		}
	}
	return reached
}

// EntryPoint returns the id of the node where execution continues once the
// triggers fire. Triggers never take incoming edges, so each trigger with
// an outgoing edge must point at the same entry node; disagreement yields
// ErrAmbiguousEntry. Returns "" when no trigger continues anywhere.
func (g *Graph) EntryPoint() (string, error) {
	ix := g.Index()
	entry := ""
	for _, t := range g.Triggers() {
		next, ok := ix.Successor(t.ID)
		if !ok {
			continue
		}
		if entry == "" {
			entry = next
			continue
		}
		if next != entry {
			return "", fmt.Errorf("trigger %s: %w", t.ID, ErrAmbiguousEntry)
		}
	}
	return entry, nil
}
