package transpile

import (
	"sort"

	"github.com/FezVrasta/hassflow/pkg/graph"
)

// Analysis is the outcome of [Analyze]: the selected strategy plus the
// topological findings that forced emulation, for error reporting.
type Analysis struct {
	Strategy Strategy

	// BackEdges lists the edges closing a cycle, in DFS discovery order.
	BackEdges []graph.Edge

	// Reconvergent lists condition nodes whose branches rejoin somewhere
	// other than a single shared continuation, and nodes reached by more
	// than one branch.
	Reconvergent []string
}

// Classify selects the strategy for a graph: StrategyNative when the
// topology lowers to nested if/else structure, StrategyStateMachine
// otherwise.
func Classify(g *graph.Graph) Strategy {
	return Analyze(g).Strategy
}

// Analyze inspects the graph's topology. Cycles always force the
// state-machine strategy; so does any branch reconvergence that is not a
// simple nested if/else merge at a single shared continuation.
func Analyze(g *graph.Graph) *Analysis {
	ix := g.Index()
	an := &Analysis{Strategy: StrategyNative}
	an.BackEdges = findBackEdges(g, ix)
	if len(an.BackEdges) == 0 {
		// The merge walk assumes an acyclic graph.
		an.Reconvergent = nonStructuralMerges(g, ix)
	}
	if len(an.BackEdges) > 0 || len(an.Reconvergent) > 0 {
		an.Strategy = StrategyStateMachine
	}
	return an
}

const (
	colorWhite = iota
	colorGray
	colorBlack
)

// findBackEdges runs an iterative depth-first search from every trigger
// node. An edge into a gray (on-stack) node closes a cycle.
func findBackEdges(g *graph.Graph, ix *graph.Index) []graph.Edge {
	color := make(map[string]int, len(g.Nodes))
	var backs []graph.Edge

	type frame struct {
		id    string
		edges []*graph.Edge
		next  int
	}

	for _, t := range g.Triggers() {
		if color[t.ID] != colorWhite {
			continue
		}
		color[t.ID] = colorGray
		stack := []frame{{id: t.ID, edges: ix.Outgoing(t.ID)}}
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next >= len(f.edges) {
				color[f.id] = colorBlack
				stack = stack[:len(stack)-1]
				continue
			}
			e := f.edges[f.next]
			f.next++
			switch color[e.Target] {
			case colorGray:
				backs = append(backs, *e)
			case colorWhite:
				color[e.Target] = colorGray
				stack = append(stack, frame{id: e.Target, edges: ix.Outgoing(e.Target)})
			}
		}
	}
	return backs
}

// nonStructuralMerges walks the graph the way the native generator would
// and collects every condition node whose branches do not rejoin as a
// simple nested if/else, plus any node entered by more than one branch.
func nonStructuralMerges(g *graph.Graph, ix *graph.Index) []string {
	entry, err := g.EntryPoint()
	if err != nil || entry == "" {
		return nil
	}
	w := &mergeWalk{ix: ix, visited: make(map[string]bool)}
	w.walk(entry, "", 0)
	sort.Strings(w.conflicts)
	return w.conflicts
}

type mergeWalk struct {
	ix        *graph.Index
	visited   map[string]bool
	conflicts []string
}

func (w *mergeWalk) walk(start, stop string, depth int) {
	if depth > DefaultMaxDepth {
		return
	}
	cur := start
	for cur != "" && cur != stop {
		if w.visited[cur] {
			w.conflicts = append(w.conflicts, cur)
			return
		}
		w.visited[cur] = true

		n, ok := w.ix.Node(cur)
		if !ok {
			return
		}
		if n.Type != graph.NodeCondition {
			cur, _ = w.ix.Successor(cur)
			continue
		}

		t, okT := w.ix.Branch(cur, graph.HandleTrue)
		f, okF := w.ix.Branch(cur, graph.HandleFalse)
		switch {
		case okT && !okF:
			cur = t
		case !okT && !okF:
			return
		case !okT && okF:
			w.walk(f, stop, depth+1)
			return
		default:
			join, entries := joinWithin(w.ix, t, f, stop)
			if join == "" && len(entries) > 0 {
				w.conflicts = append(w.conflicts, cur)
				return
			}
			w.walk(t, join, depth+1)
			w.walk(f, join, depth+1)
			cur = join
		}
	}
}

// joinWithin locates the node where the two branches of a condition
// rejoin, looking no further than stop (the enclosing continuation).
//
// The shared region is every node reachable from both branch heads. A
// simple nested if/else enters that region through exactly one node, the
// join; the join is then returned with a single-element entries slice.
// An empty join with a non-empty entry list means the merge has no
// structural equivalent: either the shared region is entered at several
// nodes, or only one branch reaches the enclosing continuation while the
// other dead-ends. An empty join with no entries means the branches never
// rejoin before stop.
func joinWithin(ix *graph.Index, t, f, stop string) (string, []string) {
	rt := boundedReach(ix, t, stop)
	rf := boundedReach(ix, f, stop)

	shared := make(map[string]bool)
	for id := range rt {
		if rf[id] {
			shared[id] = true
		}
	}
	delete(shared, stop)

	if len(shared) == 0 {
		if stop != "" && rt[stop] && rf[stop] {
			return stop, []string{stop}
		}
		if stop != "" && (rt[stop] || rf[stop]) {
			// One branch falls through to the continuation, the other
			// dead-ends: emitting the continuation after the block would
			// put it on both paths.
			return "", []string{stop}
		}
		return "", nil
	}

	var entries []string
	for id := range shared {
		if id == t || id == f {
			entries = append(entries, id)
			continue
		}
		for _, e := range ix.Incoming(id) {
			if !shared[e.Source] {
				entries = append(entries, id)
				break
			}
		}
	}
	sort.Strings(entries)
	if len(entries) == 1 {
		return entries[0], entries
	}
	return "", entries
}

// boundedReach is forward reachability from start that includes stop when
// reached but never traverses beyond it.
func boundedReach(ix *graph.Index, start, stop string) map[string]bool {
	reached := make(map[string]bool)
	if start == "" {
		return reached
	}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true
		if id == stop {
			continue
		}
		for _, e := range ix.Outgoing(id) {
			if !reached[e.Target] {
				stack = append(stack, e.Target)
			}
		}
	}
	return reached
}
