package transpile

import (
	"fmt"

	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/errors"
	"github.com/FezVrasta/hassflow/pkg/graph"
)

// Parse decodes a YAML automation document into a graph using the default
// limits. Legacy keys are normalized with warnings, choose blocks explode
// into condition nodes, and embedded editor metadata restores node ids
// and positions. Structural malformation fails closed: no partial graph
// is ever returned.
func Parse(data []byte) ParseResult {
	return ParseWithLimits(data, DefaultLimits())
}

// ParseWithLimits is [Parse] with explicit resource bounds.
func ParseWithLimits(data []byte, limits Limits) ParseResult {
	limits = limits.withDefaults()

	doc, warnings, err := automation.Parse(data)
	if err != nil {
		return ParseResult{
			Warnings: warnings,
			Errors:   []error{errors.Wrap(errors.ErrCodeStructural, err, "parse document")},
		}
	}

	meta, metaWarnings := DecodeMetadata(doc)
	warnings = append(warnings, metaWarnings...)

	if meta != nil && meta.Strategy == StrategyStateMachine {
		g, smWarnings, ok := decodeStateMachine(doc, meta, limits)
		warnings = append(warnings, smWarnings...)
		if ok {
			return ParseResult{Success: true, Graph: g, Warnings: warnings}
		}
		warnings = append(warnings, "state-machine layout not recognized; rebuilding the graph from the document body")
		meta.NodeOrder = nil
	}

	g, buildWarnings, err := buildGraph(doc, meta, limits)
	warnings = append(warnings, buildWarnings...)
	if err != nil {
		return ParseResult{Warnings: warnings, Errors: []error{err}}
	}
	return ParseResult{Success: true, Graph: g, Warnings: warnings}
}

// buildGraph constructs a graph from a document with the native shape:
// trigger nodes first, then the condition gates, then the exploded action
// flow.
func buildGraph(doc *automation.Document, meta *Metadata, limits Limits) (*graph.Graph, []string, error) {
	b := newBuilder(limits, meta)

	var cur []cursor
	for i := range doc.Triggers {
		t := &doc.Triggers[i]
		id := b.newNode(graph.NodeTrigger, graph.NodeData{Trigger: t})
		cur = append(cur, cursor{node: id})
	}

	for i := range doc.Conditions {
		c := doc.Conditions[i]
		if err := b.checkConditionBudget(c); err != nil {
			return nil, b.warnings, err
		}
		id := b.newNode(graph.NodeCondition, graph.NodeData{
			Label:     c.Alias,
			Enabled:   c.Enabled,
			Condition: &c,
		})
		b.link(cur, id)
		cur = []cursor{{node: id, handle: graph.HandleTrue}}
	}

	if _, err := b.sequence(doc.Actions, cur, 0); err != nil {
		return nil, b.warnings, err
	}

	if b.g.NodeCount() > limits.MaxNodes {
		return nil, b.warnings, errors.New(errors.ErrCodeOutputSize,
			"graph has %d nodes, exceeding the limit of %d", b.g.NodeCount(), limits.MaxNodes)
	}

	b.finish(doc, meta)
	return b.g, b.warnings, nil
}

// cursor is a pending attachment point: the node (and, for condition
// sources, the handle) the next created node hangs off.
type cursor struct {
	node   string
	handle string
}

type builder struct {
	g        *graph.Graph
	limits   Limits
	warnings []string

	// ids restored from metadata, consumed in construction order.
	order    []string
	next     int
	fallback bool
	counters map[string]int
}

func newBuilder(limits Limits, meta *Metadata) *builder {
	b := &builder{
		g:        &graph.Graph{},
		limits:   limits,
		counters: make(map[string]int),
	}
	if meta != nil {
		b.order = meta.NodeOrder
	}
	return b
}

var nodePrefix = map[graph.NodeType]string{
	graph.NodeTrigger:      "trigger",
	graph.NodeCondition:    "condition",
	graph.NodeAction:       "action",
	graph.NodeDelay:        "delay",
	graph.NodeWait:         "wait",
	graph.NodeSetVariables: "variables",
}

func (b *builder) newNode(t graph.NodeType, data graph.NodeData) string {
	id := b.nextID(nodePrefix[t])
	b.g.Nodes = append(b.g.Nodes, graph.Node{ID: id, Type: t, Data: data})
	return id
}

func (b *builder) nextID(prefix string) string {
	if !b.fallback && b.next < len(b.order) {
		id := b.order[b.next]
		b.next++
		return id
	}
	if !b.fallback && len(b.order) > 0 {
		b.fallback = true
		b.warnings = append(b.warnings, "node order metadata does not cover the document; minting fresh node ids")
	}
	b.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, b.counters[prefix])
}

func (b *builder) link(from []cursor, to string) {
	for _, c := range from {
		id := c.node + "-" + to
		if c.handle != "" {
			id = c.node + "-" + c.handle + "-" + to
		}
		b.g.Edges = append(b.g.Edges, graph.Edge{
			ID:           id,
			Source:       c.node,
			Target:       to,
			SourceHandle: c.handle,
		})
	}
}

// sequence builds nodes for an action list, attaching the first one to
// every incoming cursor and returning the dangling cursors where the flow
// continues afterwards.
func (b *builder) sequence(actions []automation.Action, in []cursor, depth int) ([]cursor, error) {
	if depth > b.limits.MaxDepth {
		return nil, errors.New(errors.ErrCodeOutputSize,
			"action nesting exceeds %d levels", b.limits.MaxDepth)
	}

	cur := in
	for i := range actions {
		a := &actions[i]
		switch {
		case a.Service != nil:
			id := b.newNode(graph.NodeAction, graph.NodeData{
				Label: a.Alias, Enabled: a.Enabled, Service: a.Service,
			})
			b.link(cur, id)
			cur = []cursor{{node: id}}

		case a.Delay != nil:
			id := b.newNode(graph.NodeDelay, graph.NodeData{
				Label: a.Alias, Enabled: a.Enabled, Delay: a.Delay,
			})
			b.link(cur, id)
			cur = []cursor{{node: id}}

		case a.Wait != nil:
			id := b.newNode(graph.NodeWait, graph.NodeData{
				Label: a.Alias, Enabled: a.Enabled, Wait: a.Wait,
			})
			b.link(cur, id)
			cur = []cursor{{node: id}}

		case a.Variables != nil:
			id := b.newNode(graph.NodeSetVariables, graph.NodeData{
				Label: a.Alias, Enabled: a.Enabled, Variables: a.Variables,
			})
			b.link(cur, id)
			cur = []cursor{{node: id}}

		case a.Condition != nil:
			p := *a.Condition
			if err := b.checkConditionBudget(p); err != nil {
				return nil, err
			}
			id := b.newNode(graph.NodeCondition, graph.NodeData{
				Label: p.Alias, Enabled: p.Enabled, Condition: &p,
			})
			b.link(cur, id)
			cur = []cursor{{node: id, handle: graph.HandleTrue}}

		case a.Choose != nil:
			out, err := b.choose(a.Choose, cur, depth)
			if err != nil {
				return nil, err
			}
			cur = out

		case a.Repeat != nil:
			return nil, errors.New(errors.ErrCodeStructural,
				"repeat blocks have no graph representation outside state-machine documents")

		default:
			return nil, errors.New(errors.ErrCodeStructural, "action entry %d has no recognizable kind", i)
		}
	}
	return cur, nil
}

// choose explodes a choose block: one condition node per option, wired
// "true" into the option's subsequence and "false" into the next option's
// condition (or the default sequence after the last one). All dangling
// tails become the block's continuation cursors.
func (b *builder) choose(ch *automation.Choose, in []cursor, depth int) ([]cursor, error) {
	before := b.g.NodeCount()
	branches := len(ch.Options)
	if len(ch.Default) > 0 {
		branches++
	}
	if branches == 0 {
		return in, nil
	}

	var out []cursor
	prev := in
	for i := range ch.Options {
		opt := &ch.Options[i]
		payload := optionCondition(opt.Conditions)
		if err := b.checkConditionBudget(payload); err != nil {
			return nil, err
		}
		id := b.newNode(graph.NodeCondition, graph.NodeData{
			Label:     opt.Alias,
			Condition: &payload,
		})
		b.link(prev, id)

		tails, err := b.sequence(opt.Sequence, []cursor{{node: id, handle: graph.HandleTrue}}, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, tails...)
		prev = []cursor{{node: id, handle: graph.HandleFalse}}
	}

	if len(ch.Default) > 0 {
		tails, err := b.sequence(ch.Default, prev, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, tails...)
	} else {
		out = append(out, prev...)
	}

	if produced := b.g.NodeCount() - before; produced > b.limits.ExplosionFactor*branches {
		return nil, errors.New(errors.ErrCodeOutputSize,
			"choose block with %d branches explodes into %d nodes, exceeding the budget of %d",
			branches, produced, b.limits.ExplosionFactor*branches)
	}
	return out, nil
}

// optionCondition reduces an option's condition list to one payload: a
// single condition stays as-is, several wrap into an and group. Groups
// remain data on one node, never separate nodes.
func optionCondition(conds []automation.ConditionData) automation.ConditionData {
	if len(conds) == 1 {
		return conds[0]
	}
	return automation.ConditionData{
		Condition:  automation.ConditionAnd,
		Conditions: conds,
	}
}

func (b *builder) checkConditionBudget(c automation.ConditionData) error {
	branches := len(c.Conditions)
	if branches < 1 {
		branches = 1
	}
	budget := b.limits.ExplosionFactor * branches
	if size := c.Size(); size > budget {
		return errors.New(errors.ErrCodeOutputSize,
			"condition group holds %d entries, exceeding the budget of %d", size, budget)
	}
	return nil
}

// finish applies document metadata and restored layout to the graph.
func (b *builder) finish(doc *automation.Document, meta *Metadata) {
	b.g.Meta = docMeta(doc)

	if meta == nil {
		return
	}
	if b.g.Meta == nil {
		b.g.Meta = make(map[string]any)
	}
	if meta.GraphID != "" {
		b.g.Meta["graph_id"] = meta.GraphID
	}
	if meta.GraphVersion > 0 {
		b.g.Meta["graph_version"] = meta.GraphVersion
	}
	if meta.Strategy != "" {
		b.g.Meta["strategy"] = string(meta.Strategy)
	}
	if b.fallback || len(meta.Positions) == 0 {
		if b.fallback && len(meta.Positions) > 0 {
			b.warnings = append(b.warnings, "stored node positions no longer match; dropped")
		}
		return
	}
	for i := range b.g.Nodes {
		if pos, ok := meta.Positions[b.g.Nodes[i].ID]; ok {
			p := pos
			b.g.Nodes[i].Position = &p
		}
	}
}

// docMeta captures the document-level settings that have no graph node,
// so generation can restore them.
func docMeta(doc *automation.Document) map[string]any {
	m := make(map[string]any)
	if doc.ID != "" {
		m["automation_id"] = doc.ID
	}
	if doc.Alias != "" {
		m["alias"] = doc.Alias
	}
	if doc.Description != "" {
		m["description"] = doc.Description
	}
	if doc.Mode != "" {
		m["mode"] = doc.Mode
	}
	if doc.Max > 0 {
		m["max"] = doc.Max
	}
	if doc.MaxExceeded != "" {
		m["max_exceeded"] = doc.MaxExceeded
	}
	if len(doc.Variables) > 0 {
		m["variables"] = doc.Variables
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// decodeStateMachine reconstructs a graph from a document generated with
// the state-machine strategy by reading the dispatch table back: one node
// per dispatch branch, edges from the tracking-variable assignments.
// Returns ok=false when the document does not have the emitted shape.
func decodeStateMachine(doc *automation.Document, meta *Metadata, limits Limits) (*graph.Graph, []string, bool) {
	if len(doc.Actions) != 2 {
		return nil, nil, false
	}
	entry, ok := stateAssignment(doc.Actions[:1])
	if !ok {
		return nil, nil, false
	}
	rep := doc.Actions[1].Repeat
	if rep == nil || len(rep.Sequence) != 1 || rep.Sequence[0].Choose == nil {
		return nil, nil, false
	}
	dispatch := rep.Sequence[0].Choose

	b := newBuilder(limits, meta)

	var triggers []cursor
	for i := range doc.Triggers {
		id := b.newNode(graph.NodeTrigger, graph.NodeData{Trigger: &doc.Triggers[i]})
		triggers = append(triggers, cursor{node: id})
	}

	type transition struct {
		from, to, handle string
	}
	var transitions []transition

	for i := range dispatch.Options {
		opt := &dispatch.Options[i]
		if len(opt.Conditions) != 1 {
			return nil, nil, false
		}
		id, ok := parseStateEquals(opt.Conditions[0])
		if !ok || len(opt.Sequence) == 0 {
			return nil, nil, false
		}

		if len(opt.Sequence) == 1 && opt.Sequence[0].Choose != nil {
			nested := opt.Sequence[0].Choose
			if len(nested.Options) != 1 || len(nested.Options[0].Conditions) != 1 {
				return nil, nil, false
			}
			trueNext, okT := stateAssignment(nested.Options[0].Sequence)
			falseNext, okF := stateAssignment(nested.Default)
			if !okT || !okF {
				return nil, nil, false
			}
			payload := nested.Options[0].Conditions[0]
			b.g.Nodes = append(b.g.Nodes, graph.Node{
				ID:   id,
				Type: graph.NodeCondition,
				Data: graph.NodeData{Label: opt.Alias, Enabled: payload.Enabled, Condition: &payload},
			})
			transitions = append(transitions,
				transition{from: id, to: trueNext, handle: graph.HandleTrue},
				transition{from: id, to: falseNext, handle: graph.HandleFalse})
			continue
		}

		if len(opt.Sequence) != 2 {
			return nil, nil, false
		}
		next, ok := stateAssignment(opt.Sequence[1:])
		if !ok {
			return nil, nil, false
		}
		effect := opt.Sequence[0]

		data := graph.NodeData{Label: effect.Alias, Enabled: effect.Enabled}
		var kind graph.NodeType
		switch {
		case effect.Service != nil:
			kind, data.Service = graph.NodeAction, effect.Service
		case effect.Delay != nil:
			kind, data.Delay = graph.NodeDelay, effect.Delay
		case effect.Wait != nil:
			kind, data.Wait = graph.NodeWait, effect.Wait
		case effect.Variables != nil:
			kind, data.Variables = graph.NodeSetVariables, effect.Variables
		default:
			return nil, nil, false
		}
		b.g.Nodes = append(b.g.Nodes, graph.Node{ID: id, Type: kind, Data: data})
		transitions = append(transitions, transition{from: id, to: next})
	}

	ix := b.g.Index()
	if entry != stateEnd {
		if _, ok := ix.Node(entry); !ok {
			return nil, nil, false
		}
		b.link(triggers, entry)
	}
	for _, tr := range transitions {
		if tr.to == stateEnd {
			continue
		}
		if _, ok := ix.Node(tr.to); !ok {
			return nil, nil, false
		}
		b.link([]cursor{{node: tr.from, handle: tr.handle}}, tr.to)
	}

	if err := graph.Validate(b.g); err != nil {
		return nil, nil, false
	}
	b.finish(doc, meta)
	return b.g, b.warnings, true
}
