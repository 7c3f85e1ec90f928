package transpile

import (
	"strings"

	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/errors"
	"github.com/FezVrasta/hassflow/pkg/graph"
)

// GenerateNative lowers a native-representable graph to a document with
// the structural strategy. Invoking it on a cyclic or non-structurally
// reconvergent graph fails with a STRATEGY_CONFLICT error enumerating the
// offending nodes and edges; no best-effort document is ever produced.
func GenerateNative(g *graph.Graph) TranspileResult {
	return runGenerator(g, StrategyNative, DefaultLimits())
}

func generateNative(g *graph.Graph, limits Limits) (*automation.Document, []string, error) {
	ix := g.Index()

	if an := Analyze(g); an.Strategy != StrategyNative {
		return nil, nil, strategyConflict(an)
	}

	entry, err := g.EntryPoint()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve entry point")
	}

	doc := documentShell(g.Meta)
	em := &nativeEmitter{ix: ix, limits: limits, emitted: make(map[string]bool)}

	for _, t := range g.Triggers() {
		doc.Triggers = append(doc.Triggers, *t.Data.Trigger)
		em.order = append(em.order, t.ID)
	}

	// Leading condition nodes with only a "true" edge become the
	// document's condition section: they gate continuation, they do
	// not branch.
	cur := entry
	for cur != "" {
		n, ok := ix.Node(cur)
		if !ok || n.Type != graph.NodeCondition {
			break
		}
		if _, hasFalse := ix.Branch(cur, graph.HandleFalse); hasFalse {
			break
		}
		doc.Conditions = append(doc.Conditions, condPayload(n))
		em.emitted[cur] = true
		em.order = append(em.order, cur)
		cur, _ = ix.Branch(cur, graph.HandleTrue)
	}

	actions, err := em.sequence(cur, "", 0)
	if err != nil {
		return nil, nil, err
	}
	if actions == nil {
		actions = []automation.Action{}
	}
	doc.Actions = actions

	EncodeMetadata(doc, g, StrategyNative, em.order)
	return doc, nil, nil
}

func strategyConflict(an *Analysis) error {
	var parts []string
	for _, e := range an.BackEdges {
		parts = append(parts, "cycle through edge "+e.Source+"->"+e.Target)
	}
	for _, id := range an.Reconvergent {
		parts = append(parts, "non-structured reconvergence at node "+id)
	}
	return errors.New(errors.ErrCodeStrategyConflict,
		"graph is not native-representable: %s", strings.Join(parts, "; "))
}

type nativeEmitter struct {
	ix      *graph.Index
	limits  Limits
	emitted map[string]bool
	order   []string
}

// sequence emits the linear action list from start up to (excluding) stop,
// lowering each condition node with two branches into a choose block and
// resuming at the branches' join.
func (em *nativeEmitter) sequence(start, stop string, depth int) ([]automation.Action, error) {
	if depth > em.limits.MaxDepth {
		return nil, errors.New(errors.ErrCodeOutputSize,
			"branch nesting exceeds %d levels", em.limits.MaxDepth)
	}

	var out []automation.Action
	cur := start
	for cur != "" && cur != stop {
		n, ok := em.ix.Node(cur)
		if !ok {
			return nil, errors.New(errors.ErrCodeInternal, "edge references missing node %s", cur)
		}
		if em.emitted[cur] {
			return nil, errors.New(errors.ErrCodeStrategyConflict,
				"node %s is reached by more than one branch", cur)
		}
		em.emitted[cur] = true
		em.order = append(em.order, cur)

		switch n.Type {
		case graph.NodeAction:
			out = append(out, automation.Action{
				Alias:   n.Data.Label,
				Enabled: n.Data.Enabled,
				Service: n.Data.Service,
			})
			cur, _ = em.ix.Successor(cur)

		case graph.NodeDelay:
			out = append(out, automation.Action{
				Alias:   n.Data.Label,
				Enabled: n.Data.Enabled,
				Delay:   n.Data.Delay,
			})
			cur, _ = em.ix.Successor(cur)

		case graph.NodeWait:
			out = append(out, automation.Action{
				Alias:   n.Data.Label,
				Enabled: n.Data.Enabled,
				Wait:    n.Data.Wait,
			})
			cur, _ = em.ix.Successor(cur)

		case graph.NodeSetVariables:
			out = append(out, automation.Action{
				Alias:     n.Data.Label,
				Enabled:   n.Data.Enabled,
				Variables: n.Data.Variables,
			})
			cur, _ = em.ix.Successor(cur)

		case graph.NodeCondition:
			t, okT := em.ix.Branch(cur, graph.HandleTrue)
			f, okF := em.ix.Branch(cur, graph.HandleFalse)
			switch {
			case okT && !okF:
				// Gate: a failed condition halts the sequence.
				p := condPayload(n)
				out = append(out, automation.Action{Condition: &p})
				cur = t
			case !okT && !okF:
				p := condPayload(n)
				out = append(out, automation.Action{Condition: &p})
				cur = ""
			case !okT && okF:
				falseSeq, err := em.sequence(f, stop, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, automation.Action{Choose: &automation.Choose{
					Options: []automation.ChooseOption{optionFor(n, nil)},
					Default: falseSeq,
				}})
				cur = ""
			default:
				act, join, err := em.choose(cur, stop, depth)
				if err != nil {
					return nil, err
				}
				out = append(out, act)
				cur = join
			}

		case graph.NodeTrigger:
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"trigger node %s appears inside the action flow", cur)

		default:
			return nil, errors.New(errors.ErrCodeInternal, "node %s has unknown type %q", cur, n.Type)
		}
	}
	return out, nil
}

// choose lowers a condition node with two branches into a choose block.
// Chained else-if conditions sharing the same join fold into additional
// options of the same block, so a reparse reconstructs the chain as the
// same node sequence. The first condition is already marked emitted by
// the caller.
func (em *nativeEmitter) choose(condID, stop string, depth int) (automation.Action, string, error) {
	t, _ := em.ix.Branch(condID, graph.HandleTrue)
	f, _ := em.ix.Branch(condID, graph.HandleFalse)

	join, entries := joinWithin(em.ix, t, f, stop)
	if join == "" && len(entries) > 0 {
		return automation.Action{}, "", errors.New(errors.ErrCodeStrategyConflict,
			"branches of condition %s do not reconverge at a single shared continuation: %s",
			condID, strings.Join(entries, ", "))
	}

	ch := &automation.Choose{}
	cur := condID
	for {
		n, _ := em.ix.Node(cur)
		t, _ := em.ix.Branch(cur, graph.HandleTrue)
		f, okF := em.ix.Branch(cur, graph.HandleFalse)

		trueSeq, err := em.sequence(t, join, depth+1)
		if err != nil {
			return automation.Action{}, "", err
		}
		ch.Options = append(ch.Options, optionFor(n, trueSeq))

		if !okF || f == join {
			// No else branch: the "false" path continues straight at
			// the join.
			break
		}
		if next, ok := em.foldable(f, join, stop); ok {
			em.emitted[next] = true
			em.order = append(em.order, next)
			cur = next
			continue
		}
		defSeq, err := em.sequence(f, join, depth+1)
		if err != nil {
			return automation.Action{}, "", err
		}
		ch.Default = defSeq
		break
	}
	return automation.Action{Choose: ch}, join, nil
}

// foldable reports whether the false branch starts another condition that
// can become one more option of the current choose block: a condition
// entered only from here, with both handles, whose branches rejoin at the
// same join.
func (em *nativeEmitter) foldable(f, join, stop string) (string, bool) {
	n, ok := em.ix.Node(f)
	if !ok || n.Type != graph.NodeCondition || em.ix.InDegree(f) != 1 || em.emitted[f] {
		return "", false
	}
	ft, okT := em.ix.Branch(f, graph.HandleTrue)
	ff, okF := em.ix.Branch(f, graph.HandleFalse)
	if !okT || !okF {
		return "", false
	}
	fj, fent := joinWithin(em.ix, ft, ff, stop)
	if fj != join || (fj == "" && len(fent) > 0) {
		return "", false
	}
	return f, true
}

// optionFor builds a choose option from a condition node. A bare and
// group with no payload of its own unfolds back into the option's
// condition list, mirroring how the parser wraps multi-condition options.
func optionFor(n *graph.Node, seq []automation.Action) automation.ChooseOption {
	p := *n.Data.Condition
	conds := []automation.ConditionData{p}
	if p.Condition == automation.ConditionAnd && p.Alias == "" && p.Enabled == nil && len(p.Options) == 0 {
		conds = p.Conditions
	}
	if seq == nil {
		seq = []automation.Action{}
	}
	return automation.ChooseOption{
		Alias:      n.Data.Label,
		Conditions: conds,
		Sequence:   seq,
	}
}

// condPayload copies a condition node's payload, merging display label and
// enabled flag in when the payload itself does not carry them.
func condPayload(n *graph.Node) automation.ConditionData {
	p := *n.Data.Condition
	if p.Alias == "" && n.Data.Label != "" {
		p.Alias = n.Data.Label
	}
	if p.Enabled == nil && n.Data.Enabled != nil {
		p.Enabled = n.Data.Enabled
	}
	return p
}
