package transpile

import (
	"fmt"
	"strings"

	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/errors"
	"github.com/FezVrasta/hassflow/pkg/graph"
)

// stateVariable is the synthetic tracking variable holding the id of the
// node to execute next. Namespaced to keep clear of user variables.
const stateVariable = "__hassflow_state__"

// stateEnd is the sentinel value that terminates the dispatch loop.
const stateEnd = "end"

// GenerateStateMachine lowers a graph of any topology to a document that
// emulates it with a tracking variable and a dispatch loop.
func GenerateStateMachine(g *graph.Graph) TranspileResult {
	return runGenerator(g, StrategyStateMachine, DefaultLimits())
}

func generateStateMachine(g *graph.Graph, limits Limits) (*automation.Document, []string, error) {
	ix := g.Index()

	entry, err := g.EntryPoint()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve entry point")
	}

	doc := documentShell(g.Meta)
	var order []string
	for _, t := range g.Triggers() {
		doc.Triggers = append(doc.Triggers, *t.Data.Trigger)
		order = append(order, t.ID)
	}

	var opts []automation.ChooseOption
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Type == graph.NodeTrigger {
			continue
		}
		seq, err := dispatchSequence(ix, n)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, automation.ChooseOption{
			Alias:      n.Data.Label,
			Conditions: []automation.ConditionData{automation.TemplateCondition(stateEquals(n.ID))},
			Sequence:   seq,
		})
		order = append(order, n.ID)
	}

	entryValue := entry
	if entryValue == "" {
		entryValue = stateEnd
	}

	doc.Actions = []automation.Action{
		setState(entryValue),
		{Repeat: &automation.Repeat{
			While: []automation.ConditionData{
				automation.TemplateCondition(fmt.Sprintf("{{ %s != '%s' }}", stateVariable, stateEnd)),
				automation.TemplateCondition(fmt.Sprintf("{{ repeat.index <= %d }}", limits.IterationCeiling)),
			},
			Sequence: []automation.Action{{Choose: &automation.Choose{
				Options: opts,
				Default: []automation.Action{setState(stateEnd)},
			}}},
		}},
	}

	var warnings []string
	if an := Analyze(g); len(an.BackEdges) > 0 {
		warnings = append(warnings,
			fmt.Sprintf("graph contains cycles; the dispatch loop stops after %d iterations", limits.IterationCeiling))
	}

	EncodeMetadata(doc, g, StrategyStateMachine, order)
	return doc, warnings, nil
}

// dispatchSequence builds the body of one dispatch branch: the node's
// effect followed by the assignment that advances the tracking variable.
// A condition node evaluates its predicate through a nested choose whose
// two outcomes assign the respective successor.
func dispatchSequence(ix *graph.Index, n *graph.Node) ([]automation.Action, error) {
	if n.Type == graph.NodeCondition {
		t, _ := ix.Branch(n.ID, graph.HandleTrue)
		f, _ := ix.Branch(n.ID, graph.HandleFalse)
		return []automation.Action{{Choose: &automation.Choose{
			Options: []automation.ChooseOption{{
				Conditions: []automation.ConditionData{condPayload(n)},
				Sequence:   []automation.Action{setState(orEnd(t))},
			}},
			Default: []automation.Action{setState(orEnd(f))},
		}}}, nil
	}

	var effect automation.Action
	switch n.Type {
	case graph.NodeAction:
		effect = automation.Action{Alias: n.Data.Label, Enabled: n.Data.Enabled, Service: n.Data.Service}
	case graph.NodeDelay:
		effect = automation.Action{Alias: n.Data.Label, Enabled: n.Data.Enabled, Delay: n.Data.Delay}
	case graph.NodeWait:
		effect = automation.Action{Alias: n.Data.Label, Enabled: n.Data.Enabled, Wait: n.Data.Wait}
	case graph.NodeSetVariables:
		effect = automation.Action{Alias: n.Data.Label, Enabled: n.Data.Enabled, Variables: n.Data.Variables}
	default:
		return nil, errors.New(errors.ErrCodeInternal, "node %s has unknown type %q", n.ID, n.Type)
	}

	next, _ := ix.Successor(n.ID)
	return []automation.Action{effect, setState(orEnd(next))}, nil
}

func setState(value string) automation.Action {
	return automation.Action{Variables: map[string]any{stateVariable: value}}
}

func orEnd(id string) string {
	if id == "" {
		return stateEnd
	}
	return id
}

func stateEquals(id string) string {
	return fmt.Sprintf("{{ %s == '%s' }}", stateVariable, id)
}

// parseStateEquals extracts the node id from a dispatch predicate emitted
// by stateEquals. Returns false when the condition is not of that shape.
func parseStateEquals(c automation.ConditionData) (string, bool) {
	if c.Condition != automation.ConditionTemplate {
		return "", false
	}
	expr, _ := c.Options["value_template"].(string)
	if !strings.Contains(expr, stateVariable) {
		return "", false
	}
	open := strings.Index(expr, "'")
	if open < 0 {
		return "", false
	}
	length := strings.Index(expr[open+1:], "'")
	if length < 0 {
		return "", false
	}
	return expr[open+1 : open+1+length], true
}

// stateAssignment recognizes the tracking-variable assignment emitted by
// setState and returns the target node id.
func stateAssignment(actions []automation.Action) (string, bool) {
	if len(actions) != 1 || actions[0].Variables == nil {
		return "", false
	}
	v, ok := actions[0].Variables[stateVariable].(string)
	return v, ok
}
