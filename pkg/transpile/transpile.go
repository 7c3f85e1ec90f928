package transpile

import (
	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/errors"
	"github.com/FezVrasta/hassflow/pkg/graph"
)

// Transpile lowers a graph to a YAML automation document. The strategy is
// selected by [Classify] unless Options.ForceStrategy routes directly to
// one generator; a forced generator that cannot represent the graph
// reports the conflict itself instead of being silently downgraded.
func Transpile(g *graph.Graph, opts Options) TranspileResult {
	limits := opts.Limits.withDefaults()

	strategy := opts.ForceStrategy
	switch strategy {
	case "":
		// A graph parsed from a state-machine document carries its
		// classification in the metadata; honor it without re-analysis.
		if metaString(g.Meta, "strategy") == string(StrategyStateMachine) {
			strategy = StrategyStateMachine
		} else {
			strategy = Classify(g)
		}
	case StrategyNative, StrategyStateMachine:
	default:
		return failure(strategy, nil,
			errors.New(errors.ErrCodeInvalidStrategy, "unknown strategy %q", strategy))
	}
	return runGenerator(g, strategy, limits)
}

func runGenerator(g *graph.Graph, strategy Strategy, limits Limits) TranspileResult {
	if err := graph.Validate(g); err != nil {
		return failure(strategy, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "validate graph"))
	}
	if g.NodeCount() > limits.MaxNodes {
		return failure(strategy, nil, errors.New(errors.ErrCodeOutputSize,
			"graph has %d nodes, exceeding the limit of %d", g.NodeCount(), limits.MaxNodes))
	}

	var (
		doc      *automation.Document
		warnings []string
		err      error
	)
	if strategy == StrategyNative {
		doc, warnings, err = generateNative(g, limits)
	} else {
		doc, warnings, err = generateStateMachine(g, limits)
	}
	if err != nil {
		return failure(strategy, warnings, err)
	}

	data, err := automation.Marshal(doc)
	if err != nil {
		return failure(strategy, warnings, errors.Wrap(errors.ErrCodeInternal, err, "encode document"))
	}

	return TranspileResult{
		Success:  true,
		Strategy: strategy,
		Document: doc,
		YAML:     data,
		Warnings: warnings,
	}
}

func failure(strategy Strategy, warnings []string, err error) TranspileResult {
	return TranspileResult{
		Strategy: strategy,
		Warnings: warnings,
		Errors:   []error{err},
	}
}

// documentShell rebuilds the document-level settings captured by the
// parser in the graph's metadata.
func documentShell(meta map[string]any) *automation.Document {
	doc := &automation.Document{}
	if meta == nil {
		return doc
	}
	doc.ID = metaString(meta, "automation_id")
	doc.Alias = metaString(meta, "alias")
	doc.Description = metaString(meta, "description")
	doc.Mode = metaString(meta, "mode")
	doc.Max = metaInt(meta, "max")
	doc.MaxExceeded = metaString(meta, "max_exceeded")
	if vars, ok := meta["variables"].(map[string]any); ok && len(vars) > 0 {
		doc.Variables = make(map[string]any, len(vars))
		for k, v := range vars {
			doc.Variables[k] = v
		}
	}
	return doc
}
