package transpile

import (
	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/graph"
)

// Strategy selects which generator lowers a graph to a document.
type Strategy string

const (
	// StrategyNative lowers the graph structurally, preserving the
	// document's branch and sequence constructs one-to-one.
	StrategyNative Strategy = "native"

	// StrategyStateMachine emulates arbitrary topology with a tracking
	// variable and a dispatch loop.
	StrategyStateMachine Strategy = "state-machine"
)

// ParseResult is the outcome of [Parse]. On failure Graph is nil and
// Errors is populated; Warnings may be present either way.
type ParseResult struct {
	Success  bool
	Graph    *graph.Graph
	Warnings []string
	Errors   []error
}

// TranspileResult is the outcome of [Transpile] and of the two generator
// entry points. YAML holds the marshaled document when Success is true.
type TranspileResult struct {
	Success  bool
	Strategy Strategy
	Document *automation.Document
	YAML     []byte
	Warnings []string
	Errors   []error
}

// Options configures a [Transpile] call.
type Options struct {
	// ForceStrategy bypasses classification and routes directly to the
	// requested generator. The generator itself reports incompatibility;
	// no silent reclassification happens.
	ForceStrategy Strategy

	// Limits overrides the default resource bounds. Zero fields keep
	// their defaults.
	Limits Limits
}
