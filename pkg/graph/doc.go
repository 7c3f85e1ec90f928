// Package graph defines the node/edge structure representing one automation
// rule for editing and transpilation.
//
// A Graph is the serialization format exchanged with the visual editor:
// nodes are a tagged union over the step variants (trigger, condition,
// action, delay, wait, set_variables), edges are directed and may carry a
// source handle ("true"/"false") on condition outputs. Node positions are
// display-only and carry no semantic weight.
//
// The transpiler treats a Graph as read-only input: build it, validate it
// with [Validate], index it with [Graph.Index], and discard it once a
// document has been produced. A Graph is not safe for concurrent mutation
// with an in-flight parse or transpile call.
package graph
