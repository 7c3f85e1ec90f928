// Package transpile converts automation configuration documents to and
// from node/edge graphs.
//
// The two public operations mirror the two directions:
//
//   - [Parse] decodes a YAML document into a [graph.Graph], normalizing
//     legacy keys, exploding choose blocks into condition nodes, and
//     restoring layout metadata when the document carries it.
//   - [Transpile] lowers a graph back into a document, choosing between
//     the native structural strategy and the state-machine emulation
//     based on the graph's topology (or an explicit override).
//
// The native strategy requires an acyclic graph whose branches rejoin only
// as simple nested if/else shapes; [Analyze] classifies a graph and
// enumerates the cycles and non-structured merges that force emulation.
// The state-machine strategy accepts any topology by dispatching on a
// synthetic tracking variable inside a bounded repeat loop.
//
// Both directions are pure: no I/O, no shared state, and every failure is
// reported through the result structs rather than panics. Explosion and
// recursion are bounded by [Limits].
package transpile
