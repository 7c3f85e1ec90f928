// Package render produces visual previews of automation graphs.
//
// Graphs are converted to Graphviz DOT source with per-variant node
// styling, then optionally rendered to SVG in process via
// [github.com/goccy/go-graphviz]. Condition branches are labeled with
// their handle so true and false paths read directly off the diagram.
//
// Usage:
//
//	dot := render.ToDOT(g, render.Options{})
//	svg, err := render.SVG(ctx, g, render.Options{})
package render
