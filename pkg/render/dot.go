package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/FezVrasta/hassflow/pkg/graph"
)

// Format selects the render output.
type Format string

const (
	// FormatDOT emits Graphviz DOT source.
	FormatDOT Format = "dot"

	// FormatSVG emits an SVG rendered in process.
	FormatSVG Format = "svg"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed includes payload summaries in node labels.
	// When false, only the label or id is shown.
	Detailed bool
}

// Render produces a preview of the graph in the requested format.
func Render(ctx context.Context, g *graph.Graph, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(ToDOT(g, opts)), nil
	case FormatSVG:
		return SVG(ctx, g, opts)
	default:
		return nil, fmt.Errorf("unknown render format %q", format)
	}
}

// ToDOT converts an automation graph to Graphviz DOT source.
// Triggers render as ellipses, conditions as diamonds, everything else
// as rounded boxes. Branch edges carry their handle as a label.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if e.SourceHandle != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.Source, e.Target, e.SourceHandle)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n graph.Node, detailed bool) string {
	label := n.Data.Label
	if label == "" {
		label = n.ID
	}
	if !detailed {
		return label
	}

	if summary := payloadSummary(n); summary != "" {
		return label + "\n" + summary
	}
	return label
}

func payloadSummary(n graph.Node) string {
	switch n.Type {
	case graph.NodeTrigger:
		if n.Data.Trigger != nil {
			return n.Data.Trigger.Platform
		}
	case graph.NodeCondition:
		if n.Data.Condition != nil {
			return n.Data.Condition.Condition
		}
	case graph.NodeAction:
		if n.Data.Service != nil {
			return n.Data.Service.Service
		}
	case graph.NodeDelay:
		return fmt.Sprintf("%v", n.Data.Delay)
	}
	return ""
}

func fmtAttrs(n graph.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch n.Type {
	case graph.NodeTrigger:
		attrs = append(attrs, "shape=ellipse", "fillcolor=lightblue")
	case graph.NodeCondition:
		attrs = append(attrs, "shape=diamond", "fillcolor=lightyellow")
	case graph.NodeDelay, graph.NodeWait:
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	if n.Data.Enabled != nil && !*n.Data.Enabled {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fontcolor=grey")
	}
	return attrs
}

// SVG renders the graph to SVG using Graphviz.
func SVG(ctx context.Context, g *graph.Graph, opts Options) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(ToDOT(g, opts)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
