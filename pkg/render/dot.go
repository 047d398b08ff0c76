package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/camml/pkg/tom"
)

// Options configures DOT output.
type Options struct {
	// Names labels variables by index. Missing names fall back to "X<i>".
	Names []string

	// Detailed adds each node's learner, model and cost when the snapshot
	// carries fitted parameters.
	Detailed bool

	// Title is drawn above the graph when set.
	Title string
}

// ToDOT converts a structure snapshot to Graphviz DOT. Nodes are emitted in
// the snapshot's total order, so Graphviz ranks follow it.
func ToDOT(p *tom.Params, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fillcolor=white, fontsize=16];\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("\n")

	byNode := make(map[int]tom.NodeParams, len(p.Nodes))
	for _, np := range p.Nodes {
		byNode[np.Node] = np
	}
	for _, v := range p.Order {
		fmt.Fprintf(&buf, "  n%d [label=%q];\n", v, label(byNode[v], name(opts.Names, v), opts.Detailed))
	}

	buf.WriteString("\n")
	for _, v := range p.Order {
		for _, par := range byNode[v].Parents {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", par, v)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func name(names []string, v int) string {
	if v < len(names) && names[v] != "" {
		return names[v]
	}
	return fmt.Sprintf("X%d", v)
}

func label(np tom.NodeParams, name string, detailed bool) string {
	if !detailed || np.Fit == nil {
		return name
	}
	parts := []string{name, np.Fit.Model, strconv.FormatFloat(np.Fit.Cost, 'f', 2, 64) + " nats"}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one
// sized from the viewBox so the output scales in browsers.
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
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
