// Package render draws learned structures.
//
// [ToDOT] writes a structure snapshot ([tom.Params]) as a Graphviz digraph,
// one node per variable and one edge per arc. [RenderSVG] lays the DOT out
// with the embedded Graphviz of go-graphviz, so no system install is needed:
//
//	dot := render.ToDOT(best.Representative, render.Options{Names: res.Names})
//	svg, err := render.RenderSVG(dot)
//
// [ToPDF] and [ToPNG] convert SVG output with the external rsvg-convert tool
// (from librsvg).
package render
