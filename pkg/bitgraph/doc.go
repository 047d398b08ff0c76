// Package bitgraph provides a fixed-capacity directed graph in which every
// node owns one bit of a 64-bit word.
//
// # Overview
//
// A [Graph] stores, for each node, the bitmask of its parents and the bitmask
// of its children. The two views are kept mutually consistent: bit i of
// Parents(j) is set exactly when bit j of Children(i) is set. Because a node
// set fits in a single uint64, subset operations used by the extension
// counters (remove a root, test whether a set is downward closed, split into
// components) are single machine instructions.
//
// The capacity is therefore [MaxNodes] = 64. [New] returns a
// CAPACITY_EXCEEDED error for larger graphs; callers that need more nodes
// must use a sampling search rather than exact counting.
//
// # Basic Usage
//
//	g, _ := bitgraph.New(5)
//	_ = g.AddArc(0, 3, true)
//	_ = g.AddArc(1, 3, true)
//	_ = g.AddArc(2, 4, true)
//
//	roots := g.RootNodes() // 0b00111
//	leaves := g.LeafNodes() // 0b11000
//
// Adding an arc that already exists in either direction is an invariant
// violation and returns an INVALID_ARC error.
//
// # Decomposition
//
// [Graph.RemoveNode] returns a graph on the remaining n-1 nodes, renumbered
// densely. With keepArcs set, every parent of the removed node is linked to
// every child so the partial order among the survivors is unchanged.
// [Graph.Components] and [Graph.Subgraph] split a graph into independent
// pieces whose linear extensions can be counted separately.
package bitgraph
