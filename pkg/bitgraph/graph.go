package bitgraph

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
	"strings"

	"github.com/matzehuels/camml/pkg/errors"
)

// MaxNodes is the largest graph representable with one uint64 per node set.
const MaxNodes = 64

// Graph is a directed graph over at most [MaxNodes] nodes.
//
// Directed arcs are recorded in the parent and child masks. Undirected links
// (added with directed=false) only record adjacency; they never constrain an
// ordering and are ignored by the extension counters.
//
// The zero value is an empty graph with no nodes. Graph is not safe for
// concurrent mutation.
type Graph struct {
	n        int
	parents  []uint64
	children []uint64
	links    []uint64
}

// New creates a graph with n nodes and no arcs.
// Returns a CAPACITY_EXCEEDED error when n > MaxNodes and INVALID_INPUT when n < 0.
func New(n int) (*Graph, error) {
	if n < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "negative node count %d", n)
	}
	if n > MaxNodes {
		return nil, errors.New(errors.ErrCodeCapacity, "graph of %d nodes exceeds limit of %d", n, MaxNodes)
	}
	return &Graph{
		n:        n,
		parents:  make([]uint64, n),
		children: make([]uint64, n),
		links:    make([]uint64, n),
	}, nil
}

// FromParents builds a graph from per-node parent masks.
// Bits beyond len(parents) are rejected.
func FromParents(parents []uint64) (*Graph, error) {
	g, err := New(len(parents))
	if err != nil {
		return nil, err
	}
	all := g.AllNodes()
	for j, mask := range parents {
		if mask&^all != 0 {
			return nil, errors.New(errors.ErrCodeInvalidArc, "node %d has parents outside the graph", j)
		}
		for m := mask; m != 0; m &= m - 1 {
			i := bits.TrailingZeros64(m)
			if err := g.AddArc(i, j, true); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// FromArcs builds a DAG on n nodes from [from, to] pairs.
// Returns INVALID_ARC for duplicate arcs, self loops and cycles.
func FromArcs(n int, arcs [][2]int) (*Graph, error) {
	g, err := New(n)
	if err != nil {
		return nil, err
	}
	for _, a := range arcs {
		if err := g.AddArc(a[0], a[1], true); err != nil {
			return nil, err
		}
	}
	if !g.Acyclic() {
		return nil, errors.New(errors.ErrCodeInvalidArc, "arcs %v contain a cycle", arcs)
	}
	return g, nil
}

// Acyclic reports whether the directed arcs form no cycle. Undirected links
// are ignored.
func (g *Graph) Acyclic() bool {
	var placed uint64
	for {
		var next uint64
		for m := g.AllNodes() &^ placed; m != 0; m &= m - 1 {
			v := bits.TrailingZeros64(m)
			if g.parents[v]&^placed == 0 {
				next |= bit(v)
			}
		}
		if next == 0 {
			return placed == g.AllNodes()
		}
		placed |= next
	}
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return g.n }

// AllNodes returns the mask with one bit set for every node.
func (g *Graph) AllNodes() uint64 { return lowMask(g.n) }

// AddArc adds an arc between i and j. When directed is true the arc points
// from i to j; otherwise only an undirected link is recorded.
//
// Adding an arc that already exists between i and j, in either direction
// or as a link, returns an INVALID_ARC error, as do self loops and
// out-of-range nodes.
func (g *Graph) AddArc(i, j int, directed bool) error {
	if err := g.checkNode(i); err != nil {
		return err
	}
	if err := g.checkNode(j); err != nil {
		return err
	}
	if i == j {
		return errors.New(errors.ErrCodeInvalidArc, "self loop on node %d", i)
	}
	if g.Linked(i, j) {
		return errors.New(errors.ErrCodeInvalidArc, "arc between %d and %d already exists", i, j)
	}
	if directed {
		g.children[i] |= bit(j)
		g.parents[j] |= bit(i)
		return nil
	}
	g.links[i] |= bit(j)
	g.links[j] |= bit(i)
	return nil
}

// HasArc reports whether the directed arc i->j exists.
func (g *Graph) HasArc(i, j int) bool {
	if i < 0 || j < 0 || i >= g.n || j >= g.n {
		return false
	}
	return g.children[i]&bit(j) != 0
}

// Linked reports whether i and j are adjacent by a directed arc in either
// direction or by an undirected link.
func (g *Graph) Linked(i, j int) bool {
	if i < 0 || j < 0 || i >= g.n || j >= g.n {
		return false
	}
	return g.Neighbours(i)&bit(j) != 0
}

// Parents returns the parent mask of node i.
func (g *Graph) Parents(i int) uint64 { return g.parents[i] }

// Children returns the child mask of node i.
func (g *Graph) Children(i int) uint64 { return g.children[i] }

// Neighbours returns the mask of every node adjacent to i.
func (g *Graph) Neighbours(i int) uint64 {
	return g.parents[i] | g.children[i] | g.links[i]
}

// ParentList returns a copy of the per-node parent masks.
func (g *Graph) ParentList() []uint64 { return append([]uint64(nil), g.parents...) }

// ChildList returns a copy of the per-node child masks.
func (g *Graph) ChildList() []uint64 { return append([]uint64(nil), g.children...) }

// LeafNodes returns the mask of nodes without children.
func (g *Graph) LeafNodes() uint64 {
	var mask uint64
	for i := 0; i < g.n; i++ {
		if g.children[i] == 0 {
			mask |= bit(i)
		}
	}
	return mask
}

// RootNodes returns the mask of nodes without parents.
func (g *Graph) RootNodes() uint64 {
	var mask uint64
	for i := 0; i < g.n; i++ {
		if g.parents[i] == 0 {
			mask |= bit(i)
		}
	}
	return mask
}

// NumArcs returns the number of directed arcs.
func (g *Graph) NumArcs() int {
	total := 0
	for _, c := range g.children {
		total += bits.OnesCount64(c)
	}
	return total
}

// RemoveNode returns a new graph without node i. Nodes above i are
// renumbered down by one. When keepArcs is true each parent of i is linked
// to each child of i so the induced partial order is preserved; otherwise
// all arcs incident to i are dropped.
func (g *Graph) RemoveNode(i int, keepArcs bool) *Graph {
	if i < 0 || i >= g.n {
		return g.Clone()
	}
	out := &Graph{
		n:        g.n - 1,
		parents:  make([]uint64, 0, g.n-1),
		children: make([]uint64, 0, g.n-1),
		links:    make([]uint64, 0, g.n-1),
	}
	for k := 0; k < g.n; k++ {
		if k == i {
			continue
		}
		p, c := g.parents[k], g.children[k]
		if keepArcs {
			if p&bit(i) != 0 {
				p |= g.parents[i]
			}
			if c&bit(i) != 0 {
				c |= g.children[i]
			}
		}
		out.parents = append(out.parents, dropBit(p, i))
		out.children = append(out.children, dropBit(c, i))
		out.links = append(out.links, dropBit(g.links[k], i))
	}
	return out
}

// Subgraph returns the graph induced by the nodes in mask, renumbered
// densely in increasing order of their original index.
func (g *Graph) Subgraph(mask uint64) *Graph {
	mask &= g.AllNodes()
	n := bits.OnesCount64(mask)
	out := &Graph{
		n:        n,
		parents:  make([]uint64, 0, n),
		children: make([]uint64, 0, n),
		links:    make([]uint64, 0, n),
	}
	for m := mask; m != 0; m &= m - 1 {
		k := bits.TrailingZeros64(m)
		out.parents = append(out.parents, squeeze(g.parents[k], mask))
		out.children = append(out.children, squeeze(g.children[k], mask))
		out.links = append(out.links, squeeze(g.links[k], mask))
	}
	return out
}

// Components returns the connected components of the graph, ignoring arc
// direction, as node masks ordered by their lowest node.
func (g *Graph) Components() []uint64 {
	var comps []uint64
	remaining := g.AllNodes()
	for remaining != 0 {
		seed := remaining & -remaining
		comp := seed
		frontier := seed
		for frontier != 0 {
			var next uint64
			for m := frontier; m != 0; m &= m - 1 {
				next |= g.Neighbours(bits.TrailingZeros64(m))
			}
			frontier = next &^ comp
			comp |= next
		}
		comps = append(comps, comp)
		remaining &^= comp
	}
	return comps
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	return &Graph{
		n:        g.n,
		parents:  append([]uint64(nil), g.parents...),
		children: append([]uint64(nil), g.children...),
		links:    append([]uint64(nil), g.links...),
	}
}

// Validate checks that the parent and child masks describe the same arcs
// and that no mask refers to a node outside the graph.
func (g *Graph) Validate() error {
	all := g.AllNodes()
	for i := 0; i < g.n; i++ {
		if (g.parents[i]|g.children[i]|g.links[i])&^all != 0 {
			return errors.New(errors.ErrCodeInvalidArc, "node %d refers to nodes outside the graph", i)
		}
		for j := 0; j < g.n; j++ {
			if (g.children[i]&bit(j) != 0) != (g.parents[j]&bit(i) != 0) {
				return errors.New(errors.ErrCodeInvalidArc, "parent and child masks disagree on %d->%d", i, j)
			}
		}
	}
	return nil
}

// Signature returns a string that identifies the directed structure of the
// graph. Two graphs with equal signatures have identical parent masks.
func (g *Graph) Signature() string {
	var sb strings.Builder
	sb.Grow(g.n * 17)
	for _, p := range g.parents {
		fmt.Fprintf(&sb, "%x.", p)
	}
	return sb.String()
}

// String returns the arc list, e.g. "{0->3 1->3 2->4}".
func (g *Graph) String() string {
	var parts []string
	for i := 0; i < g.n; i++ {
		for m := g.children[i]; m != 0; m &= m - 1 {
			parts = append(parts, fmt.Sprintf("%d->%d", i, bits.TrailingZeros64(m)))
		}
		for m := g.links[i] &^ lowMask(i+1); m != 0; m &= m - 1 {
			parts = append(parts, fmt.Sprintf("%d--%d", i, bits.TrailingZeros64(m)))
		}
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Random returns a DAG on n nodes in which each arc i->j with i < j is
// present independently with probability p.
func Random(n int, p float64, rng *rand.Rand) (*Graph, error) {
	g, err := New(n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < p {
				g.children[i] |= bit(j)
				g.parents[j] |= bit(i)
			}
		}
	}
	return g, nil
}

func (g *Graph) checkNode(i int) error {
	if i < 0 || i >= g.n {
		return errors.New(errors.ErrCodeInvalidArc, "node %d out of range [0,%d)", i, g.n)
	}
	return nil
}

func bit(i int) uint64 { return 1 << uint(i) }

// lowMask returns a mask with the lowest n bits set; lowMask(64) is all ones.
func lowMask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(n) - 1
}

// dropBit removes bit i from x, shifting the higher bits down by one.
func dropBit(x uint64, i int) uint64 {
	low := x & lowMask(i)
	high := (x >> uint(i) >> 1) << uint(i)
	return low | high
}

// squeeze packs the bits of x selected by keep into the low bits of the
// result, preserving their relative order.
func squeeze(x, keep uint64) uint64 {
	var out uint64
	pos := 0
	for m := keep; m != 0; m &= m - 1 {
		k := bits.TrailingZeros64(m)
		if x&bit(k) != 0 {
			out |= bit(pos)
		}
		pos++
	}
	return out
}
