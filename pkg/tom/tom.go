package tom

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/matzehuels/camml/pkg/bitgraph"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/perm"
)

// Dataset is the read-only view of the data a TOM is built over.
// Only NumVars and Arity are needed by the TOM itself; learners read values.
type Dataset interface {
	NumVars() int
	Arity(v int) int
	Len() int
	Value(row, v int) int
}

// TOM is a totally ordered model: a total order over the variables plus a
// set of links, each read as an arc from the earlier to the later variable.
type TOM struct {
	data     Dataset
	order    []int    // position -> node
	position []int    // node -> position
	links    []uint64 // symmetric adjacency
	parents  []uint64 // links[i] restricted to nodes before i
	stale    bool     // parents needs rebuilding after a lazy swap
}

// New creates a TOM over data with the identity order and no arcs.
// Returns CAPACITY_EXCEEDED for datasets with more than 64 variables.
func New(data Dataset) (*TOM, error) {
	n := data.NumVars()
	if n > bitgraph.MaxNodes {
		return nil, errors.New(errors.ErrCodeCapacity, "%d variables exceed TOM limit of %d", n, bitgraph.MaxNodes)
	}
	return &TOM{
		data:     data,
		order:    perm.Seq(n),
		position: perm.Seq(n),
		links:    make([]uint64, n),
		parents:  make([]uint64, n),
	}, nil
}

// Data returns the dataset the TOM was built over.
func (t *TOM) Data() Dataset { return t.data }

// NumNodes returns the number of variables.
func (t *TOM) NumNodes() int { return len(t.order) }

// Order returns a copy of the total order (position -> node).
func (t *TOM) Order() []int { return slices.Clone(t.order) }

// NodeAt returns the node at order position p.
func (t *TOM) NodeAt(p int) int { return t.order[p] }

// Position returns the order position of node i.
func (t *TOM) Position(i int) int { return t.position[i] }

// SetOrder replaces the total order, keeping every link. Links are
// re-directed to agree with the new order.
func (t *TOM) SetOrder(order []int) error {
	if len(order) != len(t.order) || !perm.IsPermutation(order) {
		return errors.New(errors.ErrCodeInvalidInput, "order %v is not a permutation of %d nodes", order, len(t.order))
	}
	copy(t.order, order)
	for p, node := range t.order {
		t.position[node] = p
	}
	t.rebuildParents()
	return nil
}

// Randomize draws a uniformly random total order, keeping every link.
func (t *TOM) Randomize(rng *rand.Rand) {
	rng.Shuffle(len(t.order), func(i, j int) {
		t.order[i], t.order[j] = t.order[j], t.order[i]
	})
	for p, node := range t.order {
		t.position[node] = p
	}
	t.rebuildParents()
}

// =============================================================================
// Mutation
// =============================================================================

// AddArc links i and j; the arc points from whichever comes first in the
// order. Returns false, leaving the TOM unchanged, when i == j, either node
// is out of range, or the two are already linked.
func (t *TOM) AddArc(i, j int) bool {
	if !t.valid(i) || !t.valid(j) || i == j || t.links[i]&bit(j) != 0 {
		return false
	}
	t.links[i] |= bit(j)
	t.links[j] |= bit(i)
	if !t.stale {
		if t.position[i] < t.position[j] {
			t.parents[j] |= bit(i)
		} else {
			t.parents[i] |= bit(j)
		}
	}
	return true
}

// RemoveArc removes the link between i and j in whichever direction it
// points. Returns whether a link was removed.
func (t *TOM) RemoveArc(i, j int) bool {
	if !t.valid(i) || !t.valid(j) || t.links[i]&bit(j) == 0 {
		return false
	}
	t.links[i] &^= bit(j)
	t.links[j] &^= bit(i)
	t.parents[i] &^= bit(j)
	t.parents[j] &^= bit(i)
	return true
}

// SwapOrder exchanges the order positions of nodes x and y. Links between
// nodes whose relative order changed now point the other way.
//
// With updateNodes true the cached parent sets of every node between the two
// positions are repaired immediately. With updateNodes false the repair is
// deferred to the next query that needs parents, which lets a caller swap and
// swap back without paying for it twice.
func (t *TOM) SwapOrder(x, y int, updateNodes bool) {
	if !t.valid(x) || !t.valid(y) || x == y {
		return
	}
	px, py := t.position[x], t.position[y]
	t.order[px], t.order[py] = y, x
	t.position[x], t.position[y] = py, px
	if !updateNodes {
		t.stale = true
		return
	}
	if t.stale {
		t.rebuildParents()
		return
	}
	lo, hi := min(px, py), max(px, py)
	var before uint64
	for p := 0; p < lo; p++ {
		before |= bit(t.order[p])
	}
	for p := lo; p <= hi; p++ {
		node := t.order[p]
		t.parents[node] = t.links[node] & before
		before |= bit(node)
	}
}

func (t *TOM) rebuildParents() {
	var before uint64
	for _, node := range t.order {
		t.parents[node] = t.links[node] & before
		before |= bit(node)
	}
	t.stale = false
}

func (t *TOM) fresh() {
	if t.stale {
		t.rebuildParents()
	}
}

// =============================================================================
// Queries
// =============================================================================

// IsArc reports whether the arc i -> j exists.
func (t *TOM) IsArc(i, j int) bool {
	if !t.valid(i) || !t.valid(j) {
		return false
	}
	return t.links[i]&bit(j) != 0 && t.position[i] < t.position[j]
}

// Linked reports whether i and j are joined by an arc in either direction.
func (t *TOM) Linked(i, j int) bool {
	if !t.valid(i) || !t.valid(j) {
		return false
	}
	return t.links[i]&bit(j) != 0
}

// Parents returns the parent mask of node i.
func (t *TOM) Parents(i int) uint64 {
	t.fresh()
	return t.parents[i]
}

// ParentList returns the parents of node i in increasing node order.
func (t *TOM) ParentList(i int) []int {
	return maskToList(t.Parents(i))
}

// Children returns the child mask of node i.
func (t *TOM) Children(i int) uint64 {
	t.fresh()
	return t.links[i] &^ t.parents[i]
}

// Neighbours returns the mask of nodes linked to i.
func (t *TOM) Neighbours(i int) uint64 { return t.links[i] }

// NumArcs returns the number of arcs.
func (t *TOM) NumArcs() int {
	total := 0
	for _, l := range t.links {
		total += bits.OnesCount64(l)
	}
	return total / 2
}

// Ancestors returns the mask of all proper ancestors of node j.
func (t *TOM) Ancestors(j int) uint64 {
	t.fresh()
	var seen uint64
	frontier := t.parents[j]
	for frontier != 0 {
		seen |= frontier
		var next uint64
		for m := frontier; m != 0; m &= m - 1 {
			next |= t.parents[bits.TrailingZeros64(m)]
		}
		frontier = next &^ seen
	}
	return seen
}

// IsAncestor reports whether a directed path leads from i to j.
// A node is not its own ancestor.
func (t *TOM) IsAncestor(i, j int) bool {
	if !t.valid(i) || !t.valid(j) || i == j {
		return false
	}
	// Only nodes earlier in the order can be ancestors.
	if t.position[i] > t.position[j] {
		return false
	}
	return t.Ancestors(j)&bit(i) != 0
}

// IsDescendant reports whether a directed path leads from j to i.
func (t *TOM) IsDescendant(i, j int) bool {
	return t.IsAncestor(j, i)
}

// IsCorrelated reports whether i and j are joined by any path in the
// skeleton, ignoring arc direction. A node is correlated with itself.
func (t *TOM) IsCorrelated(i, j int) bool {
	if !t.valid(i) || !t.valid(j) {
		return false
	}
	return t.component(i)&bit(j) != 0
}

func (t *TOM) component(i int) uint64 {
	comp := bit(i)
	frontier := comp
	for frontier != 0 {
		var next uint64
		for m := frontier; m != 0; m &= m - 1 {
			next |= t.links[bits.TrailingZeros64(m)]
		}
		frontier = next &^ comp
		comp |= next
	}
	return comp
}

// Skeleton returns a copy of the symmetric adjacency masks.
func (t *TOM) Skeleton() []uint64 { return slices.Clone(t.links) }

// Graph returns the DAG the TOM describes.
func (t *TOM) Graph() *bitgraph.Graph {
	t.fresh()
	g, _ := bitgraph.FromParents(t.parents)
	return g
}

// =============================================================================
// Copy and Equality
// =============================================================================

// Clone returns an independent copy sharing only the dataset.
func (t *TOM) Clone() *TOM {
	return &TOM{
		data:     t.data,
		order:    slices.Clone(t.order),
		position: slices.Clone(t.position),
		links:    slices.Clone(t.links),
		parents:  slices.Clone(t.parents),
		stale:    t.stale,
	}
}

// CopyFrom overwrites t with the order and links of src, reusing t's
// buffers. Both TOMs must have the same number of nodes.
func (t *TOM) CopyFrom(src *TOM) {
	t.data = src.data
	copy(t.order, src.order)
	copy(t.position, src.position)
	copy(t.links, src.links)
	copy(t.parents, src.parents)
	t.stale = src.stale
}

// Equal reports whether t and o have the same order and the same arcs.
func (t *TOM) Equal(o *TOM) bool {
	if o == nil {
		return false
	}
	return slices.Equal(t.order, o.order) && slices.Equal(t.links, o.links)
}

// String returns the order and arcs, e.g. "order=[0 1 2] arcs={0->2 1->2}".
func (t *TOM) String() string {
	t.fresh()
	var arcs []string
	for _, j := range t.order {
		for m := t.parents[j]; m != 0; m &= m - 1 {
			arcs = append(arcs, fmt.Sprintf("%d->%d", bits.TrailingZeros64(m), j))
		}
	}
	return fmt.Sprintf("order=%v arcs={%s}", t.order, strings.Join(arcs, " "))
}

func (t *TOM) valid(i int) bool { return i >= 0 && i < len(t.order) }

func bit(i int) uint64 { return 1 << uint(i) }

func maskToList(mask uint64) []int {
	out := make([]int, 0, bits.OnesCount64(mask))
	for m := mask; m != 0; m &= m - 1 {
		out = append(out, bits.TrailingZeros64(m))
	}
	return out
}
