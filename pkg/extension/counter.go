package extension

import (
	"math/bits"
	"sync"

	"github.com/matzehuels/camml/pkg/bitgraph"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/perm"
)

// Counter counts the linear extensions of a DAG.
type Counter interface {
	CountPerms(g *bitgraph.Graph) (float64, error)
}

// =============================================================================
// WallaceCounter
// =============================================================================

// WallaceCounter counts linear extensions directly: each extension starts
// with some root, so the count is the sum, over the roots, of the counts of
// the graph with that root removed.
//
// The running time is proportional to the number of extensions, up to n!
// (sets without internal arcs are answered with a factorial directly). Use
// it as a reference for small graphs.
type WallaceCounter struct{}

// LPerms returns the exact number of linear extensions of g.
// Returns an OVERFLOW error if the count exceeds the uint64 range.
func (WallaceCounter) LPerms(g *bitgraph.Graph) (uint64, error) {
	return lperms(g.ParentList(), g.AllNodes())
}

// CountPerms implements Counter.
func (w WallaceCounter) CountPerms(g *bitgraph.Graph) (float64, error) {
	n, err := w.LPerms(g)
	return float64(n), err
}

func lperms(parents []uint64, remaining uint64) (uint64, error) {
	size := bits.OnesCount64(remaining)
	if size <= 1 {
		return 1, nil
	}
	if antichain(parents, remaining) {
		f, err := perm.Factorial(size)
		if err != nil {
			return 0, err
		}
		return uint64(f), nil
	}

	var total uint64
	for m := remaining; m != 0; m &= m - 1 {
		v := bits.TrailingZeros64(m)
		if parents[v]&remaining != 0 {
			continue
		}
		sub, err := lperms(parents, remaining&^(1<<uint(v)))
		if err != nil {
			return 0, err
		}
		var carry uint64
		total, carry = bits.Add64(total, sub, 0)
		if carry != 0 {
			return 0, errors.New(errors.ErrCodeOverflow, "extension count exceeds uint64")
		}
	}
	return total, nil
}

// antichain reports whether no node in set has a parent in set.
func antichain(parents []uint64, set uint64) bool {
	for m := set; m != 0; m &= m - 1 {
		if parents[bits.TrailingZeros64(m)]&set != 0 {
			return false
		}
	}
	return true
}

// =============================================================================
// DynamicCounter
// =============================================================================

// maxStates bounds the memo table of a single component. Components whose
// downward-closed subsets exceed it are reported as CAPACITY_EXCEEDED.
const maxStates = 1 << 22

// DynamicCounter counts linear extensions by dynamic programming over the
// downward-closed subsets of each connected component.
//
// Results are memoised by component signature, so repeated queries for the
// same structure (common during a search) are answered from the cache.
// DynamicCounter is safe for concurrent use.
type DynamicCounter struct {
	mu    sync.Mutex
	cache map[string]float64
	hits  int
	miss  int
}

// NewDynamicCounter creates a counter with an empty memo cache.
func NewDynamicCounter() *DynamicCounter {
	return &DynamicCounter{cache: make(map[string]float64)}
}

// Stats returns the number of component lookups answered from the cache and
// the number computed.
func (d *DynamicCounter) Stats() (hits, misses int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hits, d.miss
}

// CountPerms returns the number of linear extensions of g.
func (d *DynamicCounter) CountPerms(g *bitgraph.Graph) (float64, error) {
	comps := g.Components()
	if len(comps) == 1 {
		return d.countComponent(g)
	}

	total := 1.0
	placed := 0
	for _, c := range comps {
		size := bits.OnesCount64(c)
		count := 1.0
		if size > 1 {
			var err error
			if count, err = d.countComponent(g.Subgraph(c)); err != nil {
				return 0, err
			}
		}
		total *= count * InterleaveFloat(placed, size)
		placed += size
	}
	return total, nil
}

// countComponent counts a connected graph. A unique root (or leaf) must come
// first (or last) in every extension, so it is peeled off and the rest is
// counted again, which may split it into several components.
func (d *DynamicCounter) countComponent(g *bitgraph.Graph) (float64, error) {
	n := g.NumNodes()
	if n <= 1 {
		return 1, nil
	}
	if n == 2 {
		if g.NumArcs() == 0 {
			return 2, nil
		}
		return 1, nil
	}

	key := g.Signature()
	d.mu.Lock()
	if v, ok := d.cache[key]; ok {
		d.hits++
		d.mu.Unlock()
		return v, nil
	}
	d.miss++
	d.mu.Unlock()

	var (
		count float64
		err   error
	)
	roots, leaves := g.RootNodes(), g.LeafNodes()
	switch {
	case bits.OnesCount64(roots) == 1:
		count, err = d.CountPerms(g.RemoveNode(bits.TrailingZeros64(roots), false))
	case bits.OnesCount64(leaves) == 1:
		count, err = d.CountPerms(g.RemoveNode(bits.TrailingZeros64(leaves), false))
	default:
		count, err = countDownsets(g.ParentList(), g.AllNodes())
	}
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	d.cache[key] = count
	d.mu.Unlock()
	return count, nil
}

// countDownsets counts the ways to extend each downward-closed set of
// placed nodes to the full node set, one node at a time.
func countDownsets(parents []uint64, all uint64) (float64, error) {
	memo := make(map[uint64]float64)
	var walk func(placed uint64) (float64, error)
	walk = func(placed uint64) (float64, error) {
		if placed == all {
			return 1, nil
		}
		if v, ok := memo[placed]; ok {
			return v, nil
		}
		if len(memo) >= maxStates {
			return 0, errors.New(errors.ErrCodeCapacity, "extension count needs more than %d states", maxStates)
		}
		var total float64
		for m := all &^ placed; m != 0; m &= m - 1 {
			v := bits.TrailingZeros64(m)
			if parents[v]&^placed != 0 {
				continue
			}
			sub, err := walk(placed | 1<<uint(v))
			if err != nil {
				return 0, err
			}
			total += sub
		}
		memo[placed] = total
		return total, nil
	}
	return walk(0)
}
