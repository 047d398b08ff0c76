package search

import (
	"math"
	"math/bits"

	"github.com/matzehuels/camml/pkg/tom"
)

type nodeKey struct {
	node    int
	parents uint64
}

// NodeCache memoises learner costs per (node, parent set). Learner failures
// are cached as +Inf so infeasible parent sets are refused without asking
// the learner again.
//
// A NodeCache belongs to one chain and is not safe for concurrent use.
type NodeCache struct {
	data    tom.Dataset
	learner tom.ModelLearner
	costs   map[nodeKey]float64
	hits    int
	misses  int
	fails   int
}

// NewNodeCache returns an empty cache pricing nodes of data with l.
func NewNodeCache(data tom.Dataset, l tom.ModelLearner) *NodeCache {
	return &NodeCache{data: data, learner: l, costs: make(map[nodeKey]float64)}
}

// Cost returns the cost of node given the parent mask, or +Inf when the
// learner cannot fit it.
func (c *NodeCache) Cost(node int, parents uint64) float64 {
	k := nodeKey{node, parents}
	if cost, ok := c.costs[k]; ok {
		c.hits++
		return cost
	}
	c.misses++
	cost, err := c.learner.Cost(c.data, node, maskToList(parents))
	if err != nil {
		c.fails++
		cost = math.Inf(1)
	}
	c.costs[k] = cost
	return cost
}

// Stats returns lookup counters: hits, misses and learner failures.
func (c *NodeCache) Stats() (hits, misses, fails int) {
	return c.hits, c.misses, c.fails
}

// Len returns the number of cached entries.
func (c *NodeCache) Len() int { return len(c.costs) }

func maskToList(mask uint64) []int {
	out := make([]int, 0, bits.OnesCount64(mask))
	for m := mask; m != 0; m &= m - 1 {
		out = append(out, bits.TrailingZeros64(m))
	}
	return out
}
