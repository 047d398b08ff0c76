package search

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/tom"
)

// =============================================================================
// Temperature Schedules
// =============================================================================

// Schedule gives the temperature for each epoch of a phase.
type Schedule interface {
	Temperature(epoch int) float64
}

// Metropolis samples at a fixed temperature.
type Metropolis struct {
	T float64
}

// Temperature implements Schedule.
func (m Metropolis) Temperature(int) float64 { return m.T }

// Anneal cools geometrically from Start by Cooling per epoch.
type Anneal struct {
	Start   float64
	Cooling float64
}

// Temperature implements Schedule.
func (a Anneal) Temperature(epoch int) float64 {
	return a.Start * math.Pow(a.Cooling, float64(epoch))
}

// =============================================================================
// Chain
// =============================================================================

// chain is one Markov chain over TOMs. It owns its TOM, RNG and node cache.
type chain struct {
	id     int
	t      *tom.TOM
	rng    *rand.Rand
	cache  *NodeCache
	cons   *constraints
	prior  *StructurePrior
	policy Policy

	nodeCost []float64
	dataCost float64
	arcs     int

	accepted    int
	rejected    int
	constrained int

	// scratch for order swaps
	touched  []int
	oldMasks []uint64
	newCosts []float64
}

func newChain(id int, data tom.Dataset, l tom.ModelLearner, opts *Options, prior *StructurePrior, cons *constraints) (*chain, error) {
	t, err := tom.New(data)
	if err != nil {
		return nil, err
	}
	c := &chain{
		id:       id,
		t:        t,
		rng:      rand.New(rand.NewPCG(opts.Seed, uint64(id))),
		cache:    NewNodeCache(data, l),
		cons:     cons,
		prior:    prior,
		policy:   opts.Policy,
		nodeCost: make([]float64, t.NumNodes()),
	}
	if err := cons.apply(t, c.rng); err != nil {
		return nil, err
	}
	c.arcs = t.NumArcs()
	for v := range c.nodeCost {
		c.nodeCost[v] = c.cache.Cost(v, t.Parents(v))
		if math.IsInf(c.nodeCost[v], 1) {
			return nil, errors.New(errors.ErrCodeLearner, "chain %d: node %d cannot be scored with parents %v", id, v, t.ParentList(v))
		}
		c.dataCost += c.nodeCost[v]
	}
	return c, nil
}

// cost returns the MML cost of the current state: structure prior plus data.
func (c *chain) cost() float64 {
	return c.prior.TOMCost(c.arcs) + c.dataCost
}

// step proposes one move at temperature temp and reports whether the state
// changed.
func (c *chain) step(temp float64) bool {
	if c.t.NumNodes() < 2 {
		c.rejected++
		return false
	}
	var moved bool
	switch c.policy.pick(c.rng) {
	case MoveArc:
		moved = c.toggleArc(temp)
	case MoveSwap:
		x, y := c.swapPair()
		moved = c.swap(x, y, temp)
	case MoveReverse:
		moved = c.reverseArc(temp)
	}
	if moved {
		c.accepted++
	}
	return moved
}

func (c *chain) accept(delta, temp float64) bool {
	if math.IsNaN(delta) || math.IsInf(delta, 1) {
		return false
	}
	if delta <= 0 {
		return true
	}
	return c.rng.Float64() < math.Exp(-delta/temp)
}

func (c *chain) toggleArc(temp float64) bool {
	n := c.t.NumNodes()
	i := c.rng.IntN(n)
	j := c.rng.IntN(n - 1)
	if j >= i {
		j++
	}
	parent, child := i, j
	if c.t.Position(i) > c.t.Position(j) {
		parent, child = j, i
	}

	linked := c.t.Linked(parent, child)
	dArcs := 1
	if linked {
		c.t.RemoveArc(parent, child)
		dArcs = -1
	} else {
		c.t.AddArc(parent, child)
	}
	undo := func() {
		if linked {
			c.t.AddArc(parent, child)
		} else {
			c.t.RemoveArc(parent, child)
		}
	}
	if !c.cons.satisfied(c.t) {
		undo()
		c.constrained++
		return false
	}

	cost := c.cache.Cost(child, c.t.Parents(child))
	delta := cost - c.nodeCost[child] + float64(dArcs)*c.prior.ArcDelta()
	if !c.accept(delta, temp) {
		undo()
		c.rejected++
		return false
	}
	c.dataCost += cost - c.nodeCost[child]
	c.nodeCost[child] = cost
	c.arcs += dArcs
	return true
}

func (c *chain) swapPair() (int, int) {
	n := c.t.NumNodes()
	if c.policy.AdjacentSwaps {
		p := c.rng.IntN(n - 1)
		return c.t.NodeAt(p), c.t.NodeAt(p + 1)
	}
	x := c.rng.IntN(n)
	y := c.rng.IntN(n - 1)
	if y >= x {
		y++
	}
	return x, y
}

func (c *chain) reverseArc(temp float64) bool {
	// Pick a child uniformly among nodes with parents, then one of its parents.
	var children []int
	for v := 0; v < c.t.NumNodes(); v++ {
		if c.t.Parents(v) != 0 {
			children = append(children, v)
		}
	}
	if len(children) == 0 {
		c.rejected++
		return false
	}
	child := children[c.rng.IntN(len(children))]
	parents := maskToList(c.t.Parents(child))
	return c.swap(parents[c.rng.IntN(len(parents))], child, temp)
}

// swap exchanges x and y in the order and rescores every node between them
// whose parent set changed.
func (c *chain) swap(x, y int, temp float64) bool {
	lo, hi := c.t.Position(x), c.t.Position(y)
	if lo > hi {
		lo, hi = hi, lo
	}
	c.touched = c.touched[:0]
	c.oldMasks = c.oldMasks[:0]
	for p := lo; p <= hi; p++ {
		v := c.t.NodeAt(p)
		c.touched = append(c.touched, v)
		c.oldMasks = append(c.oldMasks, c.t.Parents(v))
	}

	c.t.SwapOrder(x, y, true)
	if !c.cons.satisfied(c.t) {
		c.t.SwapOrder(x, y, true)
		c.constrained++
		return false
	}

	c.newCosts = c.newCosts[:0]
	delta := 0.0
	for k, v := range c.touched {
		cost := c.nodeCost[v]
		if mask := c.t.Parents(v); mask != c.oldMasks[k] {
			cost = c.cache.Cost(v, mask)
		}
		c.newCosts = append(c.newCosts, cost)
		delta += cost - c.nodeCost[v]
		if math.IsInf(cost, 1) {
			break
		}
	}
	if !c.accept(delta, temp) {
		c.t.SwapOrder(x, y, true)
		c.rejected++
		return false
	}
	for k, v := range c.touched {
		c.dataCost += c.newCosts[k] - c.nodeCost[v]
		c.nodeCost[v] = c.newCosts[k]
	}
	return true
}

// anneal runs epochs at the schedule's temperatures and leaves the chain in
// the cheapest state it visited.
func (c *chain) anneal(ctx context.Context, sched Schedule, epochs int, st *runState) error {
	best := c.t.Clone()
	bestCost := c.cost()
	bestNodes := append([]float64(nil), c.nodeCost...)
	bestData, bestArcs := c.dataCost, c.arcs

	for e := 0; e < epochs; e++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if st.stopped() {
			break
		}
		if c.step(sched.Temperature(e)) && c.cost() < bestCost {
			best.CopyFrom(c.t)
			bestCost = c.cost()
			copy(bestNodes, c.nodeCost)
			bestData, bestArcs = c.dataCost, c.arcs
		}
		st.epoch(c.cost())
	}
	c.t.CopyFrom(best)
	copy(c.nodeCost, bestNodes)
	c.dataCost, c.arcs = bestData, bestArcs
	return nil
}

// sample runs epochs at the schedule's temperatures, recording the state
// after every epoch into rec.
func (c *chain) sample(ctx context.Context, sched Schedule, epochs int, rec *collector, st *runState) error {
	current := rec.visit(c.t, c.cost(), 0)
	for e := 0; e < epochs; e++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if st.stopped() {
			return nil
		}
		if c.step(sched.Temperature(e)) {
			current = rec.visit(c.t, c.cost(), 1)
		} else {
			rec.bump(current, 1)
		}
		st.epoch(c.cost())
	}
	return nil
}
