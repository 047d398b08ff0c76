package search

import (
	"math"
	"math/bits"
	"math/rand/v2"

	"github.com/matzehuels/camml/pkg/bitgraph"
	"github.com/matzehuels/camml/pkg/extension"
	"github.com/matzehuels/camml/pkg/perm"
	"github.com/matzehuels/camml/pkg/tom"
)

// =============================================================================
// Structure Prior
// =============================================================================

// StructurePrior prices structures before any data is seen.
//
// A TOM costs log n! to state its order plus -log p for every linked pair
// and -log(1-p) for every unlinked pair. A DAG is consistent with as many
// orders as it has linear extensions, so its cost is the TOM cost less the
// log of that count.
type StructurePrior struct {
	n         int
	pairs     int
	logOrders float64
	arcCost   float64
	noArcCost float64
	counter   extension.Counter
}

// NewStructurePrior returns the prior over n variables with arc probability
// p. counter counts linear extensions for DAGCost; nil uses a fresh
// extension.DynamicCounter.
func NewStructurePrior(n int, p float64, counter extension.Counter) *StructurePrior {
	if counter == nil {
		counter = extension.NewDynamicCounter()
	}
	return &StructurePrior{
		n:         n,
		pairs:     n * (n - 1) / 2,
		logOrders: perm.LogFactorial(n),
		arcCost:   -math.Log(p),
		noArcCost: -math.Log1p(-p),
		counter:   counter,
	}
}

// TOMCost returns the prior cost in nats of a TOM with the given number of
// arcs.
func (s *StructurePrior) TOMCost(arcs int) float64 {
	return s.logOrders + float64(arcs)*s.arcCost + float64(s.pairs-arcs)*s.noArcCost
}

// ArcDelta is the change in TOM cost from adding one arc.
func (s *StructurePrior) ArcDelta() float64 {
	return s.arcCost - s.noArcCost
}

// DAGCost returns the prior cost in nats of the DAG g. Fails with
// CAPACITY_EXCEEDED when g is too wide to count its extensions.
func (s *StructurePrior) DAGCost(g *bitgraph.Graph) (float64, error) {
	count, err := s.counter.CountPerms(g)
	if err != nil {
		return 0, err
	}
	return s.TOMCost(g.NumArcs()) - math.Log(count), nil
}

// =============================================================================
// Expert Prior
// =============================================================================

// Prior holds expert structural constraints.
//
// Tiers order groups of variables: every variable in an earlier tier must
// precede every variable in a later tier, so no arc can point from a later
// tier back to an earlier one. Variables in no tier are unconstrained.
// Required arcs must be present, forbidden arcs must be absent; both are
// [from, to] pairs.
type Prior struct {
	Tiers     [][]int  `json:"tiers,omitempty" toml:"tiers"`
	Required  [][2]int `json:"required,omitempty" toml:"required"`
	Forbidden [][2]int `json:"forbidden,omitempty" toml:"forbidden"`
}

// IsZero reports whether p places no constraints.
func (p Prior) IsZero() bool {
	return len(p.Tiers) == 0 && len(p.Required) == 0 && len(p.Forbidden) == 0
}

// Validate checks p against n variables. Returns INVALID_CONFIG for unknown
// variables, a variable in two tiers, an arc both required and forbidden, or
// required arcs that cannot all hold in one order.
func (p Prior) Validate(n int) error {
	if p.IsZero() {
		return nil
	}
	if n > bitgraph.MaxNodes {
		return invalid("expert priors support at most %d variables", bitgraph.MaxNodes)
	}
	seen := make(map[int]bool)
	for _, tier := range p.Tiers {
		for _, v := range tier {
			if v < 0 || v >= n {
				return invalid("tier variable %d out of range", v)
			}
			if seen[v] {
				return invalid("variable %d appears in more than one tier", v)
			}
			seen[v] = true
		}
	}
	for _, set := range [][][2]int{p.Required, p.Forbidden} {
		for _, a := range set {
			if a[0] < 0 || a[0] >= n || a[1] < 0 || a[1] >= n || a[0] == a[1] {
				return invalid("arc %d->%d is not valid for %d variables", a[0], a[1], n)
			}
		}
	}
	c := p.compile(n)
	for _, a := range p.Required {
		if c.forbidden[a[1]]&bit(a[0]) != 0 {
			return invalid("arc %d->%d is both required and forbidden", a[0], a[1])
		}
	}
	if _, err := c.order(rand.New(rand.NewPCG(0, 0))); err != nil {
		return err
	}
	return nil
}

// constraints is a Prior compiled to masks.
type constraints struct {
	n         int
	tier      []int    // -1 for untiered variables
	before    []uint64 // before[v]: variables that must precede v
	required  []uint64 // required[v]: required parents of v
	forbidden []uint64 // forbidden[v]: forbidden parents of v
	empty     bool
}

func (p Prior) compile(n int) *constraints {
	c := &constraints{
		n:         n,
		tier:      make([]int, n),
		before:    make([]uint64, n),
		required:  make([]uint64, n),
		forbidden: make([]uint64, n),
		empty:     p.IsZero(),
	}
	for v := range c.tier {
		c.tier[v] = -1
	}
	for t, tier := range p.Tiers {
		for _, v := range tier {
			c.tier[v] = t
		}
	}
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			if c.tier[a] >= 0 && c.tier[b] > c.tier[a] {
				c.before[b] |= bit(a)
			}
		}
	}
	for _, a := range p.Required {
		c.required[a[1]] |= bit(a[0])
		c.before[a[1]] |= bit(a[0])
	}
	for _, a := range p.Forbidden {
		c.forbidden[a[1]] |= bit(a[0])
	}
	return c
}

// order draws a random total order in which every variable follows all of
// its before set. Returns INVALID_CONFIG when the constraints are cyclic.
func (c *constraints) order(rng *rand.Rand) ([]int, error) {
	out := make([]int, 0, c.n)
	var placed uint64
	for len(out) < c.n {
		var ready []int
		for v := 0; v < c.n; v++ {
			if placed&bit(v) == 0 && c.before[v]&^placed == 0 {
				ready = append(ready, v)
			}
		}
		if len(ready) == 0 {
			return nil, invalid("tiers and required arcs admit no total order")
		}
		v := ready[rng.IntN(len(ready))]
		out = append(out, v)
		placed |= bit(v)
	}
	return out, nil
}

// satisfied reports whether t honours every constraint.
func (c *constraints) satisfied(t *tom.TOM) bool {
	if c.empty {
		return true
	}
	maxTier := -1
	for p := 0; p < c.n; p++ {
		v := t.NodeAt(p)
		if c.tier[v] >= 0 {
			if c.tier[v] < maxTier {
				return false
			}
			maxTier = c.tier[v]
		}
		parents := t.Parents(v)
		if parents&c.forbidden[v] != 0 || c.required[v]&^parents != 0 {
			return false
		}
	}
	return true
}

// apply sets t to a random order honouring c and adds the required arcs.
func (c *constraints) apply(t *tom.TOM, rng *rand.Rand) error {
	order, err := c.order(rng)
	if err != nil {
		return err
	}
	if err := t.SetOrder(order); err != nil {
		return err
	}
	for v, req := range c.required {
		for m := req; m != 0; m &= m - 1 {
			t.AddArc(bits.TrailingZeros64(m), v)
		}
	}
	return nil
}

func bit(i int) uint64 { return 1 << uint(i) }
