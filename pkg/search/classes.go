package search

import (
	"math"

	"github.com/matzehuels/camml/pkg/tom"
)

// DAG is one distinct structure visited by the search.
type DAG struct {
	Key       string      // parent sets, see tom.TOM.StructureKey
	Structure *tom.Params // order and parents of the first TOM seen
	Cost      float64     // lowest MML cost seen, prior plus data
	PriorCost float64     // DAG structure prior
	Weight    float64     // samples spent in this DAG

	sec *SEC
}

// SEC is a structurally equivalent class: DAGs sharing a skeleton and
// v-structures.
type SEC struct {
	Key    string
	DAGs   []*DAG
	Best   *DAG
	Weight float64

	skeleton []uint64
	dags     map[string]*DAG
	mmlec    *MMLEC
}

// MMLEC groups SECs the MML metric cannot tell apart.
type MMLEC struct {
	SECs   []*SEC
	Best   *SEC
	Weight float64
}

// collector aggregates visited structures into SECs and MMLECs.
// A collector belongs to one chain until the chains are merged.
type collector struct {
	threshold float64
	prior     *StructurePrior
	secs      map[string]*SEC
	mmlecs    []*MMLEC
	total     float64
}

func newCollector(threshold float64, prior *StructurePrior) *collector {
	return &collector{threshold: threshold, prior: prior, secs: make(map[string]*SEC)}
}

// visit records weight for the current state of t and returns its DAG entry.
func (c *collector) visit(t *tom.TOM, cost, weight float64) *DAG {
	secKey := t.EquivalenceKey()
	dagKey := t.StructureKey()
	if sec, ok := c.secs[secKey]; ok {
		if d, ok := sec.dags[dagKey]; ok {
			c.improve(d, cost)
			c.bump(d, weight)
			return d
		}
	}
	prior, err := c.prior.DAGCost(t.Graph())
	if err != nil {
		prior = c.prior.TOMCost(t.NumArcs())
	}
	return c.insert(secKey, t.Skeleton(), &DAG{
		Key:       dagKey,
		Structure: t.Structure(),
		Cost:      cost,
		PriorCost: prior,
	}, weight)
}

// bump adds weight to d and its enclosing classes.
func (c *collector) bump(d *DAG, weight float64) {
	d.Weight += weight
	d.sec.Weight += weight
	d.sec.mmlec.Weight += weight
	c.total += weight
}

func (c *collector) improve(d *DAG, cost float64) {
	if cost >= d.Cost {
		return
	}
	d.Cost = cost
	sec := d.sec
	if d.Cost < sec.Best.Cost {
		sec.Best = d
	}
	if sec.Best.Cost < sec.mmlec.Best.Best.Cost {
		sec.mmlec.Best = sec
	}
}

// insert adds a DAG not yet known to c, creating its SEC and placing the SEC
// in an MMLEC as needed.
func (c *collector) insert(secKey string, skeleton []uint64, d *DAG, weight float64) *DAG {
	sec, ok := c.secs[secKey]
	if !ok {
		sec = &SEC{Key: secKey, Best: d, skeleton: skeleton, dags: make(map[string]*DAG)}
		c.secs[secKey] = sec
		c.place(sec, d.Cost)
	}
	d.sec = sec
	sec.dags[d.Key] = d
	sec.DAGs = append(sec.DAGs, d)
	if d.Cost < sec.Best.Cost {
		sec.Best = d
	}
	if sec.Best.Cost < sec.mmlec.Best.Best.Cost {
		sec.mmlec.Best = sec
	}
	c.bump(d, weight)
	return d
}

// place puts a new SEC into the first MMLEC whose best SEC is at most one
// link away and within threshold nats, or into a new MMLEC.
func (c *collector) place(sec *SEC, cost float64) {
	for _, m := range c.mmlecs {
		best := m.Best
		if tom.SkeletonDistance(best.skeleton, sec.skeleton) <= 1 && math.Abs(best.Best.Cost-cost) <= c.threshold {
			sec.mmlec = m
			m.SECs = append(m.SECs, sec)
			return
		}
	}
	m := &MMLEC{SECs: []*SEC{sec}, Best: sec}
	sec.mmlec = m
	c.mmlecs = append(c.mmlecs, m)
}

// merge folds every structure recorded by o into c.
func (c *collector) merge(o *collector) {
	for _, m := range o.mmlecs {
		for _, sec := range m.SECs {
			for _, d := range sec.DAGs {
				if mine, ok := c.secs[sec.Key]; ok {
					if own, ok := mine.dags[d.Key]; ok {
						c.improve(own, d.Cost)
						c.bump(own, d.Weight)
						continue
					}
				}
				c.insert(sec.Key, sec.skeleton, &DAG{
					Key:       d.Key,
					Structure: d.Structure,
					Cost:      d.Cost,
					PriorCost: d.PriorCost,
				}, d.Weight)
			}
		}
	}
}
