package search

import (
	"context"
	"math"
	"time"

	"github.com/matzehuels/camml/pkg/enumerate"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/tom"
)

// Exhaustive scores every DAG over the variables instead of sampling and
// weights each by its posterior, exp(-(DAG prior + data cost)). It needs
// fewer than enumerate.MaxGraphSize variables and fails with
// CAPACITY_EXCEEDED otherwise, in which case Run must be used.
//
// Tier and arc constraints remove DAGs that break them. DAGs the learner
// cannot score are skipped.
func (s *Searcher) Exhaustive(ctx context.Context) (*Result, error) {
	start := time.Now()
	dags, err := enumerate.EnumerateGraphs(s.data)
	if err != nil {
		return nil, err
	}
	n := s.data.NumVars()
	prior := NewStructurePrior(n, s.opts.ArcProb, s.counter)
	cache := NewNodeCache(s.data, s.learner)

	type scored struct {
		t         *tom.TOM
		cost      float64 // TOM prior plus data
		posterior float64 // DAG prior plus data
	}
	var kept []scored
	best := math.Inf(1)
	for i, t := range dags {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !s.cons.allows(t) {
			continue
		}
		data := 0.0
		for v := 0; v < n; v++ {
			data += cache.Cost(v, t.Parents(v))
		}
		if math.IsInf(data, 1) {
			continue
		}
		dagPrior, err := prior.DAGCost(t.Graph())
		if err != nil {
			return nil, err
		}
		sc := scored{t: t, cost: prior.TOMCost(t.NumArcs()) + data, posterior: dagPrior + data}
		best = math.Min(best, sc.posterior)
		kept = append(kept, sc)
	}
	if len(kept) == 0 {
		return nil, errors.New(errors.ErrCodeLearner, "no DAG over %d variables could be scored", n)
	}

	rec := newCollector(s.opts.MergeThreshold, prior)
	for _, sc := range kept {
		rec.visit(sc.t, sc.cost, math.Exp(best-sc.posterior))
	}
	res := s.report(rec, 0)
	res.Chains = 0
	res.Duration = time.Since(start)
	s.logger.Info("exhaustive search complete",
		"dags", len(dags),
		"scored", len(kept),
		"mmlecs", len(res.MMLECs),
		"duration", res.Duration)
	return res, nil
}

// allows reports whether the DAG t describes honours every constraint,
// judging tiers by arc direction rather than by t's particular order.
func (c *constraints) allows(t *tom.TOM) bool {
	if c.empty {
		return true
	}
	for v := 0; v < c.n; v++ {
		parents := t.Parents(v)
		if parents&c.forbidden[v] != 0 || c.required[v]&^parents != 0 {
			return false
		}
		if c.tier[v] < 0 {
			continue
		}
		for _, p := range maskToList(parents) {
			if c.tier[p] > c.tier[v] {
				return false
			}
		}
	}
	return true
}
