package learner

import (
	"math"

	"github.com/matzehuels/camml/pkg/tom"
)

// CPT learns a full conditional probability table and prices it with the
// adaptive code: the data in each parent configuration is sent with
// probabilities updated from a uniform Dirichlet prior as symbols arrive.
// For a configuration with counts n_1..n_K summing to N the cost is
//
//	lgamma(N+K) - lgamma(K) - sum_k lgamma(n_k+1)
//
// which is exact and needs no parameter precision.
type CPT struct {
	// MaxCombinations is the largest number of parent configurations
	// accepted. Zero means DefaultMaxCombinations.
	MaxCombinations int
}

// Name implements tom.ModelLearner.
func (CPT) Name() string { return "cpt" }

// Parameterize implements tom.ModelLearner. Params holds the posterior mean
// (n_k+1)/(N+K) of every cell.
func (l CPT) Parameterize(data tom.Dataset, node int, parents []int) (*tom.Fit, error) {
	configs, err := configurations(l.Name(), data, node, parents, limitOr(l.MaxCombinations))
	if err != nil {
		return nil, err
	}
	t := tabulate(data, node, parents, configs)
	params := make([]float64, len(t.counts))
	for c := 0; c < configs; c++ {
		row, total := t.row(c)
		for k, n := range row {
			params[c*t.arity+k] = float64(n+1) / float64(total+t.arity)
		}
	}
	return &tom.Fit{
		Learner: l.Name(),
		Model:   "cpt[" + describe(parents) + "]",
		Stats:   t.counts,
		Params:  params,
		Cost:    adaptiveCost(t),
	}, nil
}

// Cost implements tom.ModelLearner.
func (l CPT) Cost(data tom.Dataset, node int, parents []int) (float64, error) {
	configs, err := configurations(l.Name(), data, node, parents, limitOr(l.MaxCombinations))
	if err != nil {
		return 0, err
	}
	return adaptiveCost(tabulate(data, node, parents, configs)), nil
}

func adaptiveCost(t *table) float64 {
	k := float64(t.arity)
	lgK, _ := math.Lgamma(k)
	cost := 0.0
	for c := 0; c < t.configs; c++ {
		row, total := t.row(c)
		if total == 0 {
			continue
		}
		a, _ := math.Lgamma(float64(total) + k)
		cost += a - lgK
		for _, n := range row {
			b, _ := math.Lgamma(float64(n) + 1)
			cost -= b
		}
	}
	return cost
}
