package learner

import (
	"fmt"
	"math"

	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/perm"
	"github.com/matzehuels/camml/pkg/tom"
)

// Wallace learns a full conditional probability table and prices it with the
// MML87 approximation for a K-state multinomial per parent configuration.
// Each configuration states its K-1 free parameters to the optimal precision
// under a uniform prior on the simplex and then the data given them.
//
// Unlike CPT, Wallace refuses parent sets with more configurations than
// there are records, since the approximation is meaningless there.
type Wallace struct {
	// MaxCombinations is the largest number of parent configurations
	// accepted. Zero means DefaultMaxCombinations.
	MaxCombinations int
}

// Name implements tom.ModelLearner.
func (Wallace) Name() string { return "wallace" }

// Parameterize implements tom.ModelLearner. Params holds the MML87 estimate
// (n_k+1/2)/(N+K/2) of every cell.
func (l Wallace) Parameterize(data tom.Dataset, node int, parents []int) (*tom.Fit, error) {
	t, err := l.table(data, node, parents)
	if err != nil {
		return nil, err
	}
	params := make([]float64, len(t.counts))
	cost := 0.0
	for c := 0; c < t.configs; c++ {
		row, total := t.row(c)
		theta := estimate(row, total)
		copy(params[c*t.arity:], theta)
		cost += mml87(row, total, theta)
	}
	return &tom.Fit{
		Learner: l.Name(),
		Model:   "mml87[" + describe(parents) + "]",
		Stats:   t.counts,
		Params:  params,
		Cost:    cost,
	}, nil
}

// Cost implements tom.ModelLearner.
func (l Wallace) Cost(data tom.Dataset, node int, parents []int) (float64, error) {
	t, err := l.table(data, node, parents)
	if err != nil {
		return 0, err
	}
	cost := 0.0
	for c := 0; c < t.configs; c++ {
		row, total := t.row(c)
		cost += mml87(row, total, estimate(row, total))
	}
	return cost, nil
}

func (l Wallace) table(data tom.Dataset, node int, parents []int) (*table, error) {
	configs, err := configurations(l.Name(), data, node, parents, limitOr(l.MaxCombinations))
	if err != nil {
		return nil, err
	}
	if len(parents) > 0 && configs > data.Len() {
		return nil, &errors.LearnerError{
			Learner: l.Name(),
			Node:    node,
			Parents: parents,
			Reason:  fmt.Sprintf("%d parent combinations for %d records", configs, data.Len()),
		}
	}
	return tabulate(data, node, parents, configs), nil
}

func estimate(row []int, total int) []float64 {
	k := float64(len(row))
	theta := make([]float64, len(row))
	for i, n := range row {
		theta[i] = (float64(n) + 0.5) / (float64(total) + k/2)
	}
	return theta
}

// mml87 is the message length of one multinomial configuration:
//
//	-log h + 1/2 log F - sum n_k log theta_k + d/2 (1 + log kappa_d)
//
// with prior density h = (K-1)!, Fisher information F = N'^d / prod theta_k,
// d = K-1 and N' = N + K/2 so that empty configurations stay finite.
func mml87(row []int, total int, theta []float64) float64 {
	k := len(row)
	if k < 2 {
		return 0
	}
	d := float64(k - 1)
	n := float64(total) + float64(k)/2

	logF := d * math.Log(n)
	data := 0.0
	for i, c := range row {
		lt := math.Log(theta[i])
		logF -= lt
		data -= float64(c) * lt
	}
	return -perm.LogFactorial(k-1) + logF/2 + data + d/2*(1+logKappa(k-1))
}

// logKappa returns the log of the normalised second moment of the optimal
// quantizing lattice in d dimensions. Values are exact for d <= 3 and use
// the large-d approximation otherwise.
func logKappa(d int) float64 {
	switch d {
	case 1:
		return math.Log(1.0 / 12)
	case 2:
		return math.Log(5 / (36 * math.Sqrt(3)))
	case 3:
		return math.Log(19 / (192 * math.Cbrt(2)))
	}
	const eulerGamma = 0.5772156649015329
	fd := float64(d)
	return -math.Log(2*math.Pi*math.E) + (math.Log(math.Pi*fd)-2*eulerGamma)/fd
}
