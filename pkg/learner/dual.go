package learner

import (
	"math"
	"strings"

	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/tom"
)

// Dual runs each of its learners and keeps the cheapest fit. A learner that
// fails is skipped; Dual fails only when all of them do.
type Dual struct {
	Learners []tom.ModelLearner
}

// NewDual returns a Dual over CPT and Wallace sharing one combination limit.
func NewDual(maxCombinations int) *Dual {
	return &Dual{Learners: []tom.ModelLearner{
		CPT{MaxCombinations: maxCombinations},
		Wallace{MaxCombinations: maxCombinations},
	}}
}

// Name implements tom.ModelLearner.
func (*Dual) Name() string { return "dual" }

// Parameterize implements tom.ModelLearner. The returned fit names the
// learner that won.
func (d *Dual) Parameterize(data tom.Dataset, node int, parents []int) (*tom.Fit, error) {
	var best *tom.Fit
	var reasons []string
	for _, l := range d.Learners {
		fit, err := l.Parameterize(data, node, parents)
		if err != nil {
			reasons = append(reasons, err.Error())
			continue
		}
		if best == nil || fit.Cost < best.Cost {
			best = fit
		}
	}
	if best == nil {
		return nil, d.allFailed(node, parents, reasons)
	}
	return best, nil
}

// Cost implements tom.ModelLearner.
func (d *Dual) Cost(data tom.Dataset, node int, parents []int) (float64, error) {
	best := math.Inf(1)
	ok := false
	var reasons []string
	for _, l := range d.Learners {
		c, err := l.Cost(data, node, parents)
		if err != nil {
			reasons = append(reasons, err.Error())
			continue
		}
		ok = true
		best = min(best, c)
	}
	if !ok {
		return 0, d.allFailed(node, parents, reasons)
	}
	return best, nil
}

func (d *Dual) allFailed(node int, parents []int, reasons []string) error {
	if len(reasons) == 0 {
		reasons = []string{"no learners configured"}
	}
	return &errors.LearnerError{
		Learner: d.Name(),
		Node:    node,
		Parents: parents,
		Reason:  "all learners failed: " + strings.Join(reasons, "; "),
	}
}

// New returns the learner named kind ("cpt", "wallace" or "dual").
func New(kind string, maxCombinations int) (tom.ModelLearner, error) {
	switch kind {
	case "cpt":
		return CPT{MaxCombinations: maxCombinations}, nil
	case "wallace":
		return Wallace{MaxCombinations: maxCombinations}, nil
	case "dual", "":
		return NewDual(maxCombinations), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown learner %q", kind)
}
