package search

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/matzehuels/camml/pkg/tom"
)

// Result is the outcome of a search.
type Result struct {
	Nodes       int           `json:"nodes"`
	Names       []string      `json:"names,omitempty"`
	Learner     string        `json:"learner"`
	Chains      int           `json:"chains"`
	Epochs      int           `json:"epochs"` // sampling epochs per chain
	Samples     float64       `json:"samples"`
	Accepted    int           `json:"accepted"`
	Rejected    int           `json:"rejected"`
	SECs        int           `json:"secs"` // distinct SECs visited, before pruning
	Interrupted bool          `json:"interrupted,omitempty"`
	Duration    time.Duration `json:"duration"`
	MMLECs      []MMLECReport `json:"mmlecs"`
}

// MMLECReport summarises one MMLEC.
type MMLECReport struct {
	SECs           int         `json:"secs"`
	Posterior      float64     `json:"posterior"`
	RelativePrior  float64     `json:"relative_prior"`
	BestMML        float64     `json:"best_mml"`
	Weight         float64     `json:"weight"`
	Representative *tom.Params `json:"representative"`
	Classes        []SECReport `json:"classes"`
}

// SECReport summarises one SEC within an MMLEC.
type SECReport struct {
	DAGs           int         `json:"dags"`
	Posterior      float64     `json:"posterior"`
	BestMML        float64     `json:"best_mml"`
	Weight         float64     `json:"weight"`
	Representative *tom.Params `json:"representative"`
}

// Best returns the most probable MMLEC, or nil if there is none.
func (r *Result) Best() *MMLECReport {
	if len(r.MMLECs) == 0 {
		return nil
	}
	return &r.MMLECs[0]
}

// report turns the collected classes into a pruned, sorted Result.
func (s *Searcher) report(c *collector, epochs int) *Result {
	res := &Result{
		Nodes:   s.data.NumVars(),
		Learner: s.learner.Name(),
		Chains:  s.opts.Chains,
		Epochs:  epochs,
		Samples: c.total,
		SECs:    len(c.secs),
	}
	if named, ok := s.data.(interface{ Names() []string }); ok {
		res.Names = named.Names()
	}

	mmlecs := slices.Clone(c.mmlecs)
	slices.SortStableFunc(mmlecs, func(a, b *MMLEC) int {
		if a.Weight != b.Weight {
			return cmp.Compare(b.Weight, a.Weight)
		}
		return cmp.Compare(a.Best.Best.Cost, b.Best.Best.Cost)
	})
	priors := relativePriors(mmlecs)

	cumulative := 0.0
	for i, m := range mmlecs {
		if len(res.MMLECs) >= s.opts.MaxMMLECs || cumulative >= s.opts.MinTotalPosterior {
			break
		}
		r := MMLECReport{
			SECs:           len(m.SECs),
			Posterior:      share(m.Weight, c.total),
			RelativePrior:  priors[i],
			BestMML:        m.Best.Best.Cost,
			Weight:         m.Weight,
			Representative: s.parameterize(m.Best.Best.Structure),
		}
		secs := slices.Clone(m.SECs)
		slices.SortStableFunc(secs, func(a, b *SEC) int { return cmp.Compare(b.Weight, a.Weight) })
		for _, sec := range secs {
			r.Classes = append(r.Classes, SECReport{
				DAGs:           len(sec.DAGs),
				Posterior:      share(sec.Weight, c.total),
				BestMML:        sec.Best.Cost,
				Weight:         sec.Weight,
				Representative: sec.Best.Structure.Clone(),
			})
		}
		res.MMLECs = append(res.MMLECs, r)
		cumulative += r.Posterior
	}
	return res
}

// parameterize fits the learner to a representative structure. On failure
// the bare structure is returned.
func (s *Searcher) parameterize(p *tom.Params) *tom.Params {
	t, err := tom.FromParams(s.data, p)
	if err == nil {
		var fitted *tom.Params
		if fitted, err = t.MakeParameters(s.learner); err == nil {
			return fitted
		}
	}
	s.logger.Warn("could not parameterize representative", "error", err)
	return p.Clone()
}

// relativePriors normalises the summed DAG priors of each MMLEC.
func relativePriors(mmlecs []*MMLEC) []float64 {
	logs := make([]float64, len(mmlecs))
	top := math.Inf(-1)
	for i, m := range mmlecs {
		logs[i] = math.Inf(-1)
		for _, sec := range m.SECs {
			for _, d := range sec.DAGs {
				logs[i] = logAdd(logs[i], -d.PriorCost)
			}
		}
		top = math.Max(top, logs[i])
	}
	total := 0.0
	for i := range logs {
		logs[i] = math.Exp(logs[i] - top)
		total += logs[i]
	}
	for i := range logs {
		logs[i] /= total
	}
	return logs
}

func logAdd(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	hi, lo := max(a, b), min(a, b)
	return hi + math.Log1p(math.Exp(lo-hi))
}

func share(w, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return w / total
}
