package tom

import (
	"fmt"
	"slices"

	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/perm"
)

// ModelLearner fits the local distribution of one variable given a parent
// set and prices it in nats. Implementations return a LEARNER_FAILED error
// (see errors.LearnerError) when the parent set cannot be parameterized.
type ModelLearner interface {
	// Name identifies the learner in results and logs.
	Name() string

	// Parameterize fits node given parents and returns the fitted model.
	Parameterize(data Dataset, node int, parents []int) (*Fit, error)

	// Cost returns the MML cost of node given parents without keeping the
	// fitted parameters.
	Cost(data Dataset, node int, parents []int) (float64, error)
}

// Fit is the result of parameterizing one node.
type Fit struct {
	Learner string    `json:"learner"`          // Learner that produced the fit
	Model   string    `json:"model"`            // Model variant chosen by the learner
	Stats   []int     `json:"stats,omitempty"`  // Sufficient statistics, configuration-major
	Params  []float64 `json:"params,omitempty"` // Fitted parameters, configuration-major
	Cost    float64   `json:"cost"`             // MML cost in nats
}

// NodeParams holds one node's parents and fitted model.
type NodeParams struct {
	Node    int   `json:"node"`
	Parents []int `json:"parents"`
	Fit     *Fit  `json:"fit,omitempty"`
}

// Params is a snapshot of a TOM's structure and, when produced by
// MakeParameters, its fitted local models.
type Params struct {
	Order []int        `json:"order"`
	Nodes []NodeParams `json:"nodes"`
}

// Cost returns the sum of the fitted node costs. Nodes without a fit
// contribute nothing.
func (p *Params) Cost() float64 {
	total := 0.0
	for _, n := range p.Nodes {
		if n.Fit != nil {
			total += n.Fit.Cost
		}
	}
	return total
}

// Structure returns the order and parent sets of t without fitting models.
func (t *TOM) Structure() *Params {
	p := &Params{Order: t.Order(), Nodes: make([]NodeParams, t.NumNodes())}
	for i := range p.Nodes {
		p.Nodes[i] = NodeParams{Node: i, Parents: t.ParentList(i)}
	}
	return p
}

// MakeParameters fits every node given its current parents using l.
// The first learner failure is returned, wrapped with the node it concerns;
// the TOM itself is never modified.
func (t *TOM) MakeParameters(l ModelLearner) (*Params, error) {
	p := t.Structure()
	for i := range p.Nodes {
		fit, err := l.Parameterize(t.data, i, p.Nodes[i].Parents)
		if err != nil {
			return nil, fmt.Errorf("parameterize node %d: %w", i, err)
		}
		p.Nodes[i].Fit = fit
	}
	return p, nil
}

// SetStructure overwrites the order and arcs of t with those recorded in p.
// Afterwards t is Equal to the TOM p was captured from.
//
// Returns INVALID_INPUT if p does not describe t's variables and INVALID_ARC
// if a recorded parent does not precede its child in the recorded order. On
// error t is left unchanged.
func (t *TOM) SetStructure(p *Params) error {
	n := t.NumNodes()
	if len(p.Order) != n || !perm.IsPermutation(p.Order) {
		return errors.New(errors.ErrCodeInvalidInput, "order %v does not cover %d nodes", p.Order, n)
	}
	if len(p.Nodes) != n {
		return errors.New(errors.ErrCodeInvalidInput, "%d node entries for %d nodes", len(p.Nodes), n)
	}

	position := perm.Inverse(p.Order)
	links := make([]uint64, n)
	for _, np := range p.Nodes {
		if np.Node < 0 || np.Node >= n {
			return errors.New(errors.ErrCodeInvalidInput, "node %d out of range", np.Node)
		}
		for _, par := range np.Parents {
			if par < 0 || par >= n {
				return errors.New(errors.ErrCodeInvalidInput, "parent %d of node %d out of range", par, np.Node)
			}
			if position[par] >= position[np.Node] {
				return errors.New(errors.ErrCodeInvalidArc, "parent %d does not precede node %d in order", par, np.Node)
			}
			links[par] |= bit(np.Node)
			links[np.Node] |= bit(par)
		}
	}

	copy(t.order, p.Order)
	copy(t.position, position)
	copy(t.links, links)
	t.rebuildParents()
	return nil
}

// FromParams builds a new TOM over data from a structure snapshot.
func FromParams(data Dataset, p *Params) (*TOM, error) {
	t, err := New(data)
	if err != nil {
		return nil, err
	}
	if err := t.SetStructure(p); err != nil {
		return nil, err
	}
	return t, nil
}

// Clone returns a deep copy of the snapshot.
func (p *Params) Clone() *Params {
	out := &Params{Order: slices.Clone(p.Order), Nodes: make([]NodeParams, len(p.Nodes))}
	for i, n := range p.Nodes {
		out.Nodes[i] = NodeParams{Node: n.Node, Parents: slices.Clone(n.Parents)}
		if n.Fit != nil {
			f := *n.Fit
			f.Stats = slices.Clone(n.Fit.Stats)
			f.Params = slices.Clone(n.Fit.Params)
			out.Nodes[i].Fit = &f
		}
	}
	return out
}
