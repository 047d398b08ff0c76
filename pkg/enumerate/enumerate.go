// Package enumerate lists every labelled DAG over a small set of variables.
//
// Enumeration walks all n! total orders with [IncrementOrder] and, for each
// order, all 2^C(n,2) subsets of order-respecting arcs. A DAG is reachable
// from every one of its linear extensions, so structures are de-duplicated by
// their parent sets and the first TOM seen for each is kept. The result has
// exactly [extension.NumDAGs](n) entries.
//
// The work grows as n! * 2^(n(n-1)/2), which limits enumeration to
// n < [MaxGraphSize]. Larger problems must use the sampler in pkg/search.
package enumerate

import (
	"github.com/matzehuels/camml/pkg/data"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/perm"
	"github.com/matzehuels/camml/pkg/tom"
)

// MaxGraphSize is the exclusive upper bound on the number of variables that
// can be enumerated.
const MaxGraphSize = 6

// key identifies a DAG by its parent masks.
type key [MaxGraphSize]uint64

// EnumerateDAGs returns every distinct DAG over n binary variables, one TOM
// each. Returns INVALID_INPUT for negative n and CAPACITY_EXCEEDED for
// n >= MaxGraphSize.
func EnumerateDAGs(n int) ([]*tom.TOM, error) {
	if err := checkSize(n); err != nil {
		return nil, err
	}
	return enumerate(data.Empty(n))
}

// EnumerateGraphs returns every distinct DAG over the variables of ds.
func EnumerateGraphs(ds tom.Dataset) ([]*tom.TOM, error) {
	if err := checkSize(ds.NumVars()); err != nil {
		return nil, err
	}
	return enumerate(ds)
}

// IncrementOrder advances order to its lexicographic successor and reports
// whether one existed. After the last permutation order is reset to
// ascending, so repeated calls from the identity visit all n! orders once.
func IncrementOrder(order []int) bool {
	return perm.Next(order)
}

func checkSize(n int) error {
	if n < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cannot enumerate DAGs over %d nodes", n)
	}
	if n >= MaxGraphSize {
		return errors.New(errors.ErrCodeCapacity, "enumeration limited to fewer than %d nodes, got %d", MaxGraphSize, n)
	}
	return nil
}

func enumerate(ds tom.Dataset) ([]*tom.TOM, error) {
	n := ds.NumVars()
	pairs := n * (n - 1) / 2
	seen := make(map[key]struct{})
	var out []*tom.TOM

	order := perm.Seq(n)
	for {
		for subset := uint64(0); subset < 1<<uint(pairs); subset++ {
			k := parentsOf(order, subset)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			t, err := build(ds, order, k)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		if !IncrementOrder(order) {
			break
		}
	}
	return out, nil
}

// parentsOf maps bit b of subset to the b-th order-respecting pair (p, q),
// p < q in position, and returns the resulting parent masks.
func parentsOf(order []int, subset uint64) key {
	var k key
	b := 0
	for q := 1; q < len(order); q++ {
		for p := 0; p < q; p++ {
			if subset&(1<<uint(b)) != 0 {
				k[order[q]] |= 1 << uint(order[p])
			}
			b++
		}
	}
	return k
}

func build(ds tom.Dataset, order []int, k key) (*tom.TOM, error) {
	t, err := tom.New(ds)
	if err != nil {
		return nil, err
	}
	if err := t.SetOrder(order); err != nil {
		return nil, err
	}
	for child := 0; child < len(order); child++ {
		for par := 0; par < len(order); par++ {
			if k[child]&(1<<uint(par)) != 0 && !t.AddArc(par, child) {
				return nil, errors.New(errors.ErrCodeInternal, "arc %d->%d rejected during enumeration", par, child)
			}
		}
	}
	return t, nil
}
