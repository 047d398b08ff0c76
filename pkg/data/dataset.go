// Package data holds the discrete tabular datasets the structure search runs
// over.
//
// A [Dataset] is an immutable, column-major table: each variable (column) has
// a name, an arity, and one state index in [0, arity) per record. The search
// only needs the column count and per-column arity; the learners read the
// values to build sufficient statistics.
package data

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand/v2"

	"github.com/matzehuels/camml/pkg/errors"
)

// Dataset is an immutable table of discrete values.
// Dataset is safe for concurrent reads.
type Dataset struct {
	names   []string
	states  [][]string
	columns [][]int
	rows    int
}

// New creates a dataset from column-major values. states[v] lists the labels
// of variable v; every value in columns[v] must index into it.
func New(names []string, states [][]string, columns [][]int) (*Dataset, error) {
	if len(names) != len(columns) || len(states) != len(columns) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d names, %d state lists and %d columns", len(names), len(states), len(columns))
	}
	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0])
	}
	for v, col := range columns {
		if len(col) != rows {
			return nil, errors.New(errors.ErrCodeInvalidInput, "column %q has %d values, want %d", names[v], len(col), rows)
		}
		if len(states[v]) == 0 && rows > 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "column %q has no states", names[v])
		}
		for r, x := range col {
			if x < 0 || x >= len(states[v]) {
				return nil, errors.New(errors.ErrCodeInvalidInput, "column %q row %d: state %d out of range", names[v], r, x)
			}
		}
	}
	return &Dataset{names: names, states: states, columns: columns, rows: rows}, nil
}

// Empty returns a dataset of n binary variables and no records. It stands in
// for real data where only the shape matters, such as exhaustive structure
// enumeration.
func Empty(n int) *Dataset {
	d := &Dataset{names: make([]string, n), states: make([][]string, n), columns: make([][]int, n)}
	for v := range n {
		d.names[v] = fmt.Sprintf("X%d", v)
		d.states[v] = []string{"s0", "s1"}
		d.columns[v] = []int{}
	}
	return d
}

// NumVars returns the number of variables (columns).
func (d *Dataset) NumVars() int { return len(d.columns) }

// Len returns the number of records.
func (d *Dataset) Len() int { return d.rows }

// Arity returns the number of states of variable v.
func (d *Dataset) Arity(v int) int { return len(d.states[v]) }

// Value returns the state index of variable v in record row.
func (d *Dataset) Value(row, v int) int { return d.columns[v][row] }

// Column returns the values of variable v. The slice must not be modified.
func (d *Dataset) Column(v int) []int { return d.columns[v] }

// Name returns the name of variable v.
func (d *Dataset) Name(v int) string { return d.names[v] }

// Names returns a copy of the variable names.
func (d *Dataset) Names() []string { return append([]string(nil), d.names...) }

// States returns the state labels of variable v. The slice must not be modified.
func (d *Dataset) States(v int) []string { return d.states[v] }

// Hash returns a SHA-256 fingerprint of names, states and values, used as
// the dataset component of result cache keys.
func (d *Dataset) Hash() string {
	h := sha256.New()
	var buf [8]byte
	for v := range d.columns {
		fmt.Fprintf(h, "%q:", d.names[v])
		for _, s := range d.states[v] {
			fmt.Fprintf(h, "%q,", s)
		}
		for _, x := range d.columns[v] {
			binary.LittleEndian.PutUint64(buf[:], uint64(x))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Simulate draws n records from a discrete Bayesian network. parents[v] lists
// the parents of v, which must all precede v in index order; CPT entries are
// drawn from a symmetric Dirichlet(1) so that every structure has visible
// dependencies.
func Simulate(rng *rand.Rand, arities []int, parents [][]int, n int) (*Dataset, error) {
	vars := len(arities)
	if len(parents) != vars {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d parent lists for %d variables", len(parents), vars)
	}
	cpts := make([][][]float64, vars)
	for v := 0; v < vars; v++ {
		configs := 1
		for _, p := range parents[v] {
			if p >= v || p < 0 {
				return nil, errors.New(errors.ErrCodeInvalidInput, "parent %d of %d must precede it", p, v)
			}
			configs *= arities[p]
		}
		cpts[v] = make([][]float64, configs)
		for c := range cpts[v] {
			cpts[v][c] = dirichlet(rng, arities[v])
		}
	}

	names := make([]string, vars)
	states := make([][]string, vars)
	columns := make([][]int, vars)
	for v := 0; v < vars; v++ {
		names[v] = fmt.Sprintf("X%d", v)
		states[v] = make([]string, arities[v])
		for s := range states[v] {
			states[v][s] = fmt.Sprintf("s%d", s)
		}
		columns[v] = make([]int, n)
	}
	for r := 0; r < n; r++ {
		for v := 0; v < vars; v++ {
			config := 0
			for _, p := range parents[v] {
				config = config*arities[p] + columns[p][r]
			}
			columns[v][r] = draw(rng, cpts[v][config])
		}
	}
	return New(names, states, columns)
}

func dirichlet(rng *rand.Rand, k int) []float64 {
	p := make([]float64, k)
	sum := 0.0
	for i := range p {
		p[i] = rng.ExpFloat64()
		sum += p[i]
	}
	for i := range p {
		p[i] /= sum
	}
	return p
}

func draw(rng *rand.Rand, p []float64) int {
	u := rng.Float64()
	for i, x := range p {
		if u < x {
			return i
		}
		u -= x
	}
	return len(p) - 1
}
