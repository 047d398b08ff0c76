package learner

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/camml/pkg/data"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/tom"
)

// dataset builds a table whose arities are one more than each column's
// largest value.
func dataset(t *testing.T, cols ...[]int) *data.Dataset {
	t.Helper()
	names := make([]string, len(cols))
	states := make([][]string, len(cols))
	for v, col := range cols {
		names[v] = fmt.Sprintf("v%d", v)
		k := 1
		for _, x := range col {
			k = max(k, x+1)
		}
		for s := 0; s < k; s++ {
			states[v] = append(states[v], fmt.Sprint(s))
		}
	}
	ds, err := data.New(names, states, cols)
	require.NoError(t, err)
	return ds
}

// copied returns a dataset where v1 copies a uniformly random binary v0.
func copied(t *testing.T, rows int) *data.Dataset {
	rng := rand.New(rand.NewPCG(1, 2))
	x := make([]int, rows)
	for i := range x {
		x[i] = rng.IntN(2)
	}
	return dataset(t, x, append([]int(nil), x...))
}

func TestCPTAdaptiveCode(t *testing.T) {
	ds := dataset(t, []int{0, 0, 0, 1})

	// 5! / (1! 3! 1!) orderings of the adaptive code.
	cost, err := CPT{}.Cost(ds, 0, nil)
	require.NoError(t, err)
	require.InDelta(t, math.Log(20), cost, 1e-9)

	fit, err := CPT{}.Parameterize(ds, 0, nil)
	require.NoError(t, err)
	require.Equal(t, []int{3, 1}, fit.Stats)
	require.InDeltaSlice(t, []float64{4.0 / 6, 2.0 / 6}, fit.Params, 1e-12)
	require.Equal(t, cost, fit.Cost)
	require.Equal(t, "cpt", fit.Learner)
}

func TestLearnersRewardDependence(t *testing.T) {
	ds := copied(t, 200)
	learners := []tom.ModelLearner{CPT{}, Wallace{}, NewDual(0)}
	for _, l := range learners {
		t.Run(l.Name(), func(t *testing.T) {
			alone, err := l.Cost(ds, 1, nil)
			require.NoError(t, err)
			given, err := l.Cost(ds, 1, []int{0})
			require.NoError(t, err)
			require.Less(t, given, alone)

			fit, err := l.Parameterize(ds, 1, []int{0})
			require.NoError(t, err)
			require.InDelta(t, given, fit.Cost, 1e-9)
			require.Len(t, fit.Params, 4)
		})
	}
}

func TestWallaceParams(t *testing.T) {
	ds := dataset(t, []int{0, 1, 1, 1})
	fit, err := Wallace{}.Parameterize(ds, 0, nil)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{1.5 / 5, 3.5 / 5}, fit.Params, 1e-12)
	require.False(t, math.IsInf(fit.Cost, 0) || math.IsNaN(fit.Cost))

	constant := dataset(t, []int{0, 0, 0})
	cost, err := Wallace{}.Cost(constant, 0, nil)
	require.NoError(t, err)
	require.Zero(t, cost, "single-state variable costs nothing")
}

func TestMaxCombinations(t *testing.T) {
	ds := dataset(t, []int{0, 1, 0, 1}, []int{0, 0, 1, 1}, []int{1, 0, 0, 1})

	_, err := CPT{MaxCombinations: 3}.Cost(ds, 2, []int{0, 1})
	require.True(t, errors.Is(err, errors.ErrCodeLearner))
	var le *errors.LearnerError
	require.ErrorAs(t, err, &le)
	require.Equal(t, "cpt", le.Learner)
	require.Equal(t, 2, le.Node)

	_, err = CPT{MaxCombinations: 4}.Cost(ds, 2, []int{0, 1})
	require.NoError(t, err)
}

func TestWallaceNeedsData(t *testing.T) {
	ds := dataset(t, []int{0, 1, 0}, []int{0, 0, 1}, []int{1, 0, 0})

	_, err := Wallace{}.Cost(ds, 2, []int{0, 1})
	require.True(t, errors.Is(err, errors.ErrCodeLearner))

	fit, err := NewDual(0).Parameterize(ds, 2, []int{0, 1})
	require.NoError(t, err)
	require.Equal(t, "cpt", fit.Learner, "dual falls back to the learner that succeeds")
}

func TestDualPicksMinimum(t *testing.T) {
	ds := copied(t, 50)
	cpt, err := CPT{}.Cost(ds, 1, []int{0})
	require.NoError(t, err)
	wal, err := Wallace{}.Cost(ds, 1, []int{0})
	require.NoError(t, err)

	got, err := NewDual(0).Cost(ds, 1, []int{0})
	require.NoError(t, err)
	require.Equal(t, min(cpt, wal), got)
}

func TestDualAllFailed(t *testing.T) {
	ds := copied(t, 10)
	_, err := NewDual(1).Parameterize(ds, 1, []int{0})
	require.True(t, errors.Is(err, errors.ErrCodeLearner))
	require.Contains(t, err.Error(), "all learners failed")

	_, err = (&Dual{}).Cost(ds, 1, nil)
	require.True(t, errors.Is(err, errors.ErrCodeLearner))
}

func TestNew(t *testing.T) {
	for _, kind := range []string{"cpt", "wallace", "dual"} {
		l, err := New(kind, 0)
		require.NoError(t, err)
		require.Equal(t, kind, l.Name())
	}
	_, err := New("dtree", 0)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}
