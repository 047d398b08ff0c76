package tom

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	cerrors "github.com/matzehuels/camml/pkg/errors"
)

// shape is a dataset with binary variables and no records.
type shape int

func (s shape) NumVars() int       { return int(s) }
func (s shape) Arity(int) int      { return 2 }
func (s shape) Len() int           { return 0 }
func (s shape) Value(_, _ int) int { return 0 }

func newTOM(t *testing.T, n int, arcs ...[2]int) *TOM {
	t.Helper()
	tm, err := New(shape(n))
	require.NoError(t, err)
	for _, a := range arcs {
		require.True(t, tm.AddArc(a[0], a[1]), "add %v", a)
	}
	return tm
}

func requireConsistent(t *testing.T, tm *TOM) {
	t.Helper()
	for k := 0; k < tm.NumNodes(); k++ {
		require.Equal(t, k, tm.NodeAt(tm.Position(k)), "order[position[%d]]", k)
	}
	for i := 0; i < tm.NumNodes(); i++ {
		for j := 0; j < tm.NumNodes(); j++ {
			if tm.IsArc(i, j) {
				require.Less(t, tm.Position(i), tm.Position(j), "arc %d->%d against order", i, j)
				require.NotZero(t, tm.Parents(j)&bit(i), "parent cache misses %d->%d", i, j)
			}
		}
	}
}

func TestNewCapacity(t *testing.T) {
	_, err := New(shape(65))
	require.True(t, cerrors.Is(err, cerrors.ErrCodeCapacity))
}

func TestAddRemoveArc(t *testing.T) {
	tm := newTOM(t, 4)

	require.False(t, tm.AddArc(1, 1), "reflexive arc")
	require.False(t, tm.AddArc(0, 9), "out of range")
	require.True(t, tm.AddArc(2, 0))
	require.True(t, tm.IsArc(0, 2), "direction follows order")
	require.False(t, tm.IsArc(2, 0))
	require.False(t, tm.AddArc(0, 2), "duplicate")
	require.False(t, tm.AddArc(2, 0), "duplicate reversed")
	require.Equal(t, 1, tm.NumArcs())

	require.True(t, tm.RemoveArc(2, 0))
	require.False(t, tm.RemoveArc(0, 2))
	require.Equal(t, 0, tm.NumArcs())
	require.Zero(t, tm.Parents(2))
}

func TestAncestry(t *testing.T) {
	tm := newTOM(t, 4, [2]int{0, 2}, [2]int{1, 2}, [2]int{2, 3})

	require.True(t, tm.IsAncestor(0, 2))
	require.True(t, tm.IsAncestor(0, 3))
	require.False(t, tm.IsAncestor(0, 1))
	require.False(t, tm.IsAncestor(2, 2))
	require.False(t, tm.IsAncestor(3, 0))
	require.True(t, tm.IsDescendant(2, 0))
	require.True(t, tm.IsDescendant(3, 1))
	require.False(t, tm.IsDescendant(0, 2))
	require.Equal(t, []int{0, 1}, tm.ParentList(2))
}

func TestIsCorrelated(t *testing.T) {
	// Two skeleton components: {0,1,2,3,7} joined through mixed directions,
	// and {4,5}; node 6 is isolated.
	tm := newTOM(t, 8,
		[2]int{0, 2}, [2]int{1, 2}, [2]int{2, 3}, [2]int{1, 7},
		[2]int{4, 5},
	)

	require.True(t, tm.IsCorrelated(3, 7), "3 <- 2 <- 1 -> 7")
	require.True(t, tm.IsCorrelated(0, 1), "common child")
	require.True(t, tm.IsCorrelated(5, 4))
	require.False(t, tm.IsCorrelated(0, 4))
	require.False(t, tm.IsCorrelated(6, 3))
	require.False(t, tm.IsAncestor(3, 7))
	require.False(t, tm.IsAncestor(7, 3))

	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			require.Equal(t, tm.IsCorrelated(i, j), tm.IsCorrelated(j, i))
		}
	}
}

func TestSwapOrderKeepsInverse(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	tm := newTOM(t, 10)
	for i := 0; i < 30; i++ {
		tm.AddArc(rng.IntN(10), rng.IntN(10))
	}
	for i := 0; i < 100; i++ {
		tm.SwapOrder(rng.IntN(10), rng.IntN(10), rng.IntN(2) == 0)
		requireConsistent(t, tm)
	}
}

func TestSwapOrderRedirectsArcs(t *testing.T) {
	tm := newTOM(t, 3, [2]int{0, 2}, [2]int{1, 2})
	tm.SwapOrder(0, 2, true)

	require.Equal(t, []int{2, 1, 0}, tm.Order())
	require.True(t, tm.IsArc(2, 0))
	require.True(t, tm.IsArc(2, 1))
	require.Equal(t, []int{2}, tm.ParentList(0))
	require.Empty(t, tm.ParentList(2))

	// A lazy swap back restores the original structure.
	tm.SwapOrder(0, 2, false)
	require.True(t, tm.IsArc(0, 2))
	require.Equal(t, []int{0, 1}, tm.ParentList(2))
}

func TestCloneIsIndependent(t *testing.T) {
	tm := newTOM(t, 5, [2]int{0, 1}, [2]int{1, 4})
	c := tm.Clone()
	require.True(t, c.Equal(tm))

	c.AddArc(2, 3)
	c.SwapOrder(0, 4, true)
	require.False(t, c.Equal(tm))
	require.False(t, tm.Linked(2, 3))
	require.Equal(t, []int{0, 1, 2, 3, 4}, tm.Order())

	tm.RemoveArc(0, 1)
	require.True(t, c.Linked(0, 1))
	require.Equal(t, tm.Data(), c.Data())
}

func TestSetStructureRestores(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 21))
	src := newTOM(t, 7)
	src.Randomize(rng)
	for i := 0; i < 12; i++ {
		src.AddArc(rng.IntN(7), rng.IntN(7))
	}
	params := src.Structure()

	dst := newTOM(t, 7, [2]int{0, 6}, [2]int{3, 4})
	dst.Randomize(rng)
	dst.SwapOrder(1, 5, false)
	require.NoError(t, dst.SetStructure(params))
	require.True(t, dst.Equal(src), "dst=%s src=%s", dst, src)
	requireConsistent(t, dst)

	// The snapshot is independent of later changes to src.
	src.AddArc(0, 1)
	src.RemoveArc(0, 1)
	fresh, err := FromParams(shape(7), params)
	require.NoError(t, err)
	require.True(t, fresh.Equal(dst))
}

func TestSetStructureRejectsInvalid(t *testing.T) {
	tm := newTOM(t, 3, [2]int{0, 1})
	before := tm.Clone()

	err := tm.SetStructure(&Params{Order: []int{0, 1, 2}, Nodes: []NodeParams{
		{Node: 0, Parents: []int{2}}, {Node: 1}, {Node: 2},
	}})
	require.True(t, cerrors.Is(err, cerrors.ErrCodeInvalidArc))
	require.True(t, tm.Equal(before), "failed SetStructure must not modify the TOM")

	err = tm.SetStructure(&Params{Order: []int{0, 0, 2}, Nodes: make([]NodeParams, 3)})
	require.True(t, cerrors.Is(err, cerrors.ErrCodeInvalidInput))
}

type countingLearner struct {
	failNode int
}

func (countingLearner) Name() string { return "counting" }

func (l countingLearner) Parameterize(_ Dataset, node int, parents []int) (*Fit, error) {
	if node == l.failNode {
		return nil, &cerrors.LearnerError{Learner: "counting", Node: node, Parents: parents, Reason: "refused"}
	}
	return &Fit{Learner: "counting", Model: "fixed", Cost: float64(1 + len(parents))}, nil
}

func (l countingLearner) Cost(d Dataset, node int, parents []int) (float64, error) {
	f, err := l.Parameterize(d, node, parents)
	if err != nil {
		return 0, err
	}
	return f.Cost, nil
}

func TestMakeParameters(t *testing.T) {
	tm := newTOM(t, 4, [2]int{0, 2}, [2]int{1, 2}, [2]int{2, 3})

	p, err := tm.MakeParameters(countingLearner{failNode: -1})
	require.NoError(t, err)
	require.Len(t, p.Nodes, 4)
	require.Equal(t, []int{0, 1}, p.Nodes[2].Parents)
	require.Equal(t, 1.0+1+3+2, p.Cost())

	before := tm.Clone()
	_, err = tm.MakeParameters(countingLearner{failNode: 3})
	require.True(t, cerrors.Is(err, cerrors.ErrCodeLearner))
	var le *cerrors.LearnerError
	require.True(t, errors.As(err, &le))
	require.Equal(t, 3, le.Node)
	require.True(t, tm.Equal(before))
}

func TestEquivalenceKey(t *testing.T) {
	// 0 -> 1 -> 2 and 0 <- 1 <- 2 are equivalent chains.
	chain := newTOM(t, 3, [2]int{0, 1}, [2]int{1, 2})
	reversed := newTOM(t, 3)
	require.NoError(t, reversed.SetOrder([]int{2, 1, 0}))
	reversed.AddArc(0, 1)
	reversed.AddArc(1, 2)
	require.Equal(t, chain.EquivalenceKey(), reversed.EquivalenceKey())
	require.NotEqual(t, chain.StructureKey(), reversed.StructureKey())

	// 0 -> 1 <- 2 is a v-structure and differs.
	collider := newTOM(t, 3)
	require.NoError(t, collider.SetOrder([]int{0, 2, 1}))
	collider.AddArc(0, 1)
	collider.AddArc(2, 1)
	require.Equal(t, [][3]int{{0, 2, 1}}, collider.VStructures())
	require.NotEqual(t, chain.EquivalenceKey(), collider.EquivalenceKey())

	require.Equal(t, 0, SkeletonDistance(chain.Skeleton(), reversed.Skeleton()))
	require.Equal(t, 0, SkeletonDistance(chain.Skeleton(), collider.Skeleton()), "same skeleton, different v-structures")
	require.Equal(t, 1, SkeletonDistance(chain.Skeleton(), newTOM(t, 3, [2]int{0, 1}).Skeleton()))
}

func ExampleTOM_SwapOrder() {
	t, _ := New(shape(3))
	t.AddArc(0, 2)
	t.AddArc(1, 2)
	fmt.Println(t)
	t.SwapOrder(0, 2, true)
	fmt.Println(t)
	// Output:
	// order=[0 1 2] arcs={0->2 1->2}
	// order=[2 1 0] arcs={2->1 2->0}
}
