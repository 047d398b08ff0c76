package enumerate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/extension"
	"github.com/matzehuels/camml/pkg/perm"
)

func TestEnumerateMatchesNumDAGs(t *testing.T) {
	for n := 0; n < MaxGraphSize; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			if n == 5 && testing.Short() {
				t.Skip("29281 DAGs")
			}
			dags, err := EnumerateDAGs(n)
			require.NoError(t, err)
			require.Equal(t, extension.NumDAGs(n), float64(len(dags)))
		})
	}
}

func TestEnumerateThree(t *testing.T) {
	dags, err := EnumerateDAGs(3)
	require.NoError(t, err)
	require.Len(t, dags, 25)
}

func TestEnumerateDistinct(t *testing.T) {
	dags, err := EnumerateDAGs(4)
	require.NoError(t, err)
	require.Len(t, dags, 543)

	keys := make(map[string]bool)
	for i, a := range dags {
		require.False(t, keys[a.StructureKey()], "duplicate structure %s", a)
		keys[a.StructureKey()] = true
		for _, b := range dags[i+1:] {
			require.False(t, a.Equal(b), "%s equals %s", a, b)
		}
	}
}

func TestEnumerateLimits(t *testing.T) {
	_, err := EnumerateDAGs(-1)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = EnumerateDAGs(MaxGraphSize)
	require.True(t, errors.Is(err, errors.ErrCodeCapacity))
}

func TestIncrementOrderVisitsAll(t *testing.T) {
	order := perm.Seq(5)
	seen := map[string]bool{fmt.Sprint(order): true}
	for IncrementOrder(order) {
		k := fmt.Sprint(order)
		require.False(t, seen[k], "repeat %s", k)
		seen[k] = true
	}
	require.Len(t, seen, 120)
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func ExampleEnumerateDAGs() {
	dags, _ := EnumerateDAGs(2)
	for _, d := range dags {
		fmt.Println(d)
	}
	// Output:
	// order=[0 1] arcs={}
	// order=[0 1] arcs={0->1}
	// order=[1 0] arcs={1->0}
}
