package data

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/camml/pkg/errors"
)

func TestReadCSV(t *testing.T) {
	in := `rain, sprinkler, wet
yes, no, yes
no, yes, yes
no, no, no
yes, yes, yes
`
	d, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 3, d.NumVars())
	require.Equal(t, 4, d.Len())
	require.Equal(t, []string{"rain", "sprinkler", "wet"}, d.Names())
	require.Equal(t, 2, d.Arity(0))
	require.Equal(t, []string{"yes", "no"}, d.States(0))
	require.Equal(t, []int{0, 1, 1, 0}, d.Column(0))
	require.Equal(t, 1, d.Value(2, 2))
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	_, err = ReadCSV(strings.NewReader("a,\n1,2\n"))
	require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestNewValidates(t *testing.T) {
	_, err := New([]string{"a"}, [][]string{{"x"}}, [][]int{{0, 1}})
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = New([]string{"a", "b"}, [][]string{{"x"}, {"y"}}, [][]int{{0}, {0, 0}})
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestHashIsContentBased(t *testing.T) {
	a, err := ReadCSV(strings.NewReader("a,b\n1,2\n3,4\n"))
	require.NoError(t, err)
	b, err := ReadCSV(strings.NewReader("a,b\n1,2\n3,4\n"))
	require.NoError(t, err)
	c, err := ReadCSV(strings.NewReader("a,b\n1,2\n3,5\n"))
	require.NoError(t, err)

	require.Equal(t, a.Hash(), b.Hash())
	require.NotEqual(t, a.Hash(), c.Hash())
	require.Len(t, a.Hash(), 64)
}

func TestSimulate(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	d, err := Simulate(rng, []int{2, 3, 2}, [][]int{nil, {0}, {0, 1}}, 500)
	require.NoError(t, err)
	require.Equal(t, 3, d.NumVars())
	require.Equal(t, 500, d.Len())
	require.Equal(t, 3, d.Arity(1))

	_, err = Simulate(rng, []int{2, 2}, [][]int{{1}, nil}, 10)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
