package extension

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/camml/pkg/errors"
)

func TestInterleave(t *testing.T) {
	tests := []struct {
		a, b int
		want int64
	}{
		{0, 0, 1},
		{0, 7, 1},
		{1, 1, 2},
		{10, 10, 184756},
		{99, 1, 100},
		{1, 99, 100},
		{30, 30, 118264581564861424},
		{43, 26, 7023301266595310928},
		{26, 43, 7023301266595310928},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d,%d", tt.a, tt.b), func(t *testing.T) {
			got, err := Interleave(tt.a, tt.b)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestInterleaveOverflow(t *testing.T) {
	for _, c := range [][2]int{{43, 27}, {27, 43}, {100, 100}, {1000, 30}} {
		_, err := Interleave(c[0], c[1])
		require.True(t, errors.Is(err, errors.ErrCodeOverflow), "interleave(%d,%d)", c[0], c[1])
	}

	_, err := Interleave(-1, 3)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestInterleaveFloat(t *testing.T) {
	require.Equal(t, 184756.0, InterleaveFloat(10, 10))
	// C(70,27) is representable as a float even though it overflows int64.
	require.InEpsilon(t, 1.8208558839321176e19, InterleaveFloat(43, 27), 1e-9)
}

func TestNumDAGs(t *testing.T) {
	want := []float64{1, 1, 3, 25, 543, 29281}
	for n, w := range want {
		require.Equal(t, w, NumDAGs(n), "n=%d", n)
	}
	require.Equal(t, 0.0, NumDAGs(-1))
	require.Equal(t, "783702329343", NumDAGsBig(8).String())
}

func ExampleInterleave() {
	v, _ := Interleave(10, 10)
	fmt.Println(v)
	_, err := Interleave(43, 27)
	fmt.Println(err != nil)
	// Output:
	// 184756
	// true
}
