package extension

import (
	"math"
	"math/big"
	"math/bits"

	"github.com/matzehuels/camml/pkg/errors"
)

// Interleave returns the number of ways to interleave two ordered sequences
// of lengths a and b while preserving the internal order of each, C(a+b, a).
//
// Returns an OVERFLOW error when the result exceeds math.MaxInt64 and an
// INVALID_INPUT error for negative lengths.
func Interleave(a, b int) (int64, error) {
	if a < 0 || b < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "negative sequence length (%d, %d)", a, b)
	}
	k, m := uint64(min(a, b)), uint64(max(a, b))

	// r holds C(m+i, i) after step i; each step is exact in 128 bits.
	r := uint64(1)
	for i := uint64(1); i <= k; i++ {
		hi, lo := bits.Mul64(r, m+i)
		if hi >= i {
			return 0, overflow(a, b)
		}
		r, _ = bits.Div64(hi, lo, i)
		if r > math.MaxInt64 {
			return 0, overflow(a, b)
		}
	}
	return int64(r), nil
}

// InterleaveFloat returns C(a+b, a) as a float64. It is exact wherever
// Interleave succeeds and approximate (via log-gamma) beyond.
func InterleaveFloat(a, b int) float64 {
	if v, err := Interleave(a, b); err == nil {
		return float64(v)
	}
	return math.Exp(LogInterleave(a, b))
}

// LogInterleave returns the natural logarithm of C(a+b, a).
func LogInterleave(a, b int) float64 {
	n, _ := math.Lgamma(float64(a+b) + 1)
	x, _ := math.Lgamma(float64(a) + 1)
	y, _ := math.Lgamma(float64(b) + 1)
	return n - x - y
}

func overflow(a, b int) error {
	return errors.New(errors.ErrCodeOverflow, "interleave(%d,%d) exceeds int64", a, b)
}

// NumDAGs returns the number of distinct labelled DAGs on n nodes, or 0 for
// negative n. Values beyond the float64 range become +Inf.
func NumDAGs(n int) float64 {
	f, _ := new(big.Float).SetInt(NumDAGsBig(n)).Float64()
	return f
}

// NumDAGsBig returns the exact number of labelled DAGs on n nodes using
// Robinson's recurrence
//
//	a(n) = sum_{k=1..n} (-1)^(k+1) C(n,k) 2^(k(n-k)) a(n-k),  a(0) = 1.
func NumDAGsBig(n int) *big.Int {
	if n < 0 {
		return new(big.Int)
	}
	a := make([]*big.Int, n+1)
	a[0] = big.NewInt(1)
	for m := 1; m <= n; m++ {
		sum := new(big.Int)
		for k := 1; k <= m; k++ {
			term := new(big.Int).Binomial(int64(m), int64(k))
			term.Lsh(term, uint(k*(m-k)))
			term.Mul(term, a[m-k])
			if k%2 == 1 {
				sum.Add(sum, term)
			} else {
				sum.Sub(sum, term)
			}
		}
		a[m] = sum
	}
	return a[n]
}
