// Package perm provides permutation helpers used by the structure search:
// identity sequences, overflow-checked factorials, inverses and in-place
// successor iteration over total orders.
package perm

import (
	"math"
	"slices"

	"github.com/matzehuels/camml/pkg/errors"
)

// Seq returns a slice containing the sequence [0, 1, 2, ..., n-1].
// This is the identity total order over n nodes.
//
// For n <= 0, Seq returns an empty slice.
func Seq(n int) []int {
	if n < 0 {
		n = 0
	}
	result := make([]int, n)
	for i := range result {
		result[i] = i
	}
	return result
}

// Factorial returns n!, the product 1 × 2 × ... × n, as an int64.
// For n <= 1, Factorial returns 1.
//
// Factorial returns an OVERFLOW error for n > 20, since 21! exceeds the
// int64 range.
func Factorial(n int) (int64, error) {
	result := int64(1)
	for i := int64(2); i <= int64(n); i++ {
		if result > math.MaxInt64/i {
			return 0, errors.New(errors.ErrCodeOverflow, "%d! exceeds int64", n)
		}
		result *= i
	}
	return result, nil
}

// LogFactorial returns the natural logarithm of n!.
func LogFactorial(n int) float64 {
	if n <= 1 {
		return 0
	}
	v, _ := math.Lgamma(float64(n) + 1)
	return v
}

// Next advances order in place to its lexicographic successor and reports
// whether one existed. After the last permutation (descending order) Next
// resets order to ascending and returns false, so iterating from Seq(n)
// until Next returns false visits each of the n! permutations exactly once.
func Next(order []int) bool {
	i := len(order) - 2
	for i >= 0 && order[i] >= order[i+1] {
		i--
	}
	if i < 0 {
		slices.Reverse(order)
		return false
	}
	j := len(order) - 1
	for order[j] <= order[i] {
		j--
	}
	order[i], order[j] = order[j], order[i]
	slices.Reverse(order[i+1:])
	return true
}

// Inverse returns the inverse permutation: Inverse(p)[p[i]] == i.
func Inverse(p []int) []int {
	inv := make([]int, len(p))
	for i, v := range p {
		inv[v] = i
	}
	return inv
}

// IsPermutation reports whether p contains each of 0..len(p)-1 exactly once.
func IsPermutation(p []int) bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
