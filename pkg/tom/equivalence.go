package tom

import (
	"fmt"
	"math/bits"
	"strings"
)

// EquivalenceKey identifies the Markov equivalence class of the DAG t
// describes. Two DAGs are equivalent exactly when they share a skeleton and
// the same set of v-structures (a -> c <- b with a and b not linked), so the
// key is built from those two parts.
func (t *TOM) EquivalenceKey() string {
	t.fresh()
	var sb strings.Builder
	for _, l := range t.links {
		fmt.Fprintf(&sb, "%x.", l)
	}
	sb.WriteByte('|')
	for c, ps := range t.parents {
		for m := ps; m != 0; m &= m - 1 {
			a := bits.TrailingZeros64(m)
			// Unlinked co-parents of c with a higher index than a.
			others := ps &^ t.links[a] &^ lowMask(a+1)
			for o := others; o != 0; o &= o - 1 {
				fmt.Fprintf(&sb, "%d,%d>%d;", a, bits.TrailingZeros64(o), c)
			}
		}
	}
	return sb.String()
}

// StructureKey identifies the DAG itself (parent sets only, order ignored).
func (t *TOM) StructureKey() string {
	t.fresh()
	var sb strings.Builder
	for _, p := range t.parents {
		fmt.Fprintf(&sb, "%x.", p)
	}
	return sb.String()
}

// VStructures returns the v-structures of t as [a, b, c] triples meaning
// a -> c <- b with a < b and a, b not linked.
func (t *TOM) VStructures() [][3]int {
	t.fresh()
	var out [][3]int
	for c, ps := range t.parents {
		for m := ps; m != 0; m &= m - 1 {
			a := bits.TrailingZeros64(m)
			for o := ps &^ t.links[a] &^ lowMask(a+1); o != 0; o &= o - 1 {
				out = append(out, [3]int{a, bits.TrailingZeros64(o), c})
			}
		}
	}
	return out
}

// SkeletonDistance returns the number of node pairs linked in exactly one
// of the two skeletons.
func SkeletonDistance(a, b []uint64) int {
	d := 0
	for i := range a {
		d += bits.OnesCount64(a[i] ^ b[i])
	}
	return d / 2
}

func lowMask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(n) - 1
}
