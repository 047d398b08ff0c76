// Package extension counts the linear extensions of a partial order: the
// number of total orders over the nodes of a DAG in which every arc points
// forward.
//
// # Why count extensions
//
// The structure search samples totally ordered models (TOMs), so a DAG that
// is consistent with k total orders is visited k times as often as a DAG
// consistent with one. The structure prior corrects for this by subtracting
// log(k) from the TOM cost, which requires k.
//
// # Counters
//
// Two interchangeable algorithms compute the same number:
//
//   - [WallaceCounter.LPerms]: a direct count that repeatedly removes a root
//     and recurses. Exact in uint64 and factorial-time in the worst case; it
//     serves as the reference oracle for small graphs.
//   - [DynamicCounter.CountPerms]: dynamic programming over the downward-closed
//     node subsets of each connected component, memoised per component
//     signature. Independent components are merged with [Interleave], the
//     number of ways to shuffle two sequences of lengths a and b while keeping
//     each internally ordered, C(a+b, a).
//
// Both must agree exactly: CountPerms(g) == float64(LPerms(g)) for every
// graph small enough for LPerms.
//
// # Limits
//
// [Interleave] works in the int64 range and returns an OVERFLOW error beyond
// it: Interleave(43, 26) = 7023301266595310928 is representable, Interleave(43, 27)
// is not. CountPerms falls back to a floating-point binomial when merging
// components whose interleave count overflows.
//
// [NumDAGs] returns the number of labelled DAGs on n nodes (Robinson's
// recurrence): 1, 1, 3, 25, 543, 29281 for n = 0..5, and 0 for negative n.
package extension
