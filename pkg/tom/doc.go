// Package tom implements the Totally Ordered Model, the candidate structure
// the search mutates.
//
// # Overview
//
// A [TOM] couples a total order over the variables of a dataset with a set of
// undirected links. Every link is read as an arc from the variable that comes
// earlier in the order to the one that comes later, so a TOM always describes
// a DAG: acyclicity is a consequence of the order, not something that has to
// be checked after each mutation.
//
//	t, _ := tom.New(ds)          // identity order, no arcs
//	t.AddArc(0, 2)               // 0 -> 2
//	t.AddArc(1, 2)               // 1 -> 2
//	t.SwapOrder(0, 2, true)      // order [2 1 0]: 2 -> 0 and 2 -> 1
//
// The order is held twice, as order (position -> node) and position
// (node -> position); the two are inverse permutations at all times.
//
// # Queries
//
// [TOM.IsArc], [TOM.IsAncestor], [TOM.IsDescendant] follow arc direction.
// [TOM.IsCorrelated] ignores direction and reports whether two variables are
// joined by any path in the skeleton.
//
// # Parameters
//
// [TOM.MakeParameters] asks a [ModelLearner] to fit every node given its
// current parents and returns a [Params] snapshot. [TOM.SetStructure]
// restores a TOM from such a snapshot, after which it is [TOM.Equal] to the
// TOM that produced it.
//
// # Limits
//
// Each node's links are a uint64 mask, so a TOM holds at most 64 variables.
//
// TOM is not safe for concurrent use. [TOM.Clone] copies order, positions and
// links; the dataset is shared and must not be modified.
package tom
