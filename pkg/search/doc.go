// Package search samples causal structures by their MML cost.
//
// # Overview
//
// A [Searcher] runs one or more Markov chains over [tom.TOM] states. Each
// epoch a chain proposes a local change (toggle an arc, swap two variables in
// the total order, or reverse an arc by swapping its endpoints), rescoring
// only the nodes whose parent sets changed through a per-chain [NodeCache].
// The change is accepted by the Metropolis criterion at the current
// temperature; a proposal whose cost cannot be computed is rejected and the
// chain moves on.
//
// Two temperature schedules are provided: [Metropolis] keeps a fixed
// temperature and [Anneal] cools geometrically. A search may anneal first to
// find a good start state and then sample.
//
// # Aggregation
//
// Every epoch the chain's current state is recorded. States with the same
// skeleton and v-structures fall into one [SEC]; SECs whose best structures
// differ by at most one link and whose costs are within
// [Options.MergeThreshold] nats are grouped into one [MMLEC]. The posterior of
// an MMLEC is the share of samples it received.
//
// # Priors
//
// The structure prior charges log n! for the order and log p or log(1-p) per
// variable pair for arc presence. A DAG's prior subtracts the log of its
// number of linear extensions, counted with [extension.DynamicCounter].
// Expert knowledge is given as a [Prior] of tiers and required or forbidden
// arcs; proposals that break it are rejected without being scored.
//
// # Running
//
//	s, err := search.New(ds, learner.NewDual(0), search.DefaultOptions(), logger)
//	res, err := s.Run(ctx)
//
// [Searcher.Start] runs the same search in the background and returns a
// [Job] that can be polled, stopped at the next epoch boundary, and waited on.
package search
