// Package learner provides the local-model learners the search uses to price
// a variable given a parent set.
//
// Every learner implements [tom.ModelLearner]: Parameterize fits the
// conditional distribution of one variable given its parents and returns the
// fitted model with its MML cost in nats; Cost does the same without keeping
// the parameters. The learners form a closed set:
//
//   - [CPT] prices a full conditional probability table with the adaptive
//     (sequential Dirichlet) code.
//   - [Wallace] prices the same table with the MML87 multistate
//     approximation.
//   - [Dual] runs several learners and keeps the cheapest fit.
//
// A learner that cannot fit a parent set returns an [errors.LearnerError]
// (code LEARNER_FAILED). [Dual] only fails when every learner it wraps fails.
//
// Learners hold no mutable state and are safe for concurrent use.
package learner
